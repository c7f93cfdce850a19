package models

import "time"

// SystemPrompt is the administrator-owned default instruction for a stage.
type SystemPrompt struct {
	ID          int64   `db:"id" json:"id"`
	StageID     int64   `db:"stage_id" json:"stage_id"`
	PromptText  string  `db:"prompt_text" json:"prompt_text"`
	Description *string `db:"description" json:"description,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserPrompt is a per-user copy of a system prompt.
// IsCustomized is set once the user edits the text and cleared on reset.
type UserPrompt struct {
	ID           int64  `db:"id" json:"id"`
	UserID       int64  `db:"user_id" json:"user_id"`
	StageID      int64  `db:"stage_id" json:"stage_id"`
	PromptText   string `db:"prompt_text" json:"prompt_text"`
	IsCustomized bool   `db:"is_customized" json:"is_customized"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
