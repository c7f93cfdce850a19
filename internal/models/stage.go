package models

import "time"

// Well-known stage names.
const (
	StageClassification    = "classification"
	StageFreshnessCheck    = "freshness_check"
	StageFreshnessAnalysis = "freshness_analysis"
	StageAnalysis          = "analysis"
	StageRecommendations   = "recommendations"
)

// Stage is one ordered step of the processing pipeline.
type Stage struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	DisplayName string  `db:"display_name" json:"display_name"`
	Description *string `db:"description" json:"description,omitempty"`
	Order       int     `db:"stage_order" json:"order"`
	IsActive    bool    `db:"is_active" json:"is_active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StageAssignment binds a stage to a primary model and an optional fallback.
// Only one assignment per stage is active; older rows are kept as history.
type StageAssignment struct {
	ID              int64  `db:"id" json:"id"`
	StageID         int64  `db:"stage_id" json:"stage_id"`
	ModelID         int64  `db:"model_id" json:"model_id"`
	FallbackModelID *int64 `db:"fallback_model_id" json:"fallback_model_id,omitempty"`
	IsActive        bool   `db:"is_active" json:"is_active"`
	Priority        int    `db:"priority" json:"priority"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasFallback reports whether the assignment names a usable fallback model.
// A fallback equal to the primary model is ignored.
func (a *StageAssignment) HasFallback() bool {
	return a != nil && a.FallbackModelID != nil && *a.FallbackModelID != a.ModelID
}
