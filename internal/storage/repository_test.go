package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/models"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewDBFromConn(sqlx.NewDb(conn, "postgres")), mock
}

func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

var stageCols = []string{"id", "name", "display_name", "description", "stage_order", "is_active", "created_at", "updated_at"}

func TestStageRepositoryListActiveByIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := db.NewStageRepository()
	now := time.Now()

	mock.ExpectQuery(q("FROM stages WHERE id = ANY($1) AND is_active ORDER BY stage_order, id")).
		WithArgs(pq.Array([]int64{3, 1, 2})).
		WillReturnRows(sqlmock.NewRows(stageCols).
			AddRow(1, "classification", "Classification", nil, 1, true, now, now).
			AddRow(2, "freshness_check", "Freshness check", "desc", 2, true, now, now).
			AddRow(3, "analysis", "Analysis", nil, 3, true, now, now))

	stages, err := repo.ListActiveByIDs(context.Background(), []int64{3, 1, 2})
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{stages[0].ID, stages[1].ID, stages[2].ID})
	assert.Nil(t, stages[0].Description)
	assert.Equal(t, "desc", *stages[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRepositoryListActiveByIDsEmpty(t *testing.T) {
	db, mock := setupMockDB(t)

	stages, err := db.NewStageRepository().ListActiveByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, stages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(q("FROM stages WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(stageCols))

	_, err := db.NewStageRepository().GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestAssignmentRepositoryGetActiveForStage(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(q("WHERE stage_id = $1 AND is_active")+".*"+q("ORDER BY priority DESC, id DESC")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "stage_id", "model_id", "fallback_model_id", "is_active", "priority", "created_at", "updated_at"}).
			AddRow(9, 2, 5, 6, true, 10, now, now))

	a, err := db.NewAssignmentRepository().GetActiveForStage(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.ModelID)
	require.NotNil(t, a.FallbackModelID)
	assert.Equal(t, int64(6), *a.FallbackModelID)
	assert.True(t, a.HasFallback())
}

func TestAssignmentRepositoryActivate(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()
	fallback := int64(8)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE stage_assignments SET is_active = FALSE")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("INSERT INTO stage_assignments")).
		WithArgs(int64(3), int64(7), sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectCommit()

	a, err := db.NewAssignmentRepository().Activate(context.Background(), 3, 7, &fallback, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), a.ID)
	assert.True(t, a.IsActive)
	assert.Equal(t, int64(8), *a.FallbackModelID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryActivateRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE stage_assignments")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("INSERT INTO stage_assignments")).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := db.NewAssignmentRepository().Activate(context.Background(), 3, 7, nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create stage assignment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryActivateRejectsSelfFallback(t *testing.T) {
	db, mock := setupMockDB(t)
	same := int64(7)

	_, err := db.NewAssignmentRepository().Activate(context.Background(), 3, 7, &same, 0)
	assert.ErrorIs(t, err, ErrInvalidFallback)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// notPlaintext matches any string argument different from the given value.
type notPlaintext string

func (n notPlaintext) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s != "" && s != string(n)
}

func TestProviderRepositoryEncryptsAPIKey(t *testing.T) {
	db, mock := setupMockDB(t)
	key, err := GenerateKey(32)
	require.NoError(t, err)
	enc, err := NewEncryptionFromBase64(key)
	require.NoError(t, err)
	db.WithEncryption(enc)

	repo := db.NewProviderRepository()
	now := time.Now()
	apiKey := "sk-secret"

	var stored string
	mock.ExpectQuery(q("INSERT INTO providers")).
		WithArgs("openai", "OpenAI", true, notPlaintext(apiKey), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	p := &models.Provider{Name: "openai", DisplayName: "OpenAI", IsActive: true, APIKey: &apiKey}
	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "sk-secret", *p.APIKey)

	stored, err = enc.Encrypt([]byte(apiKey))
	require.NoError(t, err)
	mock.ExpectQuery(q("FROM providers WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_name", "is_active", "api_key", "additional_config", "created_at", "updated_at"}).
			AddRow(1, "openai", "OpenAI", true, stored, `{"base_url":"https://proxy"}`, now, now))

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", got.Credential())
	assert.Equal(t, "https://proxy", got.Config().String("base_url"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderRepositoryUndecryptableKeyIsMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	key, err := GenerateKey(32)
	require.NoError(t, err)
	enc, err := NewEncryptionFromBase64(key)
	require.NoError(t, err)
	db.WithEncryption(enc)

	repo := db.NewProviderRepository()
	now := time.Now()

	// stored in plain text before encryption was enabled
	mock.ExpectQuery(q("FROM providers WHERE name = $1")).
		WithArgs("openai").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "display_name", "is_active", "api_key", "additional_config", "created_at", "updated_at"}).
			AddRow(1, "openai", "OpenAI", true, "sk-plain", nil, now, now))

	got, err := repo.GetByName(context.Background(), "openai")
	require.NoError(t, err)
	assert.Nil(t, got.APIKey)
	assert.Empty(t, got.Credential())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderRepositorySetAPIKeyNotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(q("UPDATE providers SET api_key")).
		WithArgs(int64(5), "k").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.NewProviderRepository().SetAPIKey(context.Background(), 5, "k")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestPromptRepositoryUserPromptNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := db.NewPromptRepository()

	mock.ExpectQuery(q("FROM user_prompts")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "stage_id", "prompt_text", "is_customized", "created_at", "updated_at"}))
	_, err := repo.GetUserPrompt(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrUserPromptNotFound)

	mock.ExpectQuery(q("UPDATE user_prompts")).
		WithArgs(int64(1), int64(2), "text", true).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	err = repo.UpdateUserPrompt(context.Background(), &models.UserPrompt{UserID: 1, StageID: 2, PromptText: "text", IsCustomized: true})
	assert.ErrorIs(t, err, ErrUserPromptNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryUpsertSystemPrompt(t *testing.T) {
	db, mock := setupMockDB(t)
	now := time.Now()

	mock.ExpectQuery(q("INSERT INTO system_prompts")).
		WithArgs(int64(4), "Classify", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "description", "created_at", "updated_at"}).AddRow(3, "kept", now, now))

	p := &models.SystemPrompt{StageID: 4, PromptText: "Classify"}
	require.NoError(t, db.NewPromptRepository().UpsertSystemPrompt(context.Background(), p))
	assert.Equal(t, int64(3), p.ID)
	require.NotNil(t, p.Description)
	assert.Equal(t, "kept", *p.Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}
