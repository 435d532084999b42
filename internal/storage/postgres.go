package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"intake-script-engine/internal/models"
	"intake-script-engine/pkg/fault"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS intake_scripts (
	id         uuid PRIMARY KEY,
	name       text NOT NULL,
	questions  jsonb NOT NULL,
	created_at timestamptz NOT NULL,
	updated_at timestamptz NOT NULL
)`

// ScriptStore persists authored scripts to Postgres as their exported
// question-array form.
type ScriptStore struct {
	db *sqlx.DB
}

func NewScriptStore(db *sqlx.DB) *ScriptStore {
	return &ScriptStore{db: db}
}

// Open connects to Postgres and ensures the scripts table exists.
func Open(ctx context.Context, dsn string) (*ScriptStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return NewScriptStore(db), nil
}

func (s *ScriptStore) Close() error {
	return s.db.Close()
}

type scriptRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Questions []byte    `db:"questions"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *ScriptStore) Save(ctx context.Context, name string, questions []models.Question) (models.SavedScriptSummary, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return models.SavedScriptSummary{}, fault.NewInternalError("encoding script", err)
	}

	now := time.Now().UTC()
	row := scriptRow{
		ID:        uuid.New().String(),
		Name:      name,
		Questions: data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const query = `
		INSERT INTO intake_scripts (id, name, questions, created_at, updated_at)
		VALUES (:id, :name, :questions, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return models.SavedScriptSummary{}, err
	}

	return models.SavedScriptSummary{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *ScriptStore) Load(ctx context.Context, id string) (models.SavedScript, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.SavedScript{}, fault.NewClientError("invalid script id", err)
	}

	var row scriptRow
	const query = `SELECT id, name, questions, created_at, updated_at FROM intake_scripts WHERE id=$1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SavedScript{}, fault.ErrNotFound
		}
		return models.SavedScript{}, err
	}

	var questions []models.Question
	if err := json.Unmarshal(row.Questions, &questions); err != nil {
		return models.SavedScript{}, fault.NewInternalError("decoding script", err)
	}

	return models.SavedScript{
		ID:        row.ID,
		Name:      row.Name,
		Questions: questions,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *ScriptStore) List(ctx context.Context) ([]models.SavedScriptSummary, error) {
	var summaries []models.SavedScriptSummary
	const query = `SELECT id, name, created_at, updated_at FROM intake_scripts ORDER BY updated_at DESC`
	if err := s.db.SelectContext(ctx, &summaries, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.SavedScriptSummary{}, nil
		}
		return nil, err
	}
	return summaries, nil
}

func (s *ScriptStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fault.NewClientError("invalid script id", err)
	}

	const query = `DELETE FROM intake_scripts WHERE id=$1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fault.ErrNotFound
	}
	return nil
}
