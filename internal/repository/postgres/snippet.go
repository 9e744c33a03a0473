package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pkarls/sonolog/internal/repository"
	"github.com/pkarls/sonolog/pkg/models"
)

// PostgresSnippetRepository implements SnippetRepository for PostgreSQL
type PostgresSnippetRepository struct {
	db *sql.DB
}

// NewPostgresSnippetRepository creates a new PostgreSQL snippet repository
func NewPostgresSnippetRepository(db *sql.DB) *PostgresSnippetRepository {
	return &PostgresSnippetRepository{db: db}
}

// List retrieves snippet metadata newest-first.
func (r *PostgresSnippetRepository) List(ctx context.Context, limit int) ([]*models.Snippet, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, measurement_id, timestamp, object_key, anomaly_score
		FROM snippets
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Snippet
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID retrieves one snippet by ID.
func (r *PostgresSnippetRepository) GetByID(ctx context.Context, id int64) (*models.Snippet, error) {
	query := `
		SELECT id, measurement_id, timestamp, object_key, anomaly_score
		FROM snippets
		WHERE id = $1`

	s, err := scanSnippet(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return s, err
}

// Delete removes one snippet's metadata row. The caller is responsible for
// deleting the stored audio first.
func (r *PostgresSnippetRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snippets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanSnippet(row rowScanner) (*models.Snippet, error) {
	var s models.Snippet
	var score sql.NullFloat64
	if err := row.Scan(&s.ID, &s.MeasurementID, &s.Timestamp, &s.ObjectKey, &score); err != nil {
		return nil, err
	}
	s.AnomalyScore = nullableFloat(score)
	return &s, nil
}
