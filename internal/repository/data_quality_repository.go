package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

const defaultIssueLimit = 100

// DataQualityRepository persists records dropped while reconciling upstream data.
type DataQualityRepository struct {
	db *sqlx.DB
}

// NewDataQualityRepository constructs the repository.
func NewDataQualityRepository(db *sqlx.DB) *DataQualityRepository {
	return &DataQualityRepository{db: db}
}

// InsertBatch stores issues in a single statement, filling ids and timestamps.
func (r *DataQualityRepository) InsertBatch(ctx context.Context, issues []models.DataQualityIssue) error {
	if len(issues) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range issues {
		if issues[i].ID == "" {
			issues[i].ID = uuid.NewString()
		}
		if issues[i].DetectedAt.IsZero() {
			issues[i].DetectedAt = now
		}
		if len(issues[i].Raw) == 0 {
			issues[i].Raw = []byte("{}")
		}
	}
	const query = `INSERT INTO data_quality_issues (id, collection, record_index, reason, raw, request_id, detected_at)
VALUES (:id, :collection, :record_index, :reason, :raw, :request_id, :detected_at)`
	if _, err := r.db.NamedExecContext(ctx, query, issues); err != nil {
		return fmt.Errorf("insert data quality issues: %w", err)
	}
	return nil
}

// List returns the most recent issues matching filter.
func (r *DataQualityRepository) List(ctx context.Context, filter models.DataQualityFilter) ([]models.DataQualityIssue, error) {
	where, args := issueConditions(filter)
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultIssueLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT id, collection, record_index, reason, COALESCE(raw, '{}'::jsonb) AS raw, request_id, detected_at
FROM data_quality_issues%s ORDER BY detected_at DESC LIMIT $%d`, where, len(args))

	var issues []models.DataQualityIssue
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		return nil, fmt.Errorf("list data quality issues: %w", err)
	}
	return issues, nil
}

// CountByCollection groups the issues matching filter per collection.
func (r *DataQualityRepository) CountByCollection(ctx context.Context, filter models.DataQualityFilter) (map[models.Collection]int, error) {
	where, args := issueConditions(filter)
	query := fmt.Sprintf(`SELECT collection, COUNT(*) AS total FROM data_quality_issues%s GROUP BY collection`, where)

	var rows []struct {
		Collection models.Collection `db:"collection"`
		Total      int               `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count data quality issues: %w", err)
	}
	out := make(map[models.Collection]int, len(rows))
	for _, row := range rows {
		out[row.Collection] = row.Total
	}
	return out, nil
}

// DeleteBefore purges issues older than cutoff and returns how many were removed.
func (r *DataQualityRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM data_quality_issues WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge data quality issues: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge data quality issues: %w", err)
	}
	return n, nil
}

func issueConditions(filter models.DataQualityFilter) (string, []interface{}) {
	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if filter.Collection != nil {
		args = append(args, *filter.Collection)
		conds = append(conds, fmt.Sprintf("collection = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conds = append(conds, fmt.Sprintf("detected_at >= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
