package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

func newDataQualityRepoMock(t *testing.T) (*DataQualityRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewDataQualityRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestDataQualityRepositoryInsertBatch(t *testing.T) {
	repo, mock, cleanup := newDataQualityRepoMock(t)
	defer cleanup()

	reqID := "req-1"
	issues := []models.DataQualityIssue{
		{Collection: models.CollectionGroups, RecordIndex: 3, Reason: "record has no identifier", Raw: []byte(`{"name":"A"}`), RequestID: &reqID},
		{Collection: models.CollectionUsers, RecordIndex: 0, Reason: "record has no identifier"},
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO data_quality_issues")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.InsertBatch(context.Background(), issues))
	for _, issue := range issues {
		assert.NotEmpty(t, issue.ID)
		assert.False(t, issue.DetectedAt.IsZero())
		assert.NotEmpty(t, issue.Raw)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDataQualityRepositoryInsertBatchEmpty(t *testing.T) {
	repo, mock, cleanup := newDataQualityRepoMock(t)
	defer cleanup()

	require.NoError(t, repo.InsertBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDataQualityRepositoryList(t *testing.T) {
	repo, mock, cleanup := newDataQualityRepoMock(t)
	defer cleanup()

	collection := models.CollectionGroups
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "collection", "record_index", "reason", "raw", "request_id", "detected_at"}).
		AddRow("issue-1", "groups", 2, "record has no identifier", []byte(`{"name":"B"}`), nil, since.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM data_quality_issues WHERE collection = $1 AND detected_at >= $2 ORDER BY detected_at DESC LIMIT $3")).
		WithArgs(collection, since, defaultIssueLimit).
		WillReturnRows(rows)

	issues, err := repo.List(context.Background(), models.DataQualityFilter{Collection: &collection, Since: &since})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "issue-1", issues[0].ID)
	assert.Equal(t, models.CollectionGroups, issues[0].Collection)
	assert.JSONEq(t, `{"name":"B"}`, string(issues[0].Raw))
	assert.Nil(t, issues[0].RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDataQualityRepositoryCountAndPurge(t *testing.T) {
	repo, mock, cleanup := newDataQualityRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT collection, COUNT(*) AS total FROM data_quality_issues GROUP BY collection")).
		WillReturnRows(sqlmock.NewRows([]string{"collection", "total"}).AddRow("users", 4).AddRow("groups", 1))

	counts, err := repo.CountByCollection(context.Background(), models.DataQualityFilter{})
	require.NoError(t, err)
	assert.Equal(t, map[models.Collection]int{models.CollectionUsers: 4, models.CollectionGroups: 1}, counts)

	cutoff := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM data_quality_issues WHERE detected_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))
	n, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
