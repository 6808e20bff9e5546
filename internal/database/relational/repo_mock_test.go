package relational

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/output"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewRepo(db)
}

func TestReplacePass_RollsBackOnClearError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM pass`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.ReplacePass(context.Background(), &output.PipelinePayload{RunID: "r1", EvaluatedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear pass")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePass_CommitError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	for _, table := range passTables {
		mock.ExpectExec(`DELETE FROM ` + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`INSERT INTO pass`).
		WithArgs("r1", sqlmock.AnyArg(), sqlmock.AnyArg(), 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("conflict"))

	err := repo.ReplacePass(context.Background(), &output.PipelinePayload{RunID: "r1", EvaluatedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryIncidents_BuildsFilter(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"code", "kind", "domain", "site_id", "site_name", "device_id", "detail", "severity", "at", "is_cascade",
	}).AddRow("TECH.STATUS.UPS.UPS-02", "Mất kết nối", "UPS", "SITE-B", "Chi nhánh B", "UPS-02", "UPS OFF", "high", "10:43", false)

	mock.ExpectQuery(`SELECT code, kind, domain`).
		WithArgs("SITE-B", "%ups%", "%ups%", 50).
		WillReturnRows(rows)

	got, err := repo.QueryIncidents(context.Background(), output.IncidentFilter{SiteID: "SITE-B", Query: " ups "}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "UPS-02", got[0].DeviceID)
	assert.False(t, got[0].IsCascade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerySiteRisk_QueryError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM site_risk`).WithArgs(70).WillReturnError(errors.New("closed"))

	_, err := repo.QuerySiteRisk(context.Background(), 70)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query site risk failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentPass_NoRows(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM pass`).WillReturnRows(sqlmock.NewRows([]string{
		"run_id", "evaluated_at", "hostname", "device_count", "incident_count",
	}))

	_, err := repo.CurrentPass(context.Background())
	assert.ErrorIs(t, err, ErrNoPass)
	assert.NoError(t, mock.ExpectationsWereMet())
}
