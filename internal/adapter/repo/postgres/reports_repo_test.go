package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raghav-madderla/AIMI/internal/adapter/repo/postgres"
	"github.com/Raghav-madderla/AIMI/internal/domain"
)

func sampleReport() domain.InterviewReport {
	return domain.InterviewReport{
		SessionID: "sess-1",
		JobRole:   "Data Engineer",
		ExecutiveSummary: domain.ExecutiveSummary{
			OverallScore:      0.72,
			OverallPercentage: 72,
			PerformanceLevel:  "Good",
			PerformanceColor:  "#eab308",
			TotalQuestions:    4,
		},
		GeneratedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReportRepo_Upsert(t *testing.T) {
	pool := &poolStub{}
	repo := postgres.NewReportRepo(pool)
	rep := sampleReport()

	err := repo.Upsert(context.Background(), "sess-1", rep)
	require.NoError(t, err)
	require.Len(t, pool.execSQL, 1)
	assert.Contains(t, pool.execSQL[0], "ON CONFLICT (session_id)")
	assert.Equal(t, "sess-1", pool.execArgs[0][0])

	raw, ok := pool.execArgs[0][1].([]byte)
	require.True(t, ok)
	var stored domain.InterviewReport
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, rep.ExecutiveSummary, stored.ExecutiveSummary)
}

func TestReportRepo_Upsert_ExecError(t *testing.T) {
	pool := &poolStub{execErr: assert.AnError}
	repo := postgres.NewReportRepo(pool)

	err := repo.Upsert(context.Background(), "sess-1", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=report.upsert")
}

func TestReportRepo_GetBySessionID(t *testing.T) {
	rep := sampleReport()
	doc, err := json.Marshal(rep)
	require.NoError(t, err)
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*[]byte)) = doc
		return nil
	}}}
	repo := postgres.NewReportRepo(pool)

	got, err := repo.GetBySessionID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, rep, got)
}

func TestReportRepo_GetBySessionID_NotFound(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(_ ...any) error { return pgx.ErrNoRows }}}
	repo := postgres.NewReportRepo(pool)

	_, err := repo.GetBySessionID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportRepo_GetBySessionID_CorruptDocument(t *testing.T) {
	pool := &poolStub{row: rowStub{scan: func(dest ...any) error {
		*(dest[0].(*[]byte)) = []byte(`{broken`)
		return nil
	}}}
	repo := postgres.NewReportRepo(pool)

	_, err := repo.GetBySessionID(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=report.get_unmarshal")
}
