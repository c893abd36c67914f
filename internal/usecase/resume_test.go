package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

func newResumeService(t *testing.T, rc *fakeResumeCtx) (ResumeService, *memResumes) {
	t.Helper()
	repo := newMemResumes()
	// Summaries come from the keyword scan; no model scripting needed.
	svc := NewResumeService(repo, rc, NewSummarizerService(&fakeGateway{}, testVocab(t)))
	return svc, repo
}

func TestResumeIngest(t *testing.T) {
	ctx := context.Background()
	rc := &fakeResumeCtx{}
	svc, repo := newResumeService(t, rc)

	text := "Senior engineer.\x00 Built Python pipelines over SQL warehouses."
	res, err := svc.Ingest(ctx, "cv.txt", text)
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "cv.txt", res.Filename)
	// Control characters are stripped before anything sees the text.
	assert.NotContains(t, res.Text, "\x00")
	require.NotNil(t, res.Summary)
	assert.Contains(t, res.Summary.RecommendedDomains, "Python")
	assert.Equal(t, "senior", res.Summary.ExperienceLevel)

	stored, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Text, stored.Text)
	assert.Equal(t, []string{res.ID}, rc.ingested)
}

func TestResumeIngest_EmptyTextRejected(t *testing.T) {
	svc, _ := newResumeService(t, &fakeResumeCtx{})

	_, err := svc.Ingest(context.Background(), "cv.txt", "  \x00 ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResumeIngest_DefaultFilename(t *testing.T) {
	svc, _ := newResumeService(t, &fakeResumeCtx{})

	res, err := svc.Ingest(context.Background(), "  ", "A perfectly ordinary resume about SQL.")
	require.NoError(t, err)
	assert.Equal(t, "resume.txt", res.Filename)
}

func TestResumeIngest_VectorIngestFailureIsNotFatal(t *testing.T) {
	rc := &fakeResumeCtx{ingestErr: fmt.Errorf("%w: qdrant down", domain.ErrUpstreamTimeout)}
	svc, repo := newResumeService(t, rc)

	res, err := svc.Ingest(context.Background(), "cv.txt", "Python and SQL background.")
	require.NoError(t, err)

	// The row still exists; only retrieval is degraded.
	_, err = repo.Get(context.Background(), res.ID)
	assert.NoError(t, err)
	assert.Empty(t, rc.ingested)
}

func TestResumeGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newResumeService(t, &fakeResumeCtx{})

	res, err := svc.Ingest(ctx, "cv.txt", "Plain resume text about Go services.")
	require.NoError(t, err)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Get(ctx, "res-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
