package resumeseed_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/resumeseed"
)

type fakeIngester struct {
	calls []string
	err   error
}

func (f *fakeIngester) Ingest(_ domain.Context, filename, text string) (domain.Resume, error) {
	if f.err != nil {
		return domain.Resume{}, f.err
	}
	f.calls = append(f.calls, filename)
	return domain.Resume{ID: fmt.Sprintf("res-%d", len(f.calls)), Filename: filename, Text: text}, nil
}

func TestSeedFile_IngestsResume(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "1")
	dir := t.TempDir()
	p := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(p, []byte("Built data pipelines in Python and Spark."), 0o600))

	svc := &fakeIngester{}
	r, err := resumeseed.SeedFile(context.Background(), svc, p)
	require.NoError(t, err)
	require.Equal(t, "res-1", r.ID)
	require.Equal(t, []string{"cv.txt"}, svc.calls)
}

func TestSeedFile_RejectsUnsupportedExtension(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "1")
	dir := t.TempDir()
	p := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4"), 0o600))

	_, err := resumeseed.SeedFile(context.Background(), &fakeIngester{}, p)
	require.ErrorContains(t, err, "unsupported resume file")
}

func TestSeedFile_MissingFile(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "1")
	_, err := resumeseed.SeedFile(context.Background(), &fakeIngester{}, filepath.Join(t.TempDir(), "absent.txt"))
	require.ErrorContains(t, err, "resume file not found")
}

func TestSeedFile_DisallowedPathOutsideWorkingDir(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "")
	dir := t.TempDir()
	p := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(p, []byte("text"), 0o600))

	_, err := resumeseed.SeedFile(context.Background(), &fakeIngester{}, p)
	require.ErrorContains(t, err, "disallowed path")
}

func TestSeedFile_PropagatesIngestError(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "1")
	dir := t.TempDir()
	p := filepath.Join(dir, "cv.md")
	require.NoError(t, os.WriteFile(p, []byte("# Resume"), 0o600))

	svc := &fakeIngester{err: fmt.Errorf("%w: resume text required", domain.ErrInvalidArgument)}
	_, err := resumeseed.SeedFile(context.Background(), svc, p)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSeedDir_SeedsTextAndMarkdownOnly(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "1")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("resume a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("resume b"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.exe"), []byte{0x00, 0x01}, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o750))

	svc := &fakeIngester{}
	n, err := resumeseed.SeedDir(context.Background(), svc, dir)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.ElementsMatch(t, []string{"a.txt", "b.md"}, svc.calls)
}

func TestSeedDir_EmptyDir(t *testing.T) {
	t.Setenv("RESUMESEED_ALLOW_ABSPATHS", "1")
	_, err := resumeseed.SeedDir(context.Background(), &fakeIngester{}, t.TempDir())
	require.ErrorContains(t, err, "no .txt or .md resumes")
}
