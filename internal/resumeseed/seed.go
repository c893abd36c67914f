// Package resumeseed ingests plain-text resume files through the resume
// service so a local deployment has stored resumes and retrievable
// context without going through the HTTP API.
package resumeseed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// Ingester is the slice of the resume service the seeder needs.
type Ingester interface {
	Ingest(ctx domain.Context, filename, text string) (domain.Resume, error)
}

// SeedFile ingests a single .txt or .md resume file and returns the
// stored resume.
func SeedFile(ctx domain.Context, svc Ingester, path string) (domain.Resume, error) {
	// Mitigate file inclusion issues by constraining to the working directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Resume{}, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return domain.Resume{}, err
	}
	abs = filepath.Clean(abs)
	wd = filepath.Clean(wd)
	if os.Getenv("RESUMESEED_ALLOW_ABSPATHS") != "1" {
		if !strings.HasPrefix(abs, wd+string(os.PathSeparator)) && abs != wd {
			return domain.Resume{}, fmt.Errorf("disallowed path: %s", abs)
		}
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if ext != ".txt" && ext != ".md" {
		return domain.Resume{}, fmt.Errorf("unsupported resume file %s: want .txt or .md", path)
	}

	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Resume{}, fmt.Errorf("resume file not found: %s", path)
		}
		return domain.Resume{}, err
	}

	r, err := svc.Ingest(ctx, filepath.Base(abs), string(b))
	if err != nil {
		return domain.Resume{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return r, nil
}

// SeedDir ingests every .txt and .md file directly inside dir and returns
// how many resumes were stored. Other files are skipped; subdirectories
// are not descended into.
func SeedDir(ctx domain.Context, svc Ingester, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read seed dir: %w", err)
	}

	seeded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		if _, err := SeedFile(ctx, svc, filepath.Join(dir, e.Name())); err != nil {
			return seeded, err
		}
		seeded++
	}
	if seeded == 0 {
		return 0, fmt.Errorf("no .txt or .md resumes in %s", dir)
	}
	return seeded, nil
}
