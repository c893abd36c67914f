package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/textx"
)

// ResumeService ingests candidate resumes: sanitize, summarize, store the
// row, then chunk and embed into the vector store. The vector ingest is
// best effort — a resume without retrievable chunks still interviews,
// just without personalized questions.
type ResumeService struct {
	Resumes    domain.ResumeRepository
	Context    domain.ResumeContextProvider
	Summarizer SummarizerService
}

// NewResumeService constructs a ResumeService with its dependencies.
func NewResumeService(resumes domain.ResumeRepository, rc domain.ResumeContextProvider, summarizer SummarizerService) ResumeService {
	return ResumeService{Resumes: resumes, Context: rc, Summarizer: summarizer}
}

// defaultSummaryRole colors the ingest-time summary; the concrete target
// role arrives later with the interview request.
const defaultSummaryRole = "Data Scientist"

// Ingest stores one resume and prepares it for interviewing.
func (s ResumeService) Ingest(ctx domain.Context, filename, text string) (domain.Resume, error) {
	clean := textx.SanitizeText(text)
	if clean == "" {
		return domain.Resume{}, fmt.Errorf("%w: resume text required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(filename) == "" {
		filename = "resume.txt"
	}

	summary := s.Summarizer.Summarize(ctx, clean, defaultSummaryRole)

	id, err := s.Resumes.Create(ctx, domain.Resume{Filename: filename, Text: clean, Summary: &summary})
	if err != nil {
		return domain.Resume{}, fmt.Errorf("op=resume.Ingest: %w", err)
	}

	chunks, err := s.Context.IngestResume(ctx, id, clean)
	if err != nil {
		slog.Error("resume vector ingest failed, continuing without retrieval",
			slog.String("resume_id", id), slog.Any("error", err))
	} else {
		slog.Info("resume ingested",
			slog.String("resume_id", id),
			slog.String("filename", filename),
			slog.Int("chunks", chunks))
	}

	return domain.Resume{ID: id, Filename: filename, Text: clean, Summary: &summary}, nil
}

// Get returns a stored resume row.
func (s ResumeService) Get(ctx domain.Context, id string) (domain.Resume, error) {
	if id == "" {
		return domain.Resume{}, fmt.Errorf("%w: resume id required", domain.ErrInvalidArgument)
	}
	r, err := s.Resumes.Get(ctx, id)
	if err != nil {
		return domain.Resume{}, fmt.Errorf("op=resume.Get: %w", err)
	}
	return r, nil
}
