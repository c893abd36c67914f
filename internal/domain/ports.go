package domain

import "time"

// GenerateRequest is one text-generation call to the upstream model.
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// LanguageModelGateway (port)
//
// The upstream is unreliable: callers must tolerate empty text, prompt
// echo, sentinel tokens and non-JSON prose. GenerateJSON returns an empty
// map, not an error, when no object can be recovered.
type LanguageModelGateway interface {
	Generate(ctx Context, req GenerateRequest) (string, error)
	GenerateJSON(ctx Context, req GenerateRequest) (map[string]any, error)
	Embed(ctx Context, texts []string) ([][]float32, error)
}

// ResumeContextProvider (port)
//
// Retrieval over ingested resume chunks. Queries return ranked snippet
// texts, possibly empty; callers degrade a failed query to empty context
// rather than failing the interview.
type ResumeContextProvider interface {
	QueryByDomain(ctx Context, resumeID, domain, query string, topK int) ([]string, error)
	Query(ctx Context, resumeID, query string, topK int) ([]string, error)
	IngestResume(ctx Context, resumeID, text string) (int, error)
}

// DomainVocabulary (port)
//
// The fixed, deployment-configured set of allowed domain labels. Model
// output not in the vocabulary is discarded, never silently renamed;
// Canonical only normalizes casing of known labels.
type DomainVocabulary interface {
	Canonical(label string) (string, bool)
	Labels() []string
	Defaults() []string
}

// Repositories (ports)

type ResumeRepository interface {
	Create(ctx Context, r Resume) (string, error)
	Get(ctx Context, id string) (Resume, error)
}

type SessionRepository interface {
	Create(ctx Context, s Session) (string, error)
	Get(ctx Context, id string) (Session, error)
	UpdateState(ctx Context, id string, round SessionRound, status SessionStatus, state []byte) error
}

type ReportRepository interface {
	Upsert(ctx Context, sessionID string, report InterviewReport) error
	GetBySessionID(ctx Context, sessionID string) (InterviewReport, error)
}

// ReportQueue (port)

type ReportQueue interface {
	EnqueueReport(ctx Context, payload ReportTaskPayload) (string, error)
}

// UnlockFunc releases a held session lock.
type UnlockFunc func(ctx Context) error

// SessionLocker (port)
//
// Serializes engine ticks per session across replicas. Acquire returns
// ErrConflict when the lease is already held.
type SessionLocker interface {
	Acquire(ctx Context, sessionID string, ttl time.Duration) (UnlockFunc, error)
}
