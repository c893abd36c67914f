package usecase

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Raghav-madderla/AIMI/internal/config"
	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// fakeGateway scripts model behavior per test through closures and
// records every request it sees.
type fakeGateway struct {
	mu    sync.Mutex
	genFn func(req domain.GenerateRequest) (string, error)
	jsnFn func(req domain.GenerateRequest) (map[string]any, error)

	genCalls []domain.GenerateRequest
	jsnCalls []domain.GenerateRequest
}

func (f *fakeGateway) Generate(_ domain.Context, req domain.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.genCalls = append(f.genCalls, req)
	fn := f.genFn
	f.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("%w: no generate script", domain.ErrGeneration)
	}
	return fn(req)
}

func (f *fakeGateway) GenerateJSON(_ domain.Context, req domain.GenerateRequest) (map[string]any, error) {
	f.mu.Lock()
	f.jsnCalls = append(f.jsnCalls, req)
	fn := f.jsnFn
	f.mu.Unlock()
	if fn == nil {
		return map[string]any{}, nil
	}
	return fn(req)
}

func (f *fakeGateway) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// fakeResumeCtx serves canned retrieval results.
type fakeResumeCtx struct {
	byDomain  map[string][]string
	anyHits   []string
	queryErr  error
	ingestErr error

	domainQueries []string
	wideQueries   int
	ingested      []string
}

func (f *fakeResumeCtx) QueryByDomain(_ domain.Context, _, dom, _ string, _ int) ([]string, error) {
	f.domainQueries = append(f.domainQueries, dom)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.byDomain[dom], nil
}

func (f *fakeResumeCtx) Query(_ domain.Context, _, _ string, _ int) ([]string, error) {
	f.wideQueries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.anyHits, nil
}

func (f *fakeResumeCtx) IngestResume(_ domain.Context, resumeID, _ string) (int, error) {
	if f.ingestErr != nil {
		return 0, f.ingestErr
	}
	f.ingested = append(f.ingested, resumeID)
	return 3, nil
}

// memSessions is an in-memory SessionRepository.
type memSessions struct {
	mu   sync.Mutex
	seq  int
	rows map[string]domain.Session
}

func newMemSessions() *memSessions { return &memSessions{rows: map[string]domain.Session{}} }

func (m *memSessions) Create(_ domain.Context, s domain.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = fmt.Sprintf("sess-%d", m.seq)
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.rows[s.ID] = s
	return s.ID, nil
}

func (m *memSessions) Get(_ domain.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return s, nil
}

func (m *memSessions) UpdateState(_ domain.Context, id string, round domain.SessionRound, status domain.SessionStatus, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	s.Round = round
	s.Status = status
	s.State = append([]byte(nil), state...)
	s.UpdatedAt = time.Now().UTC()
	m.rows[id] = s
	return nil
}

// memResumes is an in-memory ResumeRepository.
type memResumes struct {
	mu   sync.Mutex
	seq  int
	rows map[string]domain.Resume
}

func newMemResumes() *memResumes { return &memResumes{rows: map[string]domain.Resume{}} }

func (m *memResumes) Create(_ domain.Context, r domain.Resume) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.ID = fmt.Sprintf("res-%d", m.seq)
	r.CreatedAt = time.Now().UTC()
	m.rows[r.ID] = r
	return r.ID, nil
}

func (m *memResumes) Get(_ domain.Context, id string) (domain.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return domain.Resume{}, fmt.Errorf("%w: resume %s", domain.ErrNotFound, id)
	}
	return r, nil
}

// memReports is an in-memory ReportRepository.
type memReports struct {
	mu   sync.Mutex
	rows map[string]domain.InterviewReport
}

func newMemReports() *memReports { return &memReports{rows: map[string]domain.InterviewReport{}} }

func (m *memReports) Upsert(_ domain.Context, sessionID string, r domain.InterviewReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[sessionID] = r
	return nil
}

func (m *memReports) GetBySessionID(_ domain.Context, sessionID string) (domain.InterviewReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[sessionID]
	if !ok {
		return domain.InterviewReport{}, fmt.Errorf("%w: report %s", domain.ErrNotFound, sessionID)
	}
	return r, nil
}

// memQueue records enqueued report payloads.
type memQueue struct {
	mu       sync.Mutex
	err      error
	payloads []domain.ReportTaskPayload
}

func (m *memQueue) EnqueueReport(_ domain.Context, p domain.ReportTaskPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.payloads = append(m.payloads, p)
	return fmt.Sprintf("task-%d", len(m.payloads)), nil
}

// fakeLocker hands out no-op leases, or conflicts when held is set.
type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *fakeLocker) Acquire(_ domain.Context, sessionID string, _ time.Duration) (domain.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, fmt.Errorf("%w: session %s locked", domain.ErrConflict, sessionID)
	}
	l.acquired++
	return func(domain.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func testVocab(t *testing.T) *config.Vocabulary {
	t.Helper()
	v, err := config.LoadVocabulary("")
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	return v
}
