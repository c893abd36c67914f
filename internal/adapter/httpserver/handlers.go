package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Raghav-madderla/AIMI/internal/config"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/internal/usecase"
	"github.com/gabriel-vasile/mimetype"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Resumes  usecase.ResumeService
	Sessions usecase.SessionService

	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
	QdrantCheck func(ctx context.Context) error
	KafkaCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, resumes usecase.ResumeService, sessions usecase.SessionService, dbCheck, redisCheck, qdrantCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Resumes: resumes, Sessions: sessions, DBCheck: dbCheck, RedisCheck: redisCheck, QdrantCheck: qdrantCheck, KafkaCheck: kafkaCheck}
}

// allowedExt enforces the upload allowlist: plain-text resumes only
// (.txt, .md). Binary formats need an extraction service this API does
// not carry.
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".txt") || strings.HasSuffix(n, ".md")
}

// allowedMIMEFor accepts any text/* detection; sniffers disagree on
// whether markdown is text/plain or text/markdown.
func allowedMIMEFor(m string) bool {
	return strings.HasPrefix(strings.ToLower(m), "text/")
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// negotiateJSON rejects requests that refuse JSON responses. Returns
// false after writing 406.
func negotiateJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{Code: "NOT_ACCEPTABLE", Message: "only application/json responses supported", Details: map[string]any{"accept": a}}})
	return false
}

func isBodyTooLarge(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "too large")
}

func validationDetails(err error) map[string]string {
	verrs := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			verrs[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return verrs
}

// ResumeUploadHandler ingests one resume, as a multipart file upload or
// as a JSON body with the text inline.
func (s *Server) ResumeUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !negotiateJSON(w, r) {
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		var filename, text string
		if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(maxBytes); err != nil {
				if isBodyTooLarge(err) {
					writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "PAYLOAD_TOO_LARGE", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB}}})
					return
				}
				writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			file, header, err := r.FormFile("resume")
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
				return
			}
			defer func() { _ = file.Close() }()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: resume read: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			if !allowedExt(header.Filename) {
				writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "unsupported media type (extension)", Details: map[string]any{"filename": header.Filename}}})
				return
			}
			mt := mimetype.Detect(data)
			if !allowedMIMEFor(mt.String()) {
				writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "unsupported media type (content)", Details: map[string]any{"mime": mt.String(), "filename": header.Filename}}})
				return
			}
			filename, text = header.Filename, string(data)
		} else {
			var req struct {
				Filename string `json:"filename"`
				Text     string `json:"text" validate:"required"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				if isBodyTooLarge(err) {
					writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "PAYLOAD_TOO_LARGE", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB}}})
					return
				}
				writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
				return
			}
			if err := getValidator().Struct(req); err != nil {
				writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
				return
			}
			filename, text = req.Filename, req.Text
		}

		res, err := s.Resumes.Ingest(r.Context(), filename, text)
		if err != nil {
			writeError(w, r, fmt.Errorf("resume ingest: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"resume_id": res.ID, "filename": res.Filename, "summary": res.Summary})
	}
}

// StartInterviewHandler creates an interview session against an ingested
// resume and returns the welcome message.
func (s *Server) StartInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !negotiateJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			ResumeID       string `json:"resume_id" validate:"required"`
			JobRole        string `json:"job_role" validate:"required,max=200"`
			TotalQuestions int    `json:"total_questions" validate:"omitempty,min=1,max=20"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		out, err := s.Sessions.StartInterview(r.Context(), req.ResumeID, req.JobRole, req.TotalQuestions)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": out.SessionID, "message": out.Message, "status": out.Status})
	}
}

// SubmitAnswerHandler feeds one candidate message to a session: the
// welcome confirmation while gated, interview answers afterwards.
func (s *Server) SubmitAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !negotiateJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateSessionID(id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Answer string `json:"answer" validate:"required"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		out, err := s.Sessions.SubmitAnswer(r.Context(), id, req.Answer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := map[string]any{"session_id": out.SessionID, "status": out.Status, "completed": out.Completed}
		if out.Message != "" {
			resp["message"] = out.Message
		}
		if out.Question != "" {
			resp["next_question"] = out.Question
		}
		if out.Evaluation != nil {
			resp["evaluation"] = out.Evaluation
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// GetSessionHandler returns the session row plus engine progress.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !negotiateJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateSessionID(id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		sess, err := s.Sessions.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := map[string]any{
			"session_id": sess.ID,
			"resume_id":  sess.ResumeID,
			"job_role":   sess.JobRole,
			"round":      sess.Round,
			"status":     sess.Status,
			"created_at": sess.CreatedAt,
			"updated_at": sess.UpdatedAt,
		}
		if state, err := domain.UnmarshalState(sess.State); err == nil {
			resp["progress"] = map[string]any{
				"phase":            state.Phase,
				"difficulty":       state.Difficulty,
				"questions_asked":  state.QuestionCount,
				"answers_received": len(state.UserAnswers),
				"total_questions":  state.TotalQuestions,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ReportHandler returns the synthesized report for a finished session.
// 202 while the worker is still writing it, 409 while the interview runs.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !negotiateJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if vr := ValidateSessionID(id); !vr.Valid {
			writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), vr.Errors)
			return
		}
		rep, ready, err := s.Sessions.GetReport(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if !ready {
			writeJSON(w, http.StatusAccepted, map[string]any{"session_id": rep.SessionID, "job_role": rep.JobRole, "message": rep.Message})
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// ReadyzHandler probes DB, Redis, Qdrant and the Kafka brokers.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"qdrant", s.QdrantCheck},
			{"kafka", s.KafkaCheck},
		}
		checks := make([]check, 0, len(probes))
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: p.name, OK: true})
			}
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
