package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// Sessions drives interactive step-wise translations.
type Sessions interface {
	Start(req domain.SessionRequest) (*domain.Session, error)
	Get(id string) (*domain.Session, error)
	Next(id string) (*domain.Session, error)
	AddFeedback(id string, fb domain.SessionFeedback) (*domain.Session, error)
	Finalize(id string) (*domain.SessionResult, error)
}

// WithSessions enables the /sessions routes.
func (s *Server) WithSessions(sessions Sessions) *Server {
	s.sessions = sessions
	if sessions != nil {
		s.capabilities.Endpoints["sessions"] = apiPrefix + "/sessions"
	}
	return s
}

type sessionRequest struct {
	SourceCode        *string `json:"source_code"`
	SourceLanguage    string  `json:"source_language"`
	Filename          string  `json:"filename"`
	StepSize          string  `json:"step_size"`
	VerificationLevel string  `json:"verification_level"`
}

type feedbackRequest struct {
	Step    int    `json:"step"`
	Type    string `json:"feedback_type"`
	Content string `json:"content"`
}

func (s *Server) mountSessions(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Use(s.requireSessions)
		r.Get("/{id}", s.handleSessionGet)
		r.Group(func(r chi.Router) {
			r.Use(s.limitBody)
			r.Post("/", s.handleSessionStart)
			r.Post("/{id}/next", s.handleSessionNext)
			r.Post("/{id}/feedback", s.handleSessionFeedback)
			r.Post("/{id}/finalize", s.handleSessionFinalize)
		})
	})
}

func (s *Server) requireSessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			s.writeError(w, r, apperrors.NewAppError("interactive sessions are disabled", apperrors.CodeNotFound, http.StatusNotFound, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.SourceCode == nil {
		s.writeError(w, r, apperrors.NewValidationError("source_code is required", "source_code", nil))
		return
	}

	session, err := s.sessions.Start(domain.SessionRequest{
		SourceCode:        *body.SourceCode,
		DeclaredLanguage:  body.SourceLanguage,
		Filename:          body.Filename,
		StepSize:          domain.StepSize(body.StepSize),
		VerificationLevel: domain.VerificationLevel(body.VerificationLevel),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionNext(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Next(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.sessions.AddFeedback(chi.URLParam(r, "id"), domain.SessionFeedback{
		Step:    body.Step,
		Type:    domain.FeedbackType(body.Type),
		Content: body.Content,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionFinalize(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.Finalize(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
