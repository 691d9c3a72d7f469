package server

import (
	"net/http"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

type capabilitiesResponse struct {
	Name               string            `json:"name"`
	Version            string            `json:"version"`
	TargetLanguage     string            `json:"target_language"`
	SupportedLanguages []string          `json:"supported_languages"`
	Capabilities       []string          `json:"capabilities"`
	Endpoints          map[string]string `json:"endpoints"`
}

func buildCapabilities(registry Registry) capabilitiesResponse {
	return capabilitiesResponse{
		Name:               constants.Service.Name,
		Version:            constants.Service.Version,
		TargetLanguage:     registry.Target().Language,
		SupportedLanguages: registry.SupportedLanguages(),
		Capabilities:       append([]string(nil), constants.Capabilities...),
		Endpoints: map[string]string{
			"translate": apiPrefix + "/translate",
			"analyze":   apiPrefix + "/analyze",
			"verify":    apiPrefix + "/verify",
			"watch":     apiPrefix + "/ws/translate",
			"stats":     apiPrefix + "/stats",
		},
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type translateRequest struct {
	SourceCode     *string                  `json:"source_code"`
	SourceLanguage string                   `json:"source_language"`
	TargetLanguage string                   `json:"target_language"`
	Filename       string                   `json:"filename"`
	Options        *domain.TranslateOptions `json:"options"`
}

func (t translateRequest) toDomain(id string) (domain.TranslateRequest, error) {
	if t.SourceCode == nil {
		return domain.TranslateRequest{}, apperrors.NewValidationError("source_code is required", "source_code", nil)
	}
	return domain.TranslateRequest{
		ID:               id,
		SourceCode:       *t.SourceCode,
		DeclaredLanguage: t.SourceLanguage,
		TargetLanguage:   t.TargetLanguage,
		Filename:         t.Filename,
		Options:          t.Options,
	}, nil
}

type analyzeRequest struct {
	Code         *string `json:"code"`
	Language     string  `json:"language"`
	AnalysisType string  `json:"analysis_type"`
}

type verifyRequest struct {
	Code *string `json:"code"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":         constants.Service.Name,
		"version":      constants.Service.Version,
		"capabilities": apiPrefix + "/capabilities",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: constants.Service.HealthName,
		Version: constants.Service.Version,
	})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.capabilities)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, r, apperrors.NewAppError("statistics are disabled", apperrors.CodeNotFound, http.StatusNotFound, nil))
		return
	}
	snap, err := s.stats.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body translateRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := body.toDomain(RequestIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.pipeline.Translate(r.Context(), req, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Code == nil {
		s.writeError(w, r, apperrors.NewValidationError("code is required", "code", nil))
		return
	}

	analysisType := domain.AnalysisType(util.Normalize(body.AnalysisType))
	report, err := s.pipeline.Analyze(r.Context(), *body.Code, body.Language, analysisType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Code == nil {
		s.writeError(w, r, apperrors.NewValidationError("code is required", "code", nil))
		return
	}

	report, err := s.pipeline.Verify(r.Context(), *body.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperrors.NewAppError("route not found: "+r.URL.Path, apperrors.CodeNotFound, http.StatusNotFound, nil))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperrors.NewAppError("method not allowed: "+r.Method, apperrors.CodeMethodNotAllowed, http.StatusMethodNotAllowed, nil))
}
