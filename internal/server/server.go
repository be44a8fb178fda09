// Package server exposes the translate pipeline over HTTP (§6).
package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/doctranslate/internal/errorclass"
	"github.com/local/doctranslate/internal/metrics"
	"github.com/local/doctranslate/internal/progress"
	"github.com/local/doctranslate/internal/request"
)

// Server wires the pipeline to its HTTP surface.
type Server struct {
	Pipeline      *request.Pipeline
	ProgressStore *progress.Store
}

// New builds a Server around the given pipeline.
func New(pipeline *request.Pipeline) *Server {
	return &Server{Pipeline: pipeline, ProgressStore: pipeline.ProgressStore}
}

// RegisterRoutes registers the translate surface on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/translate", s.handleTranslate)
	mux.HandleFunc("/progress/", s.handleProgress)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.Handler().ServeHTTP(w, r)
	})
}

type translateRequest struct {
	DOCXBase64     string `json:"docx_base64"`
	FileName       string `json:"file_name"`
	TargetLanguage string `json:"target_language"`
	Model          string `json:"model,omitempty"`
	Credentials    string `json:"credentials,omitempty"`
	ProgressID     string `json:"progress_id,omitempty"`
}

type translateStats struct {
	ParagraphCount int     `json:"paragraph_count"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	EstimatedCost  float64 `json:"estimated_cost"`
}

type translateResponse struct {
	TranslatedDOCXBase64 string         `json:"translated_docx_base64"`
	LogBuffer            []string       `json:"log_buffer"`
	Stats                translateStats `json:"stats"`
	ProgressID           string         `json:"progress_id"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.DOCXBase64 == "" || req.TargetLanguage == "" {
		http.Error(w, "missing docx_base64 or target_language", http.StatusBadRequest)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.DOCXBase64)
	if err != nil {
		http.Error(w, "docx_base64 is not valid base64", http.StatusBadRequest)
		return
	}

	progressID := req.ProgressID
	if progressID == "" {
		progressID = uuid.NewString()
	}

	out, err := s.Pipeline.Run(r.Context(), request.Input{
		DOCXBytes:      raw,
		FileName:       req.FileName,
		TargetLanguage: req.TargetLanguage,
		Model:          req.Model,
		Credentials:    req.Credentials,
		ProgressID:     progressID,
	})
	if err != nil {
		if _, ok := err.(*errorclass.ValidationError); ok {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("progress_id", progressID).Msg("translate request failed")
		http.Error(w, "translation failed", http.StatusInternalServerError)
		return
	}

	resp := translateResponse{
		TranslatedDOCXBase64: base64.StdEncoding.EncodeToString(out.DOCXBytes),
		LogBuffer:            out.Logs,
		Stats: translateStats{
			ParagraphCount: out.ParagraphCount,
			InputTokens:    out.Usage.InputTokens,
			OutputTokens:   out.Usage.OutputTokens,
			TotalTokens:    out.Usage.TotalTokens,
			EstimatedCost:  out.Usage.EstimatedCost,
		},
		ProgressID: progressID,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/progress/"):]
	if id == "" || s.ProgressStore == nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	rec, ok := s.ProgressStore.Get(id)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
