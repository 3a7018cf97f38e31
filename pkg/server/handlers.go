package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/gateway"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

// statusFor maps an error category to an HTTP status code.
func statusFor(category string) int {
	switch category {
	case gateway.CategoryValidation:
		return http.StatusBadRequest
	case gateway.CategoryUnknownTenant, gateway.CategoryUnknownModel:
		return http.StatusNotFound
	case gateway.CategoryCompliance, gateway.CategoryPromptRejected:
		return http.StatusUnprocessableEntity
	case gateway.CategoryCredits:
		return http.StatusPaymentRequired
	case gateway.CategoryProviderAuth:
		return http.StatusBadGateway
	case gateway.CategoryProviderRateLimit:
		return http.StatusTooManyRequests
	case gateway.CategoryProviderTransient, gateway.CategoryProviderVendor:
		return http.StatusBadGateway
	case gateway.CategoryCanceled:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	category := gateway.Category(err)
	status := statusFor(category)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs.
		msg = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: msg, Category: category})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decode parses a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 32<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &gateway.ValidationError{Field: "body", Message: "is not valid JSON: " + err.Error()}
	}
	return nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req gateway.ChatRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.gw.Chat(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req gateway.VisionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.gw.Vision(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req gateway.TranscribeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.gw.Transcribe(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req gateway.EmbedRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.gw.Embed(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// recoverMiddleware converts handler panics into 500 responses.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeError(w, errors.New("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
