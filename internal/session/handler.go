package session

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/usmle-prep/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers session and progress endpoints on the protected
// subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/sessions", h.StartSession).Methods("POST")
	protected.HandleFunc("/sessions/current", h.GetSession).Methods("GET")
	protected.HandleFunc("/sessions/current", h.AbandonSession).Methods("DELETE")
	protected.HandleFunc("/sessions/current/answer", h.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/sessions/current/confidence", h.SetConfidence).Methods("POST")
	protected.HandleFunc("/sessions/current/mark", h.SetMarked).Methods("POST")
	protected.HandleFunc("/sessions/current/next", h.Advance).Methods("POST")
	protected.HandleFunc("/sessions/current/summary", h.GetSummary).Methods("GET")

	protected.HandleFunc("/progress", h.GetProgress).Methods("GET")
	protected.HandleFunc("/progress/stats", h.GetProgressStats).Methods("GET")
}

// getUsername extracts the authenticated username from the request context.
func getUsername(r *http.Request) (string, bool) {
	username, ok := r.Context().Value("username").(string)
	return username, ok && username != ""
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if !models.ValidModes[req.Mode] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "mode must be 'reading' or 'test'"})
		return
	}
	for _, f := range req.Filters {
		if !models.ValidStatusFilters[f] {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "filters must be 'unused', 'incorrect', or 'marked'"})
			return
		}
	}

	view, err := h.service.StartSession(username, req)
	if err != nil {
		h.writeServiceError(w, "StartSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	view, err := h.service.View(username)
	if err != nil {
		h.writeServiceError(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.service.Abandon(username); err != nil {
		h.writeServiceError(w, "AbandonSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.QuestionID == "" || req.Option == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_id and option are required"})
		return
	}

	view, err := h.service.SubmitAnswer(username, req)
	if err != nil {
		h.writeServiceError(w, "SubmitAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.ConfidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if !models.ValidConfidences[req.Level] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "level must be 'low', 'medium', or 'high'"})
		return
	}

	view, err := h.service.SetConfidence(username, req.Level)
	if err != nil {
		h.writeServiceError(w, "SetConfidence", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SetMarked(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	view, err := h.service.SetMarked(username, req.Marked)
	if err != nil {
		h.writeServiceError(w, "SetMarked", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	view, err := h.service.Advance(username)
	if err != nil {
		h.writeServiceError(w, "Advance", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	summary, err := h.service.Summary(username)
	if err != nil {
		h.writeServiceError(w, "GetSummary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	doc, err := h.service.Progress(username)
	if err != nil {
		h.writeServiceError(w, "GetProgress", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) GetProgressStats(w http.ResponseWriter, r *http.Request) {
	username, ok := getUsername(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	stats, err := h.service.Stats(username)
	if err != nil {
		h.writeServiceError(w, "GetProgressStats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeServiceError maps domain errors to statuses. Store failures are the
// only 500s — they are fatal to the operation and must not look like user
// mistakes.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInsufficientPool):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Not enough questions for these filters"})
	case errors.Is(err, ErrNoSession):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No active session"})
	case errors.Is(err, ErrSessionOver):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is over"})
	case errors.Is(err, ErrSessionNotOver):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is still in progress"})
	case errors.Is(err, ErrInvalidCount), errors.Is(err, ErrWrongQuestion),
		errors.Is(err, ErrInvalidOption), errors.Is(err, ErrNoFeedback):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[session] %s error: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
