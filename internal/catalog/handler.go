package catalog

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/usmle-prep/backend/internal/generator"
	"github.com/usmle-prep/backend/internal/id"
	"github.com/usmle-prep/backend/internal/models"
)

// Handler serves the read-only catalog surface plus the authoring endpoints
// (import, generation, draft review) that feed the next catalog load.
type Handler struct {
	catalog *Catalog
	store   *Store
	gen     *generator.Generator
}

func NewHandler(catalog *Catalog, store *Store, gen *generator.Generator) *Handler {
	return &Handler{catalog: catalog, store: store, gen: gen}
}

// RegisterRoutes mounts the catalog endpoints on an authenticated subrouter.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/catalog/systems", h.ListSystems).Methods("GET")
	r.HandleFunc("/questions/import", h.ImportQuestions).Methods("POST")
	r.HandleFunc("/questions/generate", h.GenerateDrafts).Methods("POST")
	r.HandleFunc("/questions/drafts", h.ListDrafts).Methods("GET")
	r.HandleFunc("/questions/drafts/{id}/review", h.ReviewDraft).Methods("POST")
}

func (h *Handler) ListSystems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"systems":         h.catalog.Systems(),
		"total_questions": h.catalog.Len(),
	})
}

func (h *Handler) ImportQuestions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20) // 50MB limit

	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	if len(req.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No questions in payload"})
		return
	}

	result, err := h.store.ImportQuestions(req.Questions)
	if err != nil {
		log.Printf("[catalog] import error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Import failed"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GenerateDrafts(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.System == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "system is required"})
		return
	}
	if req.Count <= 0 {
		req.Count = 4
	}
	if req.Count > 10 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "count must be at most 10"})
		return
	}

	batch, usage, err := h.gen.GenerateBatch(r.Context(), req.System, req.Count)
	if err != nil {
		log.Printf("[catalog] generation error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Generation failed: " + err.Error()})
		return
	}

	resp := models.GenerateResponse{ModelUsed: h.gen.ModelName()}
	if usage != nil {
		resp.PromptTokens = usage.PromptTokens
		resp.OutputTokens = usage.OutputTokens
	}

	for _, gq := range batch.Questions {
		q := models.Question{
			ID:          "gen-" + id.GenerateID(),
			System:      req.System,
			Question:    gq.Question,
			Options:     gq.Options,
			Answer:      gq.Answer,
			Explanation: gq.Explanation,
		}
		draft, err := h.store.InsertDraft(q, h.gen.ModelName())
		if err != nil {
			log.Printf("[catalog] store draft error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to store drafts"})
			return
		}
		resp.Drafts = append(resp.Drafts, *draft)
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var status *models.DraftStatus
	if s := query.Get("status"); s != "" {
		ds := models.DraftStatus(s)
		if ds != models.DraftPending && ds != models.DraftApproved && ds != models.DraftRejected {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "status must be 'pending', 'approved', or 'rejected'"})
			return
		}
		status = &ds
	}

	limit := intQueryParam(query, "limit", 20)
	offset := intQueryParam(query, "offset", 0)

	drafts, err := h.store.ListDrafts(status, limit, offset)
	if err != nil {
		log.Printf("[catalog] list drafts error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list drafts"})
		return
	}

	if drafts == nil {
		drafts = []models.DraftQuestion{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (h *Handler) ReviewDraft(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	draftID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid draft ID"})
		return
	}

	var req models.DraftReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Action != "approve" && req.Action != "reject" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "action must be 'approve' or 'reject'"})
		return
	}

	err = h.store.ReviewDraft(draftID, req.Action == "approve")
	switch {
	case errors.Is(err, ErrDraftNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Draft not found"})
		return
	case errors.Is(err, ErrDraftAlreadyReviewed):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Draft has already been reviewed"})
		return
	case err != nil:
		log.Printf("[catalog] review draft error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to review draft"})
		return
	}

	status := string(models.DraftRejected)
	if req.Action == "approve" {
		status = string(models.DraftApproved)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
