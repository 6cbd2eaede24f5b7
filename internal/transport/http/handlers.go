package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"forest-valley-trail/internal/app"
	"forest-valley-trail/internal/domain"
)

// Handler exposes the trail use cases over REST. Clients identify the device
// with an X-Device-ID header (or a deviceId query parameter).
type Handler struct {
	service *app.TrailService
}

func NewHandler(service *app.TrailService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/nations", h.nations)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("POST /api/trail/start", h.startTrail)
	mux.HandleFunc("GET /api/trail/checkpoints/{id}", h.checkpoint)
	mux.HandleFunc("POST /api/trail/checkpoints/{id}/answer", h.submitAnswer)
	mux.HandleFunc("POST /api/trail/finish", h.finishTrail)
	mux.HandleFunc("POST /api/survey", h.survey)
}

// checkpointView is the client-facing question: the accepted answer set is
// only revealed through a settled verdict.
type checkpointView struct {
	ID          int          `json:"id"`
	Question    string       `json:"question"`
	Options     []string     `json:"options"`
	MultiSelect bool         `json:"multiSelect"`
	Location    string       `json:"location"`
	Story       domain.Story `json:"story"`
	Total       int          `json:"total"`
}

type startRequest struct {
	Nation string `json:"nation"`
}

type startResponse struct {
	Nation      domain.Nation      `json:"nation"`
	Score       int                `json:"score"`
	Checkpoints int                `json:"checkpoints"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

type answerRequest struct {
	Selection []string `json:"selection"`
}

type checkpointResponse struct {
	Checkpoint checkpointView `json:"checkpoint"`
	Verdict    domain.Verdict `json:"verdict"`
}

func (h *Handler) nations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Nations())
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) startTrail(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceID(r)
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing device id")
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Nation == "" {
		writeError(w, http.StatusBadRequest, "missing nation")
		return
	}

	session, err := h.service.StartTrail(r.Context(), deviceID, req.Nation)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	checkpoints, err := h.service.Checkpoints(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trail unavailable")
		return
	}
	lb, err := h.service.Leaderboard(r.Context())
	if err != nil {
		// The landing board is decoration; a fresh run must not fail on it.
		lb = domain.Leaderboard{}
	}
	writeJSON(w, http.StatusCreated, startResponse{
		Nation:      session.Nation,
		Score:       session.Score,
		Checkpoints: len(checkpoints),
		Leaderboard: lb,
	})
}

func (h *Handler) checkpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := checkpointID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown checkpoint")
		return
	}

	checkpoints, err := h.service.Checkpoints(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trail unavailable")
		return
	}
	var view checkpointView
	found := false
	for _, cp := range checkpoints {
		if cp.ID == id {
			view = checkpointView{
				ID:          cp.ID,
				Question:    cp.Question,
				Options:     cp.Options,
				MultiSelect: cp.MultiSelect,
				Location:    cp.Location,
				Story:       cp.Story,
				Total:       len(checkpoints),
			}
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown checkpoint")
		return
	}

	// A device without a session still gets the question, with a blank verdict,
	// so a cleared client degrades to a fresh view instead of an error page.
	verdict := domain.Verdict{CheckpointID: id}
	if did := deviceID(r); did != "" {
		restored, err := h.service.Restore(r.Context(), did, id)
		if err == nil {
			verdict = restored
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusInternalServerError, "checkpoint unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, checkpointResponse{Checkpoint: view, Verdict: verdict})
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceID(r)
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing device id")
		return
	}
	id, ok := checkpointID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown checkpoint")
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer payload")
		return
	}

	verdict, err := h.service.SubmitAnswer(r.Context(), deviceID, id, req.Selection)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) finishTrail(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceID(r)
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "missing device id")
		return
	}

	result, err := h.service.FinalizeRun(r.Context(), deviceID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) survey(w http.ResponseWriter, r *http.Request) {
	var response domain.SurveyResponse
	if err := json.NewDecoder(r.Body).Decode(&response); err != nil {
		writeError(w, http.StatusBadRequest, "invalid survey payload")
		return
	}

	// Best-effort by contract: a storage failure never reaches the visitor.
	if err := h.service.SubmitSurvey(r.Context(), response); err != nil {
		log.Printf("survey submission dropped: %v", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "trail not started")
	case errors.Is(err, domain.ErrNationNotFound):
		writeError(w, http.StatusNotFound, "unknown nation")
	case errors.Is(err, domain.ErrCheckpointNotFound):
		writeError(w, http.StatusNotFound, "unknown checkpoint")
	case errors.Is(err, domain.ErrEmptySelection):
		writeError(w, http.StatusBadRequest, "empty selection")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func deviceID(r *http.Request) string {
	if id := r.Header.Get("X-Device-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("deviceId")
}

func checkpointID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
