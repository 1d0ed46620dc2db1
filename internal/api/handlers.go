package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asibalo/netflix-critic/internal/critic"
	"github.com/asibalo/netflix-critic/internal/stream"
)

// titlesSubmittedResponse echoes the submission back to the caller so it
// can see which identifiers survived deduplication.
type titlesSubmittedResponse struct {
	JobID                 string `json:"job_id"`
	PayloadSent           []int  `json:"payload_sent"`
	ActualPayloadToSubmit []int  `json:"actual_payload_to_submit"`
}

// submitTitles registers a batch of Netflix identifiers under a new job
// ID. The request body is a bare JSON array of integers.
func (s *Server) submitTitles(w http.ResponseWriter, r *http.Request) {
	var payload []int
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate job id failed", s.logger)
		return
	}
	accepted := s.jobs.Add(jobID, payload)

	writeJSON(w, http.StatusOK, titlesSubmittedResponse{
		JobID:                 jobID,
		PayloadSent:           payload,
		ActualPayloadToSubmit: accepted,
	}, s.logger)
}

// streamJob enriches every identifier of a job and pushes one SSE frame
// per identifier in completion order.
func (s *Server) streamJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	ids, ok := s.jobs.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found", s.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", s.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := stream.NewEncoder(w, flusher.Flush)
	if err := s.orch.Stream(r.Context(), jobID, ids, enc); err != nil {
		// The connection is already committed to SSE; nothing to send.
		s.logger.Warn("enrichment stream ended early",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}

// getTitle returns one persisted title keyed by its Netflix identifier.
func (s *Server) getTitle(w http.ResponseWriter, r *http.Request) {
	titleID, err := strconv.Atoi(chi.URLParam(r, "title_id"))
	if err != nil || titleID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid title id", s.logger)
		return
	}

	title, err := s.store.GetTitle(r.Context(), titleID)
	if err != nil {
		if errors.Is(err, critic.ErrTitleNotFound) {
			writeError(w, http.StatusNotFound, "title not found", s.logger)
			return
		}
		s.logger.Error("title lookup failed",
			zap.Int("netflix_id", titleID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "title lookup failed", s.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[int]critic.StoredTitle{title.NetflixID: title}, s.logger)
}
