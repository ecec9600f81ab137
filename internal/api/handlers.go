package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f := queue.ListFilter{
		Status: domain.DraftStatus(r.URL.Query().Get("status")),
		Tier:   domain.Tier(r.URL.Query().Get("tier")),
	}
	if f.Status != "" && !f.Status.Valid() {
		respondError(w, http.StatusBadRequest, "unknown status "+string(f.Status))
		return
	}
	if f.Tier != "" && !f.Tier.Valid() {
		respondError(w, http.StatusBadRequest, "unknown tier "+string(f.Tier))
		return
	}
	if v := r.URL.Query().Get("needs_review"); v != "" {
		needs := v == "true" || v == "1"
		f.NeedsReview = &needs
	}

	drafts, err := s.queue.List(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if drafts == nil {
		drafts = []domain.Draft{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"drafts": drafts,
		"count":  len(drafts),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.queue.Summarize(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := s.queue.Get(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	log, err := s.queue.AuditLog(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	if log == nil {
		log = []queue.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"audit": log})
}

type actionRequest struct {
	Actor   string      `json:"actor"`
	Reason  string      `json:"reason"`
	Tier    domain.Tier `json:"tier"`
	Confirm bool        `json:"confirm"`
}

func decodeAction(r *http.Request) actionRequest {
	var req actionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req := decodeAction(r)
	d, err := s.queue.Approve(r.Context(), chi.URLParam(r, "draftID"), req.Actor)
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	req := decodeAction(r)
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}
	d, err := s.queue.Reject(r.Context(), chi.URLParam(r, "draftID"), req.Reason, req.Actor)
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleApproveAll(w http.ResponseWriter, r *http.Request) {
	req := decodeAction(r)
	if req.Tier != "" && !req.Tier.Valid() {
		respondError(w, http.StatusBadRequest, "unknown tier "+string(req.Tier))
		return
	}

	var n int
	var err error
	if req.Tier != "" {
		n, err = s.queue.ApproveByTier(r.Context(), req.Tier, req.Actor)
	} else {
		n, err = s.queue.ApproveAllPending(r.Context(), req.Actor)
	}
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"approved": n})
}

func (s *Server) handleRejectAll(w http.ResponseWriter, r *http.Request) {
	req := decodeAction(r)
	if req.Reason == "" {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}
	n, err := s.queue.RejectAllPending(r.Context(), req.Reason, req.Actor)
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"rejected": n})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	req := decodeAction(r)
	if !req.Confirm {
		respondError(w, http.StatusBadRequest, queue.ErrConfirmRequired.Error())
		return
	}
	if s.rebuild == nil {
		respondError(w, http.StatusServiceUnavailable, "regeneration is not configured")
		return
	}

	drafts, err := s.rebuild(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	removed, err := s.queue.Regenerate(r.Context(), true, drafts, req.Actor)
	if err != nil {
		s.respondQueueError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"removed": removed,
		"loaded":  len(drafts),
	})
}

func (s *Server) respondQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, queue.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, queue.ErrConfirmRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.WithError(err).Error("queue operation failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
