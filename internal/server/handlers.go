package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/remote"
	"github.com/nocdn/volumes/internal/storage"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, healthzResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := bookmark.SnapshotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	items, err := s.repo.List(r.Context(), limit)
	if err != nil {
		s.log.Error("list bookmarks failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, remote.ListResponse{Items: items})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft bookmark.Draft
	if !decodeBody(w, r, &draft) {
		return
	}
	item, err := s.repo.Create(r.Context(), draft)
	if err != nil {
		s.storageError(w, "create", "", err)
		return
	}
	s.log.Info("bookmark created",
		logger.String("id", item.ID),
		logger.String("url", item.URL))
	writeJSON(w, http.StatusCreated, remote.CreateResponse{ID: item.ID})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch bookmark.Patch
	if !decodeBody(w, r, &patch) {
		return
	}
	var err error
	if patch.Empty() {
		_, err = s.repo.Get(r.Context(), id)
	} else {
		_, err = s.repo.Update(r.Context(), id, patch)
	}
	if err != nil {
		s.storageError(w, "update", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.repo.Delete(r.Context(), id); err != nil {
		s.storageError(w, "delete", id, err)
		return
	}
	s.log.Info("bookmark deleted", logger.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// handleMetadata never fails on an unreachable page: the client falls back
// to its own placeholder title when the result is empty.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	var title string
	if s.extractor != nil {
		t, err := s.extractor.Extract(r.Context(), raw)
		if err != nil {
			s.log.Warn("metadata extraction failed",
				logger.String("url", raw),
				logger.Error(err))
		} else {
			title = t
		}
	}
	writeJSON(w, http.StatusOK, remote.MetadataResponse{Title: title})
}

func (s *Server) storageError(w http.ResponseWriter, op, id string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "bookmark not found")
	case errors.Is(err, storage.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error(op+" bookmark failed",
			logger.String("id", id),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorResponse{Error: msg})
}
