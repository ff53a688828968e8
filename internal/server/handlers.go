package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/storage"
	"github.com/hyperjump/stemmaflat/internal/store"
)

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	entries, err := store.ReadSections(s.root)
	if errors.Is(err, os.ErrNotExist) {
		s.respondError(w, http.StatusNotFound, "no sections generated yet")
		return
	}
	if err != nil {
		s.logger.Error("read sections failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.respondError(w, http.StatusNotImplemented, "search not enabled")
		return
	}
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type runsResponse struct {
	Runs   []*storage.RunSummary `json:"runs"`
	Total  int64                 `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondError(w, http.StatusNotImplemented, "run history not enabled")
		return
	}
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)
	if offset < 0 || limit <= 0 || limit > 200 {
		s.respondError(w, http.StatusBadRequest, "invalid offset or limit")
		return
	}
	ctx := r.Context()
	runs, err := s.runs.ListReports(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.runs.CountReports(ctx)
	if err != nil {
		s.logger.Error("count runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.RunSummary{}
	}
	s.respondJSON(w, http.StatusOK, runsResponse{Runs: runs, Total: total, Offset: offset, Limit: limit})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondError(w, http.StatusNotImplemented, "run history not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.runs.GetReport(r.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"root": s.root}

	output, err := storage.DiskUsage(s.root)
	if err != nil {
		s.logger.Error("status: output disk usage failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp["output"] = output
	if len(s.statePaths) > 0 {
		if state, err := storage.DiskUsage(s.statePaths...); err == nil {
			resp["state"] = state
		}
	}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp["indexed_sections"] = n
		}
	}
	if s.runs != nil {
		if n, err := s.runs.CountReports(r.Context()); err == nil {
			resp["runs"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
