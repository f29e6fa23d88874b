package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/openfunders/fundermatch/internal/engine"
	"github.com/openfunders/fundermatch/internal/storage"
	"github.com/openfunders/fundermatch/pkg/utils"
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req engine.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Candidate.Name == "" {
		s.respondError(w, http.StatusBadRequest, "candidate name is required")
		return
	}
	if req.Limit > s.config.Engine.MaxLimit {
		req.Limit = s.config.Engine.MaxLimit
	}
	s.logger.Debug("match request",
		zap.String("candidate", utils.Truncate(req.Candidate.Name, 80)),
		zap.Int("limit", req.Limit))

	response, err := s.engine.Match(r.Context(), &req)
	if err != nil {
		s.logger.Error("match failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearchFunders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := s.config.Engine.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > s.config.Engine.MaxLimit {
			n = s.config.Engine.MaxLimit
		}
		limit = n
	}

	results, err := s.index.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("funder search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

func (s *Server) handleGetFunder(w http.ResponseWriter, r *http.Request) {
	num := chi.URLParam(r, "num")
	funder, err := s.storage.GetFunder(r.Context(), num)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "funder not found")
			return
		}
		s.logger.Error("get funder failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, funder)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	num := chi.URLParam(r, "num")
	history, err := s.storage.LoadHistory(r.Context(), num)
	if err != nil {
		s.logger.Error("load history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.taxonomy.Areas())
}

func (s *Server) handleListCauses(w http.ResponseWriter, r *http.Request) {
	data, err := s.storage.LoadTaxonomy(r.Context())
	if err != nil {
		s.logger.Error("load taxonomy failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, data.Causes)
}

func (s *Server) handleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	data, err := s.storage.LoadTaxonomy(r.Context())
	if err != nil {
		s.logger.Error("load taxonomy failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, data.Beneficiaries)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.taxonomy.Tags())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	funderCount, err := s.storage.CountFunders(ctx)
	if err != nil {
		s.logger.Error("status: count funders failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	grantCount, err := s.storage.CountGrants(ctx)
	if err != nil {
		s.logger.Error("status: count grants failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	indexed, err := s.index.Count()
	if err != nil {
		s.logger.Error("status: index count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"funders":         funderCount,
		"grants":          grantCount,
		"indexed_funders": indexed,
		"areas":           len(s.taxonomy.Areas()),
		"tags":            len(s.taxonomy.Tags()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
