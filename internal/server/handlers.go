package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/compass-ml/compkb/internal/model"
	"github.com/compass-ml/compkb/internal/store"
)

func (s *Server) handleListCompetitions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.CompetitionFilter{
		Status:    model.CompetitionStatus(q.Get("status")),
		Domain:    q.Get("domain"),
		Metrics:   queryList(r, "metrics"),
		DataTypes: queryList(r, "data_types"),
		TaskTypes: queryList(r, "task_types"),
		Tags:      queryList(r, "tags"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		Order:     q.Get("order"),
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 20),
	}
	if raw := q.Get("is_favorite"); raw != "" {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_favorite must be a boolean")
			return
		}
		filter.IsFavorite = &fav
	}
	switch filter.Status {
	case "", model.StatusActive, model.StatusCompleted, model.StatusUpcoming:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	page, err := s.store.ListCompetitions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleNewCompetitions(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListNewCompetitions(r.Context(),
		queryInt(r, "days", 30), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

func (s *Server) handleGetCompetition(w http.ResponseWriter, r *http.Request) {
	comp, err := s.store.GetCompetition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if comp == nil {
		writeError(w, http.StatusNotFound, "competition not found")
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	comp, err := s.store.GetCompetition(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if comp == nil {
		writeError(w, http.StatusNotFound, "competition not found")
		return
	}

	target := !comp.IsFavorite
	deleted, err := s.store.SetFavorite(r.Context(), id, target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "favorite update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_favorite":         target,
		"deleted_discussions": deleted,
	})
}

func (s *Server) handleListDiscussions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.store.ListDiscussions(r.Context(), chi.URLParam(r, "id"),
		q.Get("sort_by"), q.Get("order"), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

func (s *Server) handleListSolutions(w http.ResponseWriter, r *http.Request) {
	s.listSolutions(w, r, model.SolutionTypeDiscussion)
}

func (s *Server) handleListNotebooks(w http.ResponseWriter, r *http.Request) {
	s.listSolutions(w, r, model.SolutionTypeNotebook)
}

func (s *Server) listSolutions(w http.ResponseWriter, r *http.Request, typ model.SolutionType) {
	q := r.URL.Query()
	list, err := s.store.ListSolutions(r.Context(), chi.URLParam(r, "id"), typ,
		q.Get("sort_by"), q.Get("order"), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// requireCompetition resolves the {id} route param to a competition, writing
// the 404 itself when absent.
func (s *Server) requireCompetition(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	comp, err := s.store.GetCompetition(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return "", false
	}
	if comp == nil {
		writeError(w, http.StatusNotFound, "competition not found")
		return "", false
	}
	return id, true
}

func (s *Server) handleFetchDiscussions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireCompetition(w, r)
	if !ok {
		return
	}
	counters, err := s.orch.IngestDiscussions(r.Context(), id, queryInt(r, "pages", 3))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

func (s *Server) handleFetchSolutions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireCompetition(w, r)
	if !ok {
		return
	}
	enableAI, _ := strconv.ParseBool(r.URL.Query().Get("enable_ai"))
	counters, err := s.orch.FetchSolutions(r.Context(), id, enableAI)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

func (s *Server) handleFetchNotebooks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireCompetition(w, r)
	if !ok {
		return
	}
	counters, err := s.orch.FetchNotebooks(r.Context(), id, queryInt(r, "pages", 1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notebooks": counters})
}

func (s *Server) handleFetchData(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireCompetition(w, r)
	if !ok {
		return
	}
	if err := s.orch.Enrich(r.Context(), id, true); err != nil {
		writeError(w, http.StatusInternalServerError, "data enrichment failed")
		return
	}
	comp, err := s.store.GetCompetition(r.Context(), id)
	if err != nil || comp == nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dataset_info": comp.DatasetInfo})
}

func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireCompetition(w, r)
	if !ok {
		return
	}
	if err := s.orch.Enrich(r.Context(), id, false); err != nil {
		writeError(w, http.StatusInternalServerError, "enrichment failed")
		return
	}
	comp, err := s.store.GetCompetition(r.Context(), id)
	if err != nil || comp == nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

func (s *Server) handleGetDiscussion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be numeric")
		return
	}
	d, err := s.store.GetDiscussion(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "discussion not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDiscussionContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be numeric")
		return
	}
	content, ok := s.orch.DiscussionContent(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "content not cached, trigger a fetch first")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleFetchDiscussionDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be numeric")
		return
	}
	d, err := s.store.GetDiscussion(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "discussion not found")
		return
	}
	if err := s.orch.FetchDiscussionDetail(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "fetch failed")
		return
	}
	d, err = s.store.GetDiscussion(r.Context(), id)
	if err != nil || d == nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSolutionContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be numeric")
		return
	}
	content, ok := s.orch.SolutionContent(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "content not cached, trigger a fetch first")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// requireSolution resolves the numeric {id} to a solution, writing 400/404
// itself on failure.
func (s *Server) requireSolution(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id must be numeric")
		return 0, false
	}
	sol, err := s.store.GetSolution(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return 0, false
	}
	if sol == nil {
		writeError(w, http.StatusNotFound, "solution not found")
		return 0, false
	}
	return id, true
}

func (s *Server) handleFetchSolutionDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSolution(w, r)
	if !ok {
		return
	}
	if err := s.orch.FetchSolutionDetail(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "fetch failed")
		return
	}
	sol, err := s.store.GetSolution(r.Context(), id)
	if err != nil || sol == nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleSummarizeSolution(w http.ResponseWriter, r *http.Request) {
	s.handleFetchSolutionDetail(w, r)
}

func (s *Server) handleSummarizeNotebook(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSolution(w, r)
	if !ok {
		return
	}
	if err := s.orch.SummarizeNotebook(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "summarize failed")
		return
	}
	sol, err := s.store.GetSolution(r.Context(), id)
	if err != nil || sol == nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	category := model.TagCategory(r.URL.Query().Get("category"))
	tags, err := s.store.ListTags(r.Context(), category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	if group, _ := strconv.ParseBool(r.URL.Query().Get("group_by_category")); group {
		grouped := map[model.TagCategory][]model.Tag{}
		for _, t := range tags {
			grouped[t.Category] = append(grouped[t.Category], t)
		}
		writeJSON(w, http.StatusOK, grouped)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tags, "total": len(tags)})
}
