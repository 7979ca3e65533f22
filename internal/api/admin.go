package api

import (
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/admin"
	"github.com/p-n-ai/pai-planner/internal/profile"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

func (s *Server) summaries() ([]admin.StudentSummary, error) {
	profiles, err := s.profiles.List()
	if err != nil {
		return nil, err
	}
	return admin.Summaries(profiles, s.now()), nil
}

func (s *Server) handleAdminStudents(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.summaries()
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, admin.Filter(summaries, q.Get("class"), q.Get("search")))
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.summaries()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admin.ComputeStats(summaries))
}

func (s *Server) handleAdminActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := profile.NormalizeEmail(q.Get("email"))
	if email == "" {
		writeError(w, r, badRequest("email is required"))
		return
	}
	limit := defaultActivityLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	if s.activity == nil {
		writeJSON(w, http.StatusOK, []activity.Event{})
		return
	}
	events, err := s.activity.Recent(email, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
