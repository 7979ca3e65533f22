package api

import (
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	board := q.Get("board")
	if board == "" {
		board = curriculum.DefaultBoard
	}
	classLevel := curriculum.DefaultClassLevel
	if v := q.Get("class_level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, badRequest("class_level must be a positive integer"))
			return
		}
		classLevel = n
	}

	syllabus, ok := s.curriculum.Syllabus(board, classLevel)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no syllabus for " + board + " class " + strconv.Itoa(classLevel)})
		return
	}
	writeJSON(w, http.StatusOK, syllabus)
}

func (s *Server) handleBoards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"boards": s.curriculum.Boards()})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resources := s.curriculum.Resources(q.Get("subject_id"), curriculum.ResourceType(q.Get("type")))
	writeJSON(w, http.StatusOK, resources)
}
