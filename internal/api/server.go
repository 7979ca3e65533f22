// Package api serves the planner's JSON HTTP API and the live schedule socket.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/auth"
	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/live"
	"github.com/p-n-ai/pai-planner/internal/profile"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

// Config holds dependencies for the API server.
type Config struct {
	Auth       *auth.Service
	Tokens     *auth.TokenManager
	Schedule   *schedule.Service
	Curriculum *curriculum.Loader
	Profiles   profile.Store
	Events     activity.Logger
	Activity   activity.Reader // optional; admin activity is empty without it
	Hub        *live.Hub
	Now        func() time.Time
}

// Server routes API requests to the domain services.
type Server struct {
	auth       *auth.Service
	tokens     *auth.TokenManager
	schedule   *schedule.Service
	curriculum *curriculum.Loader
	profiles   profile.Store
	events     activity.Logger
	activity   activity.Reader
	hub        *live.Hub
	now        func() time.Time
}

// New creates an API server.
func New(cfg Config) *Server {
	s := &Server{
		auth:       cfg.Auth,
		tokens:     cfg.Tokens,
		schedule:   cfg.Schedule,
		curriculum: cfg.Curriculum,
		profiles:   cfg.Profiles,
		events:     cfg.Events,
		activity:   cfg.Activity,
		hub:        cfg.Hub,
		now:        cfg.Now,
	}
	if s.events == nil {
		s.events = activity.NopLogger{}
	}
	if s.hub == nil {
		s.hub = live.NewHub()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler returns the routed, request-logging handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/curriculum", s.handleCurriculum)
	mux.HandleFunc("GET /api/curriculum/boards", s.handleBoards)
	mux.HandleFunc("GET /api/resources", s.handleResources)

	mux.Handle("GET /api/profile", s.requireAuth(s.handleGetProfile))
	mux.Handle("PUT /api/profile", s.requireAuth(s.handlePutProfile))

	mux.Handle("POST /api/schedule", s.requireAuth(s.handleSchedule))
	mux.Handle("GET /api/schedule/export", s.requireAuth(s.handleExport))

	mux.Handle("POST /api/progress/checkpoint", s.requireAuth(s.handleCheckpoint))
	mux.Handle("POST /api/progress/difficulty", s.requireAuth(s.handleDifficulty))
	mux.Handle("POST /api/progress/hours", s.requireAuth(s.handleHours))
	mux.Handle("POST /api/progress/reset", s.requireAuth(s.handleReset))
	mux.Handle("POST /api/tasks/toggle", s.requireAuth(s.handleToggleTask))

	mux.Handle("POST /api/subjects", s.requireAuth(s.handleAddSubject))
	mux.Handle("POST /api/subjects/{id}/chapters", s.requireAuth(s.handleAddChapter))

	mux.Handle("GET /api/leaderboard", s.requireAuth(s.handleLeaderboard))

	mux.Handle("GET /api/admin/students", s.requireAdmin(s.handleAdminStudents))
	mux.Handle("GET /api/admin/stats", s.requireAdmin(s.handleAdminStats))
	mux.Handle("GET /api/admin/activity", s.requireAdmin(s.handleAdminActivity))

	mux.Handle("GET /ws/schedule", s.hub.Handler(s.identifySocket))

	return logRequests(mux)
}

func (s *Server) logEvent(email, typ string, data map[string]any) {
	if err := s.events.Log(activity.Event{Email: email, Type: typ, Data: data, CreatedAt: s.now()}); err != nil {
		slog.Warn("failed to log event", "type", typ, "email", email, "error", err)
	}
}
