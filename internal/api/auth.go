package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token   string       `json:"token"`
	Account auth.Account `json:"account"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// The profile comes first so a failed save never leaves an account
	// without one. EnsureProfile keeps an existing profile untouched.
	if _, err := s.schedule.EnsureProfile(req.Email, strings.TrimSpace(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := s.auth.Register(req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logEvent(account.Email, activity.AccountCreated, map[string]any{"role": account.Role})

	s.respondToken(w, r, http.StatusCreated, account)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Accounts created before their profile (or by an operator) get one now.
	if _, err := s.schedule.EnsureProfile(account.Email, ""); err != nil {
		writeError(w, r, err)
		return
	}

	s.respondToken(w, r, http.StatusOK, account)
}

func (s *Server) respondToken(w http.ResponseWriter, r *http.Request, status int, account auth.Account) {
	token, err := s.tokens.Issue(account)
	if err != nil {
		writeError(w, r, fmt.Errorf("issuing token: %w", err))
		return
	}
	writeJSON(w, status, tokenResponse{Token: token, Account: account})
}
