package api

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/profile"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

//go:embed schema/profile.json
var profileSchemaJSON []byte

var profileSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(profileSchemaJSON))
})

// profileUpdate is the editable part of a profile. Progress, custom subjects
// and manual chapters have their own endpoints.
type profileUpdate struct {
	Name               string                   `json:"name"`
	Phone              string                   `json:"phone"`
	SchoolName         string                   `json:"school_name"`
	Board              string                   `json:"board"`
	ClassLevel         int                      `json:"class_level"`
	SelectedSubjectIDs []string                 `json:"selected_subject_ids"`
	ExamDate           string                   `json:"exam_date"`
	AvailableHours     []planner.AvailableHours `json:"available_hours"`
	DailyRoutine       *profile.DailyRoutine    `json:"daily_routine"`
	Onboarded          bool                     `json:"onboarded"`
}

// parseProfileUpdate checks body against the profile schema and decodes it.
func parseProfileUpdate(body []byte) (profileUpdate, error) {
	schema, err := profileSchema()
	if err != nil {
		return profileUpdate{}, fmt.Errorf("compiling profile schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return profileUpdate{}, badRequest("invalid JSON body: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return profileUpdate{}, badRequest("%s", strings.Join(msgs, "; "))
	}

	var u profileUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		return profileUpdate{}, badRequest("invalid JSON body: %v", err)
	}
	if _, err := time.Parse(planner.DateLayout, u.ExamDate); err != nil {
		return profileUpdate{}, badRequest("exam_date: not a calendar date")
	}
	return u, nil
}

func (u profileUpdate) apply(p *profile.Profile) {
	p.Name = strings.TrimSpace(u.Name)
	p.Phone = strings.TrimSpace(u.Phone)
	p.SchoolName = strings.TrimSpace(u.SchoolName)
	p.Board = strings.ToUpper(strings.TrimSpace(u.Board))
	p.ClassLevel = u.ClassLevel
	p.SelectedSubjectIDs = u.SelectedSubjectIDs
	p.ExamDate = u.ExamDate
	p.AvailableHours = u.AvailableHours
	p.DailyRoutine = u.DailyRoutine
	p.Onboarded = u.Onboarded
}

type profileResponse struct {
	Profile  *profile.Profile    `json:"profile"`
	Syllabus curriculum.Syllabus `json:"syllabus"`
	Mastery  int                 `json:"mastery"`
}

type profileUpdateResponse struct {
	Profile  *profile.Profile `json:"profile"`
	Schedule schedule.Result  `json:"schedule"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.schedule.Touch(claimsFrom(r.Context()).Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	syllabus, _ := p.Syllabus(s.curriculum)
	writeJSON(w, http.StatusOK, profileResponse{
		Profile:  p,
		Syllabus: syllabus,
		Mastery:  p.MasteryScore(syllabus),
	})
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	update, err := parseProfileUpdate(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var saved *profile.Profile
	result, err := s.schedule.UpdateProgress(r.Context(), claimsFrom(r.Context()).Email, func(p *profile.Profile) error {
		update.apply(p)
		saved = p
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logEvent(saved.Email, activity.ProfileUpdated, map[string]any{"board": saved.Board, "class_level": saved.ClassLevel})
	writeJSON(w, http.StatusOK, profileUpdateResponse{Profile: saved, Schedule: result})
}
