package api

import (
	"bytes"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/profile"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type scheduleRequest struct {
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Shuffle   bool   `json:"shuffle"`
}

type checkpointRequest struct {
	ChapterID  string             `json:"chapter_id" validate:"required,max=100"`
	Checkpoint planner.Checkpoint `json:"checkpoint" validate:"required,oneof=Read Revised Practiced Thorough"`
}

type difficultyRequest struct {
	ChapterID  string                `json:"chapter_id" validate:"required,max=100"`
	Difficulty curriculum.Difficulty `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
}

type hoursRequest struct {
	Weekday *int     `json:"weekday" validate:"required,min=0,max=6"`
	Hours   *float64 `json:"hours" validate:"required,min=0,max=24"`
}

type toggleRequest struct {
	TopicID string `json:"topic_id" validate:"required,max=200"`
}

type subjectRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

type chapterRequest struct {
	ChapterName string                `json:"chapter_name" validate:"required,max=120"`
	TopicName   string                `json:"topic_name" validate:"max=120"`
	Hours       float64               `json:"hours" validate:"gte=0,lte=100"`
	Difficulty  curriculum.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
}

type subjectResponse struct {
	Subject  curriculum.Subject `json:"subject"`
	Schedule schedule.Result    `json:"schedule"`
}

type chapterResponse struct {
	Chapter  curriculum.Chapter `json:"chapter"`
	Schedule schedule.Result    `json:"schedule"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.schedule.Generate(r.Context(), claimsFrom(r.Context()).Email, schedule.Request{
		StartDate: req.StartDate,
		Shuffle:   req.Shuffle,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	result, err := s.schedule.Generate(r.Context(), claimsFrom(r.Context()).Email, schedule.Request{})
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSchedule(&buf, result.Tasks); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="study-plan.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// mutate decodes req, applies fn to the caller's profile and responds with
// the regenerated schedule.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, req any, fn func(*profile.Profile) error) {
	if req != nil {
		if err := decode(w, r, req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	result, err := s.schedule.UpdateProgress(r.Context(), claimsFrom(r.Context()).Email, fn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req checkpointRequest
	s.mutate(w, r, &req, func(p *profile.Profile) error {
		return p.ToggleCheckpoint(req.ChapterID, req.Checkpoint)
	})
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	var req difficultyRequest
	s.mutate(w, r, &req, func(p *profile.Profile) error {
		return p.SetChapterDifficulty(req.ChapterID, req.Difficulty)
	})
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	var req hoursRequest
	s.mutate(w, r, &req, func(p *profile.Profile) error {
		return p.SetDailyHours(*req.Weekday, *req.Hours)
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, nil, func(p *profile.Profile) error {
		p.ResetProgress()
		return nil
	})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.schedule.ToggleTask(r.Context(), claimsFrom(r.Context()).Email, req.TopicID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAddSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := curriculum.NormalizeName(req.Name)
	if name == "" {
		writeError(w, r, badRequest("name: must not be blank"))
		return
	}

	var subj curriculum.Subject
	result, err := s.schedule.UpdateProgress(r.Context(), claimsFrom(r.Context()).Email, func(p *profile.Profile) error {
		taken := slices.ContainsFunc(p.CustomSubjects, func(c curriculum.Subject) bool {
			return strings.EqualFold(c.Name, name)
		})
		if taken {
			return badRequest("subject %q already exists", name)
		}
		subj = p.AddCustomSubject(name, "custom-"+uuid.NewString())
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, subjectResponse{Subject: subj, Schedule: result})
}

func (s *Server) handleAddChapter(w http.ResponseWriter, r *http.Request) {
	var req chapterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	subjectID := r.PathValue("id")

	topicName := curriculum.NormalizeName(req.TopicName)
	if topicName == "" {
		topicName = curriculum.NormalizeName(req.ChapterName)
	}
	ch := curriculum.Chapter{
		ID:         "ch-" + uuid.NewString(),
		Name:       req.ChapterName,
		Difficulty: req.Difficulty,
		Topics: []curriculum.Topic{{
			ID:             "tp-" + uuid.NewString(),
			Name:           topicName,
			EstimatedHours: req.Hours,
		}},
	}

	result, err := s.schedule.UpdateProgress(r.Context(), claimsFrom(r.Context()).Email, func(p *profile.Profile) error {
		syllabus, _ := p.Syllabus(s.curriculum)
		subj, ok := syllabus.Subject(subjectID)
		if !ok {
			return errUnknownSubject
		}
		if !subj.IsManual {
			return errNotManual
		}
		if err := p.AddManualChapter(subjectID, ch); err != nil {
			return err
		}
		// Report the chapter as stored, with name and difficulty normalised.
		resolved, _ := p.Syllabus(s.curriculum)
		subj, _ = resolved.Subject(subjectID)
		ch = subj.Chapters[len(subj.Chapters)-1]
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chapterResponse{Chapter: ch, Schedule: result})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := s.schedule.Leaderboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}
