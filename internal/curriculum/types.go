package curriculum

// Difficulty is the default (or student-assigned) difficulty of a chapter.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Topic is a unit of content inside a chapter. Topics are not scheduled directly.
type Topic struct {
	ID             string  `yaml:"id" json:"id"`
	Name           string  `yaml:"name" json:"name"`
	EstimatedHours float64 `yaml:"estimated_hours" json:"estimated_hours"`
}

// Chapter is the unit of scheduling granularity.
type Chapter struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name" json:"name"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`
	Topics     []Topic    `yaml:"topics" json:"topics"`
}

// Subject groups chapters (e.g., Mathematics).
// Manual subjects ship without chapters; students add their own.
type Subject struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Chapters []Chapter `yaml:"chapters" json:"chapters"`
	IsCustom bool      `yaml:"custom" json:"is_custom,omitempty"`
	IsManual bool      `yaml:"manual" json:"is_manual,omitempty"`
}

// Syllabus is the reference curriculum for one board and class level
// (e.g., CBSE class 10).
type Syllabus struct {
	ID         string    `yaml:"id" json:"id"`
	Board      string    `yaml:"board" json:"board"`
	ClassLevel int       `yaml:"class_level" json:"class_level"`
	Subjects   []Subject `yaml:"subjects" json:"subjects"`
}

// Subject returns the subject with the given ID.
func (s Syllabus) Subject(id string) (Subject, bool) {
	for _, subj := range s.Subjects {
		if subj.ID == id {
			return subj, true
		}
	}
	return Subject{}, false
}

// ChapterCount returns the number of chapters across the selected subjects.
func (s Syllabus) ChapterCount(selected []string) int {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	n := 0
	for _, subj := range s.Subjects {
		if want[subj.ID] {
			n += len(subj.Chapters)
		}
	}
	return n
}

// ResourceType classifies library material.
type ResourceType string

const (
	ResourcePYQ         ResourceType = "PYQ"
	ResourceSamplePaper ResourceType = "Sample Paper"
	ResourceNotes       ResourceType = "Notes"
)

// Resource is a past paper, sample paper or notes linked to a subject.
type Resource struct {
	ID        string       `yaml:"id" json:"id"`
	Title     string       `yaml:"title" json:"title"`
	Type      ResourceType `yaml:"type" json:"type"`
	Year      string       `yaml:"year" json:"year,omitempty"`
	SubjectID string       `yaml:"subject_id" json:"subject_id"`
	Link      string       `yaml:"link" json:"link"`
}
