package curriculum

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Resolve merges a student's own content into a base syllabus.
// Manual subjects take their chapters from manualChapters (keyed by subject ID),
// and custom subjects are appended after the base subjects. base is not modified.
func Resolve(base Syllabus, manualChapters map[string][]Chapter, customSubjects []Subject) Syllabus {
	out := base
	out.Subjects = make([]Subject, 0, len(base.Subjects)+len(customSubjects))

	for _, subj := range base.Subjects {
		if subj.IsManual {
			subj.Chapters = append([]Chapter(nil), manualChapters[subj.ID]...)
		}
		out.Subjects = append(out.Subjects, subj)
	}
	out.Subjects = append(out.Subjects, customSubjects...)

	return out
}

// NormalizeName trims and collapses whitespace in a user-entered name and
// title-cases it, e.g. "  computer   science " -> "Computer Science".
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(strings.Join(fields, " "))
}
