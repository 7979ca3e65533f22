package gamification

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
)

// DefaultLeaderboardSize is how many standings the leaderboard shows.
const DefaultLeaderboardSize = 10

const anonymousName = "Anonymous"

// Entry is one student's leaderboard record.
type Entry struct {
	Email      string
	Name       string
	Points     int
	Streak     int
	ClassLevel int
}

// Standing is a ranked leaderboard row.
type Standing struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Streak int    `json:"streak"`
	Class  string `json:"class"`
}

// Leaderboard ranks students by points.
type Leaderboard interface {
	Update(ctx context.Context, e Entry) error
	Top(ctx context.Context, n int) ([]Standing, error)
}

func standing(rank int, e Entry) Standing {
	name := e.Name
	if name == "" {
		name = anonymousName
	}
	class := "N/A"
	if e.ClassLevel > 0 {
		class = strconv.Itoa(e.ClassLevel)
	}
	return Standing{Rank: rank, Name: name, Points: e.Points, Streak: e.Streak, Class: class}
}

// MemoryLeaderboard keeps entries in memory.
type MemoryLeaderboard struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// NewMemoryLeaderboard creates an empty in-memory leaderboard.
func NewMemoryLeaderboard() *MemoryLeaderboard {
	return &MemoryLeaderboard{entries: make(map[string]Entry)}
}

func (l *MemoryLeaderboard) Update(_ context.Context, e Entry) error {
	l.mu.Lock()
	l.entries[e.Email] = e
	l.mu.Unlock()
	return nil
}

func (l *MemoryLeaderboard) Top(_ context.Context, n int) ([]Standing, error) {
	l.mu.RLock()
	entries := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	// Points descending, then email for a stable order.
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Email, b.Email)
	})

	out := []Standing{}
	for i, e := range entries {
		if i >= n {
			break
		}
		out = append(out, standing(i+1, e))
	}
	return out, nil
}
