// Package certificate decides whether a learner has finished the course and
// prepares what the certificate renderer needs.
package certificate

import (
	"errors"
	"strings"
	"time"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/progress"
)

var (
	// ErrLocked is returned when issuing before the course is complete.
	ErrLocked = errors.New("certificate: course not complete")
	// ErrNameRequired is returned when the name to print is blank.
	ErrNameRequired = errors.New("certificate: name is required")
)

const fileSuffix = "_KidVault_Certificate.pdf"

// Certificate is the input to the external renderer.
type Certificate struct {
	Name        string    `json:"name"`
	EarnedStars int       `json:"earned_stars"`
	TotalStars  int       `json:"total_stars"`
	IssuedOn    time.Time `json:"issued_on"`
	FileName    string    `json:"file_name"`
}

// Status is the gate result with the per-chapter breakdown shown while the
// certificate is locked.
type Status struct {
	Unlocked    bool                       `json:"unlocked"`
	EarnedStars int                        `json:"earned_stars"`
	TotalStars  int                        `json:"total_stars"`
	Chapters    []progress.ChapterProgress `json:"chapters"`
}

// IsCourseComplete reports whether every lesson and quiz is starred and every
// activity except the last chapter's. The last chapter's activity is the
// certificate itself.
func IsCourseComplete(cat *catalog.Catalog, stars progress.Stars) bool {
	if cat.Len() == 0 {
		return false
	}
	last := cat.Len() - 1
	for i, ch := range cat.Chapters() {
		for _, l := range ch.Lessons {
			if !stars[catalog.LessonKey(l)] {
				return false
			}
		}
		if !stars[catalog.QuizKey(ch.ID)] {
			return false
		}
		if i != last && !stars[catalog.ActivityKey(ch.ID)] {
			return false
		}
	}
	return true
}

// Locked returns earned/total for every chapter.
func Locked(cat *catalog.Catalog, stars progress.Stars) []progress.ChapterProgress {
	return progress.TakeSnapshot(cat, stars).Chapters
}

// Check evaluates the gate.
func Check(cat *catalog.Catalog, stars progress.Stars) Status {
	return Status{
		Unlocked:    IsCourseComplete(cat, stars),
		EarnedStars: progress.TotalEarnedStars(stars),
		TotalStars:  progress.TotalPossibleStars(cat),
		Chapters:    Locked(cat, stars),
	}
}

// Issue builds the certificate for name.
func Issue(cat *catalog.Catalog, name string, stars progress.Stars, now time.Time) (Certificate, error) {
	if !IsCourseComplete(cat, stars) {
		return Certificate{}, ErrLocked
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Certificate{}, ErrNameRequired
	}
	return Certificate{
		Name:        name,
		EarnedStars: progress.TotalEarnedStars(stars),
		TotalStars:  progress.TotalPossibleStars(cat),
		IssuedOn:    now,
		FileName:    FileName(name),
	}, nil
}

// FileName replaces every rune outside [A-Za-z0-9] with an underscore and
// appends the certificate suffix.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString(fileSuffix)
	return b.String()
}
