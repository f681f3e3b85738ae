// Package progress derives completion metrics from a star set and drives the
// per-chapter lessons, quiz and activity session.
package progress

import (
	"math"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
)

// Stars is the set of earned star keys.
type Stars map[string]bool

// ChapterStarCount counts the stars earned in chapter ci. Unknown chapters
// count zero.
func ChapterStarCount(cat *catalog.Catalog, stars Stars, ci int) int {
	ch, ok := cat.Chapter(ci)
	if !ok {
		return 0
	}
	n := 0
	for _, l := range ch.Lessons {
		if stars[catalog.LessonKey(l)] {
			n++
		}
	}
	if stars[catalog.QuizKey(ch.ID)] {
		n++
	}
	if stars[catalog.ActivityKey(ch.ID)] {
		n++
	}
	return n
}

// ChapterTotalStars is the number of stars chapter ci can award.
func ChapterTotalStars(cat *catalog.Catalog, ci int) int {
	ch, ok := cat.Chapter(ci)
	if !ok {
		return 0
	}
	return ch.StarTotal()
}

// TotalEarnedStars is the size of the star set.
func TotalEarnedStars(stars Stars) int {
	n := 0
	for _, v := range stars {
		if v {
			n++
		}
	}
	return n
}

// TotalPossibleStars is the number of stars the whole course can award.
func TotalPossibleStars(cat *catalog.Catalog) int {
	return cat.TotalStars()
}

// PercentComplete is earned over possible stars, rounded to a whole percent.
func PercentComplete(cat *catalog.Catalog, stars Stars) int {
	total := TotalPossibleStars(cat)
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(TotalEarnedStars(stars)) * 100 / float64(total)))
}

// ChapterProgress is the star tally of one chapter.
type ChapterProgress struct {
	Chapter  int    `json:"chapter"`
	Title    string `json:"title"`
	Earned   int    `json:"earned"`
	Total    int    `json:"total"`
	Complete bool   `json:"complete"`
}

// Snapshot summarises a star set against the catalog.
type Snapshot struct {
	Chapters []ChapterProgress `json:"chapters"`
	Earned   int               `json:"earned"`
	Total    int               `json:"total"`
	Percent  int               `json:"percent"`
}

// TakeSnapshot computes per-chapter and overall progress.
func TakeSnapshot(cat *catalog.Catalog, stars Stars) Snapshot {
	snap := Snapshot{
		Chapters: make([]ChapterProgress, 0, cat.Len()),
		Earned:   TotalEarnedStars(stars),
		Total:    TotalPossibleStars(cat),
		Percent:  PercentComplete(cat, stars),
	}
	for i, ch := range cat.Chapters() {
		earned := ChapterStarCount(cat, stars, i)
		total := ch.StarTotal()
		snap.Chapters = append(snap.Chapters, ChapterProgress{
			Chapter:  ch.ID,
			Title:    ch.Title,
			Earned:   earned,
			Total:    total,
			Complete: earned == total,
		})
	}
	return snap
}
