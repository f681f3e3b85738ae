package certificate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/certificate"
	"github.com/taiganautcapital/thekidvault/internal/progress"
)

func shippedCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default() error = %v", err)
	}
	return cat
}

// boundaryStars is the smallest star set that unlocks the certificate: every
// lesson, every quiz, and the activities of all chapters but the last.
func boundaryStars(cat *catalog.Catalog) progress.Stars {
	stars := progress.Stars{}
	chapters := cat.Chapters()
	for i, ch := range chapters {
		for _, l := range ch.Lessons {
			stars[catalog.LessonKey(l)] = true
		}
		stars[catalog.QuizKey(ch.ID)] = true
		if i < len(chapters)-1 {
			stars[catalog.ActivityKey(ch.ID)] = true
		}
	}
	return stars
}

func TestIsCourseComplete(t *testing.T) {
	cat := shippedCatalog(t)

	boundary := boundaryStars(cat)
	if len(boundary) != 48 {
		t.Fatalf("boundary set has %d stars, want 48", len(boundary))
	}

	without := func(key string) progress.Stars {
		s := boundaryStars(cat)
		delete(s, key)
		return s
	}
	with := func(key string) progress.Stars {
		s := boundaryStars(cat)
		s[key] = true
		return s
	}

	tests := []struct {
		name  string
		stars progress.Stars
		want  bool
	}{
		{"exact-boundary", boundary, true},
		{"with-last-activity", with("ch7-act"), true},
		{"one-lesson-missing", without("4-3"), false},
		{"last-lesson-missing", without("7-4"), false},
		{"one-quiz-missing", without("ch7-quiz"), false},
		{"one-activity-missing", without("ch6-act"), false},
		{"empty", progress.Stars{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := certificate.IsCourseComplete(cat, tt.stars); got != tt.want {
				t.Errorf("IsCourseComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheck_LockedReport(t *testing.T) {
	cat := shippedCatalog(t)
	stars := boundaryStars(cat)
	delete(stars, "2-6")

	st := certificate.Check(cat, stars)
	if st.Unlocked {
		t.Fatal("Check() unlocked with a lesson missing")
	}
	if st.EarnedStars != 47 || st.TotalStars != 49 {
		t.Errorf("stars = %d/%d, want 47/49", st.EarnedStars, st.TotalStars)
	}
	if len(st.Chapters) != 7 {
		t.Fatalf("chapters = %d, want 7", len(st.Chapters))
	}
	if c := st.Chapters[1]; c.Earned != 7 || c.Total != 8 || c.Complete {
		t.Errorf("chapter 2 = %+v, want 7/8 incomplete", c)
	}
	if c := st.Chapters[6]; c.Earned != 5 || c.Total != 6 {
		t.Errorf("chapter 7 = %+v, want 5/6", c)
	}
}

func TestIssue(t *testing.T) {
	cat := shippedCatalog(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	cert, err := certificate.Issue(cat, " Ava Smith ", boundaryStars(cat), now)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	want := certificate.Certificate{
		Name:        "Ava Smith",
		EarnedStars: 48,
		TotalStars:  49,
		IssuedOn:    now,
		FileName:    "Ava_Smith_KidVault_Certificate.pdf",
	}
	if cert != want {
		t.Errorf("Issue() = %+v, want %+v", cert, want)
	}
}

func TestIssue_Errors(t *testing.T) {
	cat := shippedCatalog(t)
	now := time.Now()

	if _, err := certificate.Issue(cat, "Ava", progress.Stars{"1-1": true}, now); !errors.Is(err, certificate.ErrLocked) {
		t.Errorf("Issue(incomplete) error = %v, want ErrLocked", err)
	}
	if _, err := certificate.Issue(cat, "   ", boundaryStars(cat), now); !errors.Is(err, certificate.ErrNameRequired) {
		t.Errorf("Issue(blank name) error = %v, want ErrNameRequired", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ava", "Ava_KidVault_Certificate.pdf"},
		{"Mary-Jane O'Neil", "Mary_Jane_O_Neil_KidVault_Certificate.pdf"},
		{"Zoë 2", "Zo__2_KidVault_Certificate.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := certificate.FileName(tt.name); got != tt.want {
				t.Errorf("FileName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
