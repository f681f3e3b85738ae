package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
)

func TestDefault_ShippedContent(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	if cat.Len() != 7 {
		t.Errorf("Len() = %d, want 7", cat.Len())
	}
	if cat.LessonCount() != 35 {
		t.Errorf("LessonCount() = %d, want 35", cat.LessonCount())
	}
	if cat.TotalStars() != 49 {
		t.Errorf("TotalStars() = %d, want 49", cat.TotalStars())
	}
	if len(cat.Glossary()) != 30 {
		t.Errorf("Glossary() = %d terms, want 30", len(cat.Glossary()))
	}

	ch, ok := cat.Chapter(0)
	if !ok {
		t.Fatal("Chapter(0) not found")
	}
	if len(ch.Lessons) != 5 || len(ch.Quiz) != 3 {
		t.Errorf("chapter 1 has %d lessons and %d questions, want 5 and 3", len(ch.Lessons), len(ch.Quiz))
	}
	if ch.StarTotal() != 7 {
		t.Errorf("chapter 1 StarTotal() = %d, want 7", ch.StarTotal())
	}

	last, _ := cat.Chapter(6)
	if last.Activity.Type != catalog.ActivityCertificate {
		t.Errorf("last chapter activity = %q, want certificate", last.Activity.Type)
	}
}

func TestCatalog_SafeAccessors(t *testing.T) {
	cat := loadTestCatalog(t)

	tests := []struct {
		name string
		ok   bool
	}{
		{"chapter-negative", func() bool { _, ok := cat.Chapter(-1); return ok }()},
		{"chapter-past-end", func() bool { _, ok := cat.Chapter(2); return ok }()},
		{"chapter-valid", func() bool { _, ok := cat.Chapter(1); return ok }()},
		{"lesson-past-end", func() bool { _, ok := cat.Lesson(0, 2); return ok }()},
		{"lesson-bad-chapter", func() bool { _, ok := cat.Lesson(5, 0); return ok }()},
		{"lesson-valid", func() bool { _, ok := cat.Lesson(0, 1); return ok }()},
		{"question-past-end", func() bool { _, ok := cat.Question(1, 1); return ok }()},
		{"question-valid", func() bool { _, ok := cat.Question(1, 0); return ok }()},
		{"by-id-zero", func() bool { _, _, ok := cat.ChapterByID(0); return ok }()},
		{"by-id-valid", func() bool { _, _, ok := cat.ChapterByID(2); return ok }()},
	}
	want := map[string]bool{
		"chapter-valid":  true,
		"lesson-valid":   true,
		"question-valid": true,
		"by-id-valid":    true,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ok != want[tt.name] {
				t.Errorf("found = %v, want %v", tt.ok, want[tt.name])
			}
		})
	}
}

func TestStarKeys(t *testing.T) {
	cat := loadTestCatalog(t)
	l, _ := cat.Lesson(1, 0)

	if got := catalog.LessonKey(l); got != "2-1" {
		t.Errorf("LessonKey() = %q, want 2-1", got)
	}
	if got := catalog.QuizKey(3); got != "ch3-quiz" {
		t.Errorf("QuizKey(3) = %q, want ch3-quiz", got)
	}
	if got := catalog.ActivityKey(3); got != "ch3-act" {
		t.Errorf("ActivityKey(3) = %q, want ch3-act", got)
	}
}

func TestLoad_RejectsInvalidContent(t *testing.T) {
	tests := []struct {
		name    string
		chapter string
	}{
		{"schema-missing-quiz", `
id: 1
title: Broken
lessons:
  - {id: "1-1", title: A, cards: [x]}
activity: {type: money-idea, title: T}
`},
		{"unknown-activity", `
id: 1
title: Broken
lessons:
  - {id: "1-1", title: A, cards: [x]}
quiz:
  - {prompt: Q, options: [a, b], answer: 0}
activity: {type: skateboard, title: T}
`},
		{"answer-out-of-range", `
id: 1
title: Broken
lessons:
  - {id: "1-1", title: A, cards: [x]}
quiz:
  - {prompt: Q, options: [a, b], answer: 2}
activity: {type: money-idea, title: T}
`},
		{"lesson-id-mismatch", `
id: 1
title: Broken
lessons:
  - {id: "1-2", title: A, cards: [x]}
quiz:
  - {prompt: Q, options: [a, b], answer: 0}
activity: {type: money-idea, title: T}
`},
		{"ids-not-contiguous", `
id: 2
title: Broken
lessons:
  - {id: "2-1", title: A, cards: [x]}
quiz:
  - {prompt: Q, options: [a, b], answer: 0}
activity: {type: money-idea, title: T}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{
				"chapters/01.yaml": {Data: []byte(tt.chapter)},
			}
			if _, err := catalog.Load(fsys); err == nil {
				t.Error("Load() should reject invalid content")
			}
		})
	}
}

func TestLoad_EmptyFS(t *testing.T) {
	if _, err := catalog.Load(fstest.MapFS{}); err == nil {
		t.Error("Load() should error when there are no chapters")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	chaptersDir := filepath.Join(dir, "chapters")
	os.MkdirAll(chaptersDir, 0o755)
	os.WriteFile(filepath.Join(chaptersDir, "01-money.yaml"), []byte(testChapterOne), 0o644)
	os.WriteFile(filepath.Join(dir, "glossary.yaml"), []byte(testGlossary), 0o644)

	cat, err := catalog.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if cat.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cat.Len())
	}
	if len(cat.Glossary()) != 2 {
		t.Errorf("Glossary() = %d terms, want 2", len(cat.Glossary()))
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := catalog.LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("LoadDir() should error for a missing directory")
	}
}

const testChapterOne = `
id: 1
title: What Is Money?
icon: "🪙"
description: Where money came from.
lessons:
  - id: "1-1"
    title: The Trading Problem
    cards:
      - People swapped things directly.
      - This is called bartering.
  - id: "1-2"
    title: Money Through the Ages
    cards:
      - Shells, salt and stones.
quiz:
  - prompt: What is swapping goods called?
    options: [Shopping, Bartering]
    answer: 1
  - prompt: A fee for borrowing money is...
    options: [A tip, Interest]
    answer: 1
activity:
  type: money-idea
  title: My Money Idea
`

const testChapterTwo = `
id: 2
title: Becoming a Super Saver
lessons:
  - id: "2-1"
    title: The Marshmallow Choice
    cards: [Wait for two.]
quiz:
  - prompt: Needs differ from wants because...
    options: [Cost, Essential]
    answer: 1
activity:
  type: certificate
  title: Certificate of Achievement
`

const testGlossary = `
terms:
  - term: bartering
    definition: Trading goods directly.
  - term: "FDIC (Federal Deposit Insurance Corporation)"
    definition: Protects deposits.
`

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(fstest.MapFS{
		"chapters/01-money.yaml": {Data: []byte(testChapterOne)},
		"chapters/02-saver.yaml": {Data: []byte(testChapterTwo)},
		"glossary.yaml":          {Data: []byte(testGlossary)},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cat
}
