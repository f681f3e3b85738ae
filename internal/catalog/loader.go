// Package catalog loads the static course content: chapters, lessons,
// quizzes, activities and the vocabulary glossary.
package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const glossaryFile = "glossary.yaml"

// Catalog is the immutable, ordered course content. It is safe for
// concurrent use because nothing mutates it after Load.
type Catalog struct {
	chapters []Chapter
	glossary []Term
}

// Load reads every chapter YAML and the glossary from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case path.Base(p) == glossaryFile:
			return c.loadGlossary(fsys, p)
		case strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml"):
			return c.loadChapter(fsys, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	sort.Slice(c.chapters, func(i, j int) bool { return c.chapters[i].ID < c.chapters[j].ID })
	if err := c.validate(); err != nil {
		return nil, err
	}

	slog.Info("catalog loaded",
		"chapters", len(c.chapters),
		"total_stars", c.TotalStars(),
		"glossary_terms", len(c.glossary),
	)
	return c, nil
}

func (c *Catalog) loadChapter(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	if err := validateDocument(doc); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}

	var ch Chapter
	if err := yaml.Unmarshal(data, &ch); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	c.chapters = append(c.chapters, ch)
	return nil
}

func (c *Catalog) loadGlossary(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}
	var doc struct {
		Terms []Term `yaml:"terms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	for _, t := range doc.Terms {
		if strings.TrimSpace(t.Term) == "" {
			continue
		}
		c.glossary = append(c.glossary, t)
	}
	return nil
}

// validate checks the cross-document invariants the schema cannot express.
func (c *Catalog) validate() error {
	if len(c.chapters) == 0 {
		return fmt.Errorf("catalog has no chapters")
	}
	seen := make(map[string]bool)
	for i, ch := range c.chapters {
		if ch.ID != i+1 {
			return fmt.Errorf("chapter ids must be contiguous from 1: position %d has id %d", i+1, ch.ID)
		}
		if !ch.Activity.Type.Valid() {
			return fmt.Errorf("chapter %d: unknown activity type %q", ch.ID, ch.Activity.Type)
		}
		for li, l := range ch.Lessons {
			if want := lessonID(ch.ID, li); l.ID != want {
				return fmt.Errorf("chapter %d: lesson %d has id %q, want %q", ch.ID, li+1, l.ID, want)
			}
			if seen[l.ID] {
				return fmt.Errorf("duplicate lesson id %q", l.ID)
			}
			seen[l.ID] = true
		}
		for qi, q := range ch.Quiz {
			if q.Answer < 0 || q.Answer >= len(q.Options) {
				return fmt.Errorf("chapter %d: question %d answer %d out of range", ch.ID, qi+1, q.Answer)
			}
		}
	}
	return nil
}

// Len returns the number of chapters.
func (c *Catalog) Len() int {
	return len(c.chapters)
}

// Chapters returns the chapters in order.
func (c *Catalog) Chapters() []Chapter {
	out := make([]Chapter, len(c.chapters))
	copy(out, c.chapters)
	return out
}

// Chapter returns the chapter at zero-based index i.
func (c *Catalog) Chapter(i int) (Chapter, bool) {
	if i < 0 || i >= len(c.chapters) {
		return Chapter{}, false
	}
	return c.chapters[i], true
}

// ChapterByID returns the chapter with the given id and its index.
func (c *Catalog) ChapterByID(id int) (Chapter, int, bool) {
	i := id - 1
	ch, ok := c.Chapter(i)
	if !ok {
		return Chapter{}, -1, false
	}
	return ch, i, true
}

// Lesson returns lesson li of chapter ci.
func (c *Catalog) Lesson(ci, li int) (Lesson, bool) {
	ch, ok := c.Chapter(ci)
	if !ok || li < 0 || li >= len(ch.Lessons) {
		return Lesson{}, false
	}
	return ch.Lessons[li], true
}

// Question returns quiz question qi of chapter ci.
func (c *Catalog) Question(ci, qi int) (QuizQuestion, bool) {
	ch, ok := c.Chapter(ci)
	if !ok || qi < 0 || qi >= len(ch.Quiz) {
		return QuizQuestion{}, false
	}
	return ch.Quiz[qi], true
}

// TotalStars is the number of stars the whole course can award.
func (c *Catalog) TotalStars() int {
	total := 0
	for _, ch := range c.chapters {
		total += ch.StarTotal()
	}
	return total
}

// LessonCount is the number of lessons across all chapters.
func (c *Catalog) LessonCount() int {
	n := 0
	for _, ch := range c.chapters {
		n += len(ch.Lessons)
	}
	return n
}

// Glossary returns the vocabulary terms.
func (c *Catalog) Glossary() []Term {
	out := make([]Term, len(c.glossary))
	copy(out, c.glossary)
	return out
}
