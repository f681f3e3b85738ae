package progress

import "github.com/taiganautcapital/thekidvault/internal/catalog"

// View is what a client renders for a session state.
type View struct {
	State        State             `json:"state"`
	ChapterID    int               `json:"chapter_id"`
	ChapterTitle string            `json:"chapter_title"`
	Lessons      []LessonSummary   `json:"lessons"`
	Lesson       *LessonView       `json:"lesson,omitempty"`
	Question     *QuestionView     `json:"question,omitempty"`
	Activity     *catalog.Activity `json:"activity,omitempty"`
}

// LessonSummary is a sidebar entry.
type LessonSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

// LessonView is the card being shown.
type LessonView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Card      string `json:"card"`
	CardIndex int    `json:"card_index"`
	CardCount int    `json:"card_count"`
	HasNext   bool   `json:"has_next_lesson"`
}

// QuestionView is the quiz question being shown. Correct and Answer are only
// set once an option has been selected.
type QuestionView struct {
	Index    int      `json:"index"`
	Count    int      `json:"count"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
	Selected *int     `json:"selected,omitempty"`
	Correct  *bool    `json:"correct,omitempty"`
	Answer   *int     `json:"answer,omitempty"`
}

// View resolves s against the catalog.
func (e *Engine) View(s State) (View, error) {
	ch, err := e.check(s)
	if err != nil {
		return View{}, err
	}

	v := View{
		State:        s,
		ChapterID:    ch.ID,
		ChapterTitle: ch.Title,
		Lessons:      make([]LessonSummary, len(ch.Lessons)),
	}
	for i, l := range ch.Lessons {
		v.Lessons[i] = LessonSummary{ID: l.ID, Title: l.Title, Icon: l.Icon}
	}

	switch s.Phase {
	case PhaseLessons:
		l := ch.Lessons[s.Lesson]
		v.Lesson = &LessonView{
			ID:        l.ID,
			Title:     l.Title,
			Card:      l.Cards[s.Card],
			CardIndex: s.Card,
			CardCount: len(l.Cards),
			HasNext:   s.Lesson+1 < len(ch.Lessons),
		}
	case PhaseQuiz:
		q := ch.Quiz[s.Question]
		qv := &QuestionView{
			Index:   s.Question,
			Count:   len(ch.Quiz),
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
		if s.Selected != nil {
			selected := *s.Selected
			correct := selected == q.Answer
			answer := q.Answer
			qv.Selected = &selected
			qv.Correct = &correct
			qv.Answer = &answer
		}
		v.Question = qv
	case PhaseActivity:
		act := ch.Activity
		v.Activity = &act
	}
	return v, nil
}
