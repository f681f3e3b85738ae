package progress

import (
	"errors"
	"fmt"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
)

var (
	// ErrOutOfRange is returned when a chapter, lesson, card, question or
	// option index does not exist.
	ErrOutOfRange = errors.New("progress: index out of range")
	// ErrWrongPhase is returned for an action the current phase does not accept.
	ErrWrongPhase = errors.New("progress: action not allowed in this phase")
	// ErrAnswerLocked is returned when the current question is already answered.
	ErrAnswerLocked = errors.New("progress: answer already selected")
	// ErrNoAnswer is returned when advancing past an unanswered question.
	ErrNoAnswer = errors.New("progress: select an answer first")
	// ErrUnknownAction is returned for an unrecognised action type.
	ErrUnknownAction = errors.New("progress: unknown action")
)

// Phase is the sub-state of a chapter session.
type Phase string

const (
	PhaseLessons  Phase = "lessons"
	PhaseQuiz     Phase = "quiz"
	PhaseActivity Phase = "activity"
)

// State is the navigation state of one chapter session. Indexes are zero-based.
type State struct {
	Chapter  int   `json:"chapter"`
	Lesson   int   `json:"lesson"`
	Card     int   `json:"card"`
	Question int   `json:"question"`
	Phase    Phase `json:"phase"`
	Selected *int  `json:"selected,omitempty"`
	// ActivityDone is set once the activity's done signal has been handled
	// on this visit.
	ActivityDone bool `json:"activity_done,omitempty"`
}

// ActionType names a learner action.
type ActionType string

const (
	ActionStart        ActionType = "start"
	ActionAdvance      ActionType = "advance"
	ActionRetreat      ActionType = "retreat"
	ActionJump         ActionType = "jump"
	ActionSkip         ActionType = "skip"
	ActionOpenQuiz     ActionType = "open_quiz"
	ActionOpenActivity ActionType = "open_activity"
	ActionAnswer       ActionType = "answer"
	ActionActivityDone ActionType = "activity_done"
)

// Action is one learner input. Index is the chapter index for start and
// activity_done, the lesson index for jump and the option index for answer.
type Action struct {
	Type  ActionType `json:"type"`
	Index int        `json:"index"`
}

// Outcome tells the caller where the learner ends up after a transition.
type Outcome string

const (
	OutcomeStay        Outcome = "stay"
	OutcomeNextChapter Outcome = "next_chapter"
	OutcomeOverview    Outcome = "overview"
)

// Transition is the result of reducing an action: the next state, the star
// keys to mark in order, and the outcome.
type Transition struct {
	State   State    `json:"state"`
	Stars   []string `json:"stars,omitempty"`
	Outcome Outcome  `json:"outcome"`
}

// Engine reduces session actions against a catalog. It holds no session
// state of its own and is safe for concurrent use.
type Engine struct {
	cat *catalog.Catalog
}

// NewEngine creates an engine over cat.
func NewEngine(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat}
}

// Catalog returns the catalog the engine navigates.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// Start returns the initial state of chapter ci.
func (e *Engine) Start(ci int) (State, error) {
	if _, ok := e.cat.Chapter(ci); !ok {
		return State{}, fmt.Errorf("chapter %d: %w", ci, ErrOutOfRange)
	}
	return State{Chapter: ci, Phase: PhaseLessons}, nil
}

// Reduce applies a to s. It never mutates s.
func (e *Engine) Reduce(s State, a Action) (Transition, error) {
	if a.Type == ActionStart {
		next, err := e.Start(a.Index)
		if err != nil {
			return Transition{}, err
		}
		return stay(next), nil
	}

	ch, err := e.check(s)
	if err != nil {
		return Transition{}, err
	}

	switch a.Type {
	case ActionAdvance:
		switch s.Phase {
		case PhaseLessons:
			return e.advanceLesson(ch, s), nil
		case PhaseQuiz:
			return e.advanceQuiz(ch, s)
		}
		return Transition{}, fmt.Errorf("advance in %s: %w", s.Phase, ErrWrongPhase)

	case ActionRetreat:
		if s.Phase != PhaseLessons {
			return Transition{}, fmt.Errorf("retreat in %s: %w", s.Phase, ErrWrongPhase)
		}
		if s.Card > 0 {
			s.Card--
		}
		return stay(s), nil

	case ActionJump:
		if a.Index < 0 || a.Index >= len(ch.Lessons) {
			return Transition{}, fmt.Errorf("lesson %d: %w", a.Index, ErrOutOfRange)
		}
		return stay(lessonState(s.Chapter, a.Index)), nil

	case ActionSkip:
		if s.Phase != PhaseLessons {
			return Transition{}, fmt.Errorf("skip in %s: %w", s.Phase, ErrWrongPhase)
		}
		if s.Lesson+1 >= len(ch.Lessons) {
			return Transition{}, fmt.Errorf("no lesson after %d: %w", s.Lesson, ErrOutOfRange)
		}
		t := stay(lessonState(s.Chapter, s.Lesson+1))
		t.Stars = []string{catalog.LessonKey(ch.Lessons[s.Lesson])}
		return t, nil

	case ActionOpenQuiz:
		return stay(State{Chapter: s.Chapter, Phase: PhaseQuiz}), nil

	case ActionOpenActivity:
		if s.Phase == PhaseActivity {
			return stay(s), nil
		}
		return stay(State{Chapter: s.Chapter, Phase: PhaseActivity}), nil

	case ActionAnswer:
		if s.Phase != PhaseQuiz {
			return Transition{}, fmt.Errorf("answer in %s: %w", s.Phase, ErrWrongPhase)
		}
		if s.Selected != nil {
			return Transition{}, ErrAnswerLocked
		}
		q := ch.Quiz[s.Question]
		if a.Index < 0 || a.Index >= len(q.Options) {
			return Transition{}, fmt.Errorf("option %d: %w", a.Index, ErrOutOfRange)
		}
		choice := a.Index
		s.Selected = &choice
		return stay(s), nil

	case ActionActivityDone:
		if _, ok := e.cat.Chapter(a.Index); !ok {
			return Transition{}, fmt.Errorf("chapter %d: %w", a.Index, ErrOutOfRange)
		}
		return e.finishActivity(ch, s, a.Index), nil
	}

	return Transition{}, fmt.Errorf("%q: %w", a.Type, ErrUnknownAction)
}

func (e *Engine) advanceLesson(ch catalog.Chapter, s State) Transition {
	lesson := ch.Lessons[s.Lesson]
	if s.Card < len(lesson.Cards)-1 {
		s.Card++
		return stay(s)
	}

	t := Transition{Stars: []string{catalog.LessonKey(lesson)}, Outcome: OutcomeStay}
	if s.Lesson+1 < len(ch.Lessons) {
		t.State = lessonState(s.Chapter, s.Lesson+1)
	} else {
		t.State = State{Chapter: s.Chapter, Phase: PhaseQuiz}
	}
	return t
}

func (e *Engine) advanceQuiz(ch catalog.Chapter, s State) (Transition, error) {
	if s.Selected == nil {
		return Transition{}, ErrNoAnswer
	}
	if s.Question+1 < len(ch.Quiz) {
		return stay(State{Chapter: s.Chapter, Question: s.Question + 1, Phase: PhaseQuiz}), nil
	}
	return Transition{
		State:   State{Chapter: s.Chapter, Phase: PhaseActivity},
		Stars:   []string{catalog.QuizKey(ch.ID)},
		Outcome: OutcomeStay,
	}, nil
}

// finishActivity honours a done signal only once per activity visit, and
// only for the chapter being shown, so a chapter never advances twice.
func (e *Engine) finishActivity(ch catalog.Chapter, s State, ci int) Transition {
	if s.Phase != PhaseActivity || s.Chapter != ci || s.ActivityDone {
		return stay(s)
	}

	stars := []string{catalog.ActivityKey(ch.ID)}
	if ci+1 < e.cat.Len() {
		return Transition{
			State:   lessonState(ci+1, 0),
			Stars:   stars,
			Outcome: OutcomeNextChapter,
		}
	}
	s.ActivityDone = true
	return Transition{State: s, Stars: stars, Outcome: OutcomeOverview}
}

// check validates s against the catalog and returns its chapter.
func (e *Engine) check(s State) (catalog.Chapter, error) {
	ch, ok := e.cat.Chapter(s.Chapter)
	if !ok {
		return catalog.Chapter{}, fmt.Errorf("chapter %d: %w", s.Chapter, ErrOutOfRange)
	}
	switch s.Phase {
	case PhaseLessons:
		l, ok := e.cat.Lesson(s.Chapter, s.Lesson)
		if !ok || s.Card < 0 || s.Card >= len(l.Cards) {
			return catalog.Chapter{}, fmt.Errorf("lesson %d card %d: %w", s.Lesson, s.Card, ErrOutOfRange)
		}
	case PhaseQuiz:
		q, ok := e.cat.Question(s.Chapter, s.Question)
		if !ok {
			return catalog.Chapter{}, fmt.Errorf("question %d: %w", s.Question, ErrOutOfRange)
		}
		if s.Selected != nil && (*s.Selected < 0 || *s.Selected >= len(q.Options)) {
			return catalog.Chapter{}, fmt.Errorf("selected option %d: %w", *s.Selected, ErrOutOfRange)
		}
	case PhaseActivity:
	default:
		return catalog.Chapter{}, fmt.Errorf("phase %q: %w", s.Phase, ErrWrongPhase)
	}
	return ch, nil
}

func lessonState(ci, li int) State {
	return State{Chapter: ci, Lesson: li, Phase: PhaseLessons}
}

func stay(s State) Transition {
	return Transition{State: s, Outcome: OutcomeStay}
}
