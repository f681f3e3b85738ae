package catalog

// ActivityType identifies which mini-game widget a chapter ends with.
type ActivityType string

const (
	ActivityMoneyIdea        ActivityType = "money-idea"
	ActivityBudgetBuilder    ActivityType = "budget-builder"
	ActivityInterestCalc     ActivityType = "interest-calc"
	ActivityBizDetective     ActivityType = "biz-detective"
	ActivityRiskRanker       ActivityType = "risk-ranker"
	ActivityPortfolioBuilder ActivityType = "portfolio-builder"
	ActivityCertificate      ActivityType = "certificate"
)

// Valid reports whether t is one of the known activity widgets.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityMoneyIdea, ActivityBudgetBuilder, ActivityInterestCalc,
		ActivityBizDetective, ActivityRiskRanker, ActivityPortfolioBuilder,
		ActivityCertificate:
		return true
	}
	return false
}

// Chapter represents one chapter loaded from YAML.
type Chapter struct {
	ID          int            `yaml:"id" json:"id"`
	Title       string         `yaml:"title" json:"title"`
	Icon        string         `yaml:"icon" json:"icon"`
	Description string         `yaml:"description" json:"description"`
	Lessons     []Lesson       `yaml:"lessons" json:"lessons"`
	Quiz        []QuizQuestion `yaml:"quiz" json:"quiz"`
	Activity    Activity       `yaml:"activity" json:"activity"`
}

// Lesson is an ordered sequence of content cards shown one at a time.
type Lesson struct {
	ID    string   `yaml:"id" json:"id"`
	Title string   `yaml:"title" json:"title"`
	Icon  string   `yaml:"icon" json:"icon"`
	Cards []string `yaml:"cards" json:"cards"`
}

// QuizQuestion is a multiple-choice question. Answer is the index of the
// correct option.
type QuizQuestion struct {
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
	Answer  int      `yaml:"answer" json:"answer"`
}

// Activity describes the widget that closes a chapter.
type Activity struct {
	Type        ActivityType `yaml:"type" json:"type"`
	Title       string       `yaml:"title" json:"title"`
	Description string       `yaml:"description" json:"description"`
}

// Term is a glossary entry used for vocabulary tooltips.
type Term struct {
	Term       string `yaml:"term" json:"term"`
	Definition string `yaml:"definition" json:"definition"`
}

// StarTotal is the number of stars a chapter can award: one per lesson plus
// the quiz and the activity.
func (c Chapter) StarTotal() int {
	return len(c.Lessons) + 2
}
