package domain

import "time"

// Area is a thematic group of questions. Areas are played in ascending ID order.
type Area struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a multiple-choice question; several options may be correct.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	Description string   `json:"description,omitempty"`
}

// AnswerSet maps a question ID to the selected option IDs within one area.
// A missing entry or an empty list means the question is unanswered.
type AnswerSet map[string][]string

// Answers groups answer sets by area ID.
type Answers map[int]AnswerSet

// AreaAnswers is what gets stored for a submitted area. Score is cached at
// submission time and only used as a display hint.
type AreaAnswers struct {
	Answers AnswerSet `json:"answers"`
	Score   int       `json:"score"`
}

// QuizState is the persisted progress document of one quiz session.
type QuizState struct {
	UserName       string              `json:"userName"`
	CurrentArea    int                 `json:"currentArea"`
	Answers        map[int]AreaAnswers `json:"answers"`
	CompletedAreas []int               `json:"completedAreas"`
	QuizCompleted  bool                `json:"quizCompleted"`
}

// NewQuizState returns the default state of a quiz that has not been started.
func NewQuizState() QuizState {
	return QuizState{
		CurrentArea:    1,
		Answers:        make(map[int]AreaAnswers),
		CompletedAreas: []int{},
	}
}

// Clone returns a deep copy so callers cannot mutate machine-owned state.
func (s QuizState) Clone() QuizState {
	out := s
	out.Answers = make(map[int]AreaAnswers, len(s.Answers))
	for areaID, area := range s.Answers {
		out.Answers[areaID] = AreaAnswers{Answers: area.Answers.Clone(), Score: area.Score}
	}
	out.CompletedAreas = append([]int{}, s.CompletedAreas...)
	return out
}

// IsAreaCompleted reports whether the area was submitted at least once.
func (s QuizState) IsAreaCompleted(areaID int) bool {
	for _, id := range s.CompletedAreas {
		if id == areaID {
			return true
		}
	}
	return false
}

// RawAnswers drops the cached scores and keeps only the selections.
func (s QuizState) RawAnswers() Answers {
	return RawAnswers(s.Answers)
}

// RawAnswers drops the cached scores from a stored answer map.
func RawAnswers(stored map[int]AreaAnswers) Answers {
	out := make(Answers, len(stored))
	for areaID, area := range stored {
		out[areaID] = area.Answers.Clone()
	}
	return out
}

// Clone copies the answer set including the selection slices.
func (a AnswerSet) Clone() AnswerSet {
	if a == nil {
		return AnswerSet{}
	}
	out := make(AnswerSet, len(a))
	for questionID, selected := range a {
		out[questionID] = append([]string{}, selected...)
	}
	return out
}

// Answered counts the questions with at least one selection.
func (a AnswerSet) Answered() int {
	n := 0
	for _, selected := range a {
		if len(selected) > 0 {
			n++
		}
	}
	return n
}

// FinalResults is the snapshot written when the quiz is completed. It stays
// readable after the live state is reset.
type FinalResults struct {
	TotalScore  int                 `json:"totalScore"`
	Answers     map[int]AreaAnswers `json:"answers"`
	CompletedAt time.Time           `json:"completedAt"`
}

// AnswerDetail describes how a single answered question was scored.
type AnswerDetail struct {
	AreaID        int      `json:"areaId"`
	QuestionID    string   `json:"questionId"`
	QuestionText  string   `json:"questionText"`
	SelectedTexts []string `json:"selectedTexts"`
	CorrectTexts  []string `json:"correctTexts"`
	Correct       bool     `json:"correct"`
	Explanation   string   `json:"explanation"`
}

// ScoreResult is the output of the scoring engine.
type ScoreResult struct {
	TotalScore    int                     `json:"totalScore"`
	AreaScores    map[int]int             `json:"areaScores"`
	AnswerDetails map[string]AnswerDetail `json:"answerDetails"`
}

// AreaRanking names the strongest and weakest areas of a result.
type AreaRanking struct {
	StrongestArea int `json:"strongestArea"`
	WeakestArea   int `json:"weakestArea"`
}

// Title is a score classification. The entry with the highest MinScore not
// above the score applies.
type Title struct {
	MinScore    int    `json:"minScore"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AreaResult is one row of the per-area breakdown in a report.
type AreaResult struct {
	AreaID   int    `json:"areaId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
}

// Report is the display-ready result of a completed quiz.
type Report struct {
	UserName          string                  `json:"userName"`
	TotalScore        int                     `json:"totalScore"`
	MaxScore          int                     `json:"maxScore"`
	Percentage        float64                 `json:"percentage"`
	AreaScores        map[int]int             `json:"areaScores"`
	Areas             []AreaResult            `json:"areas"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Tips              []string                `json:"tips"`
	StrongestArea     int                     `json:"strongestArea"`
	StrongestAreaName string                  `json:"strongestAreaName"`
	WeakestArea       int                     `json:"weakestArea"`
	WeakestAreaName   string                  `json:"weakestAreaName"`
	AnswerDetails     map[string]AnswerDetail `json:"answerDetails"`
	CompletedAt       *time.Time              `json:"completedAt,omitempty"`
}
