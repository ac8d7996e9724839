package app

import (
	"math"
	"strings"
	"time"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
	"myth-quiz-service/internal/scoring"
)

// Assembler turns stored answers into a Report.
type Assembler struct {
	ref    *refdata.Reference
	engine *scoring.Engine
	logger logging.Logger
}

func NewAssembler(ref *refdata.Reference, engine *scoring.Engine, logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{ref: ref, engine: engine, logger: logger}
}

// Build assembles the report from the final results snapshot when one exists,
// otherwise from the live state. It returns domain.ErrQuizNotTaken when there
// is nothing to score and domain.ErrRestartQuiz when scoring fails.
func (a *Assembler) Build(state domain.QuizState, snapshot *domain.FinalResults) (report domain.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("failed to assemble report", "panic", r)
			report, err = domain.Report{}, domain.ErrRestartQuiz
		}
	}()

	stored := state.Answers
	var completedAt *time.Time
	if snapshot != nil && hasAnswers(snapshot.Answers) {
		stored = snapshot.Answers
		at := snapshot.CompletedAt
		completedAt = &at
	}
	if !hasAnswers(stored) {
		return domain.Report{}, domain.ErrQuizNotTaken
	}

	scores := a.engine.CalculateFlat(flatten(stored))
	ranking := a.engine.StrongestWeakest(scores.AreaScores)
	title := a.engine.Title(scores.TotalScore)
	maxScore := a.engine.MaxScore()

	report = domain.Report{
		UserName:          state.UserName,
		TotalScore:        scores.TotalScore,
		MaxScore:          maxScore,
		Percentage:        percentage(scores.TotalScore, maxScore),
		AreaScores:        scores.AreaScores,
		Title:             title.Title,
		Description:       title.Description,
		StrongestArea:     ranking.StrongestArea,
		StrongestAreaName: a.ref.AreaName(ranking.StrongestArea),
		WeakestArea:       ranking.WeakestArea,
		WeakestAreaName:   a.ref.AreaName(ranking.WeakestArea),
		AnswerDetails:     scores.AnswerDetails,
		CompletedAt:       completedAt,
	}
	report.Tips = fillAreaName(a.engine.Tips(ranking.WeakestArea), report.WeakestAreaName)
	for _, area := range a.ref.Areas() {
		report.Areas = append(report.Areas, domain.AreaResult{
			AreaID:   area.ID,
			Name:     area.Name,
			Score:    scores.AreaScores[area.ID],
			MaxScore: a.ref.QuestionCount(area.ID),
		})
	}
	return report, nil
}

func hasAnswers(stored map[int]domain.AreaAnswers) bool {
	for _, area := range stored {
		if area.Answers.Answered() > 0 {
			return true
		}
	}
	return false
}

// flatten merges the per-area answer sets into one question -> selection map.
func flatten(stored map[int]domain.AreaAnswers) domain.AnswerSet {
	flat := make(domain.AnswerSet)
	for _, area := range stored {
		for questionID, selected := range area.Answers {
			flat[questionID] = append(flat[questionID], selected...)
		}
	}
	return flat
}

// percentage is total/max as a percentage rounded to one decimal; degenerate
// inputs yield 0.
func percentage(total, maxScore int) float64 {
	if maxScore <= 0 {
		return 0
	}
	p := float64(total) / float64(maxScore) * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return math.Round(p*10) / 10
}

func fillAreaName(tips []string, areaName string) []string {
	out := make([]string, len(tips))
	for i, tip := range tips {
		out[i] = strings.ReplaceAll(tip, "{area}", areaName)
	}
	return out
}
