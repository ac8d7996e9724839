// Package scoring turns answer sets into scores, area rankings, titles and tips.
// Everything here is pure given the reference data.
package scoring

import (
	"sort"
	"strings"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
)

// UnknownTitle is returned when no threshold matches a score.
var UnknownTitle = domain.Title{
	Title:       "Unknown",
	Description: "We couldn't classify this score.",
}

// Engine scores answers against one reference data set.
type Engine struct {
	ref    *refdata.Reference
	logger logging.Logger
}

func NewEngine(ref *refdata.Reference, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{ref: ref, logger: logger}
}

// CalculateScores scores area-keyed answers. A question scores 1 only when at
// least one selected option is correct and none is incorrect. Entries that do
// not resolve against the reference data are skipped with a warning.
func (e *Engine) CalculateScores(answers domain.Answers) domain.ScoreResult {
	result := domain.ScoreResult{
		AreaScores:    make(map[int]int, e.ref.AreaCount()),
		AnswerDetails: make(map[string]domain.AnswerDetail),
	}
	for _, area := range e.ref.Areas() {
		result.AreaScores[area.ID] = 0
	}
	if len(answers) == 0 {
		return result
	}

	total := 0
	for _, areaID := range sortedAreaIDs(answers) {
		set := answers[areaID]
		for _, rawID := range sortedQuestionIDs(set) {
			questionID := domain.NormalizeQuestionID(rawID)
			question, ok := e.ref.Question(areaID, questionID)
			if !ok {
				e.logger.Warn("skipping answer for unknown question", "area", areaID, "question", rawID)
				continue
			}

			detail, ok := e.scoreQuestion(areaID, question, set[rawID])
			if !ok {
				continue
			}
			if detail.Correct {
				result.AreaScores[areaID]++
				total++
			}
			result.AnswerDetails[question.ID] = detail
		}
	}

	for areaID, score := range result.AreaScores {
		result.AreaScores[areaID] = clamp(score, 0, e.ref.QuestionCount(areaID))
	}
	result.TotalScore = clamp(total, 0, e.ref.TotalQuestions())
	return result
}

// CalculateFlat scores a flat question -> selection map, attributing each
// question to the area that owns it.
func (e *Engine) CalculateFlat(answers domain.AnswerSet) domain.ScoreResult {
	grouped := make(domain.Answers)
	for rawID, selected := range answers {
		questionID := domain.NormalizeQuestionID(rawID)
		areaID, ok := e.ref.OwnerArea(questionID)
		if !ok {
			e.logger.Warn("skipping answer for unknown question", "question", rawID)
			continue
		}
		if grouped[areaID] == nil {
			grouped[areaID] = make(domain.AnswerSet)
		}
		grouped[areaID][questionID] = append(grouped[areaID][questionID], selected...)
	}
	return e.CalculateScores(grouped)
}

func (e *Engine) scoreQuestion(areaID int, question domain.Question, selected []string) (domain.AnswerDetail, bool) {
	byID := make(map[string]domain.Option, len(question.Options))
	var correctTexts []string
	for _, opt := range question.Options {
		byID[opt.ID] = opt
		if opt.Correct {
			correctTexts = append(correctTexts, opt.Text)
		}
	}

	var selectedTexts []string
	correctPicks, incorrectPicks := 0, 0
	seen := make(map[string]struct{}, len(selected))
	for _, raw := range selected {
		optionID := domain.NormalizeOptionID(raw)
		if optionID == "" {
			continue
		}
		if _, dup := seen[optionID]; dup {
			continue
		}
		seen[optionID] = struct{}{}

		opt, ok := byID[optionID]
		if !ok {
			e.logger.Warn("skipping answer with unknown option", "area", areaID, "question", question.ID, "option", optionID)
			return domain.AnswerDetail{}, false
		}
		selectedTexts = append(selectedTexts, opt.Text)
		if opt.Correct {
			correctPicks++
		} else {
			incorrectPicks++
		}
	}

	correct := correctPicks > 0 && incorrectPicks == 0
	return domain.AnswerDetail{
		AreaID:        areaID,
		QuestionID:    question.ID,
		QuestionText:  question.Text,
		SelectedTexts: selectedTexts,
		CorrectTexts:  correctTexts,
		Correct:       correct,
		Explanation:   e.explain(question, correct, selectedTexts, correctTexts),
	}, true
}

func (e *Engine) explain(question domain.Question, correct bool, selected, correctTexts []string) string {
	templates := e.ref.Scoring().Explanations
	tmpl := templates.Incorrect
	if correct {
		tmpl = templates.Correct
	}
	r := strings.NewReplacer(
		"{correct}", strings.Join(correctTexts, ", "),
		"{selected}", strings.Join(selected, ", "),
		"{description}", question.Description,
	)
	return strings.TrimSpace(r.Replace(tmpl))
}

// StrongestWeakest scans areas in ascending ID order. The strongest area is
// the first one reaching the maximum (strict greater-than). The weakest is the
// first reaching the minimum, except that area 1 is re-selected on any tie it
// takes part in.
func StrongestWeakest(areaScores map[int]int) domain.AreaRanking {
	ranking := domain.AreaRanking{StrongestArea: 1, WeakestArea: 1}
	if len(areaScores) == 0 {
		return ranking
	}

	ids := make([]int, 0, len(areaScores))
	for areaID := range areaScores {
		ids = append(ids, areaID)
	}
	sort.Ints(ids)
	if _, ok := areaScores[1]; !ok {
		ranking = domain.AreaRanking{StrongestArea: ids[0], WeakestArea: ids[0]}
	}

	for _, areaID := range ids {
		score := areaScores[areaID]
		if score > areaScores[ranking.StrongestArea] {
			ranking.StrongestArea = areaID
		}
		if score < areaScores[ranking.WeakestArea] ||
			(score == areaScores[ranking.WeakestArea] && areaID == 1) {
			ranking.WeakestArea = areaID
		}
	}
	return ranking
}

// StrongestWeakest is a convenience wrapper around the package function.
func (e *Engine) StrongestWeakest(areaScores map[int]int) domain.AreaRanking {
	return StrongestWeakest(areaScores)
}

// Title picks the threshold with the highest MinScore not above score.
func (e *Engine) Title(score int) domain.Title {
	for _, t := range e.ref.Scoring().Titles {
		if t.MinScore <= score {
			return t
		}
	}
	return UnknownTitle
}

// Tips returns the raw tips for an area, falling back to the default tips.
// Tips may contain an {area} placeholder for the caller to fill in.
func (e *Engine) Tips(weakestArea int) []string {
	scoring := e.ref.Scoring()
	if tips, ok := scoring.TipsByArea[weakestArea]; ok && len(tips) > 0 {
		return tips
	}
	return scoring.DefaultTips
}

// MaxScore is the configured maximum total score.
func (e *Engine) MaxScore() int {
	return e.ref.MaxScore()
}

func sortedAreaIDs(answers domain.Answers) []int {
	ids := make([]int, 0, len(answers))
	for areaID := range answers {
		ids = append(ids, areaID)
	}
	sort.Ints(ids)
	return ids
}

func sortedQuestionIDs(set domain.AnswerSet) []string {
	ids := make([]string, 0, len(set))
	for questionID := range set {
		ids = append(ids, questionID)
	}
	sort.Strings(ids)
	return ids
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
