package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"myth-quiz-service/internal/domain"
)

func TestWriteReport(t *testing.T) {
	completedAt := time.Date(2024, 11, 22, 10, 30, 0, 0, time.UTC)
	report := domain.Report{
		UserName:          "Alice",
		TotalScore:        4,
		MaxScore:          15,
		Percentage:        26.7,
		Title:             "Casual Dater",
		Tips:              []string{"tip one", "tip two"},
		StrongestAreaName: "First Impressions",
		WeakestAreaName:   "Relationship Expectations",
		Areas: []domain.AreaResult{
			{AreaID: 1, Name: "First Impressions", Score: 3, MaxScore: 3},
			{AreaID: 2, Name: "Online Dating", Score: 1, MaxScore: 3},
		},
		AnswerDetails: map[string]domain.AnswerDetail{
			"q2a": {AreaID: 2, QuestionID: "q2a", QuestionText: "Second", SelectedTexts: []string{"B"}, Correct: true},
			"q1a": {AreaID: 1, QuestionID: "q1a", QuestionText: "First", SelectedTexts: []string{"A", "C"}, Correct: false},
		},
		CompletedAt: &completedAt,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetAreas, SheetAnswers}, f.GetSheetList())

	name, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	score, _ := f.GetCellValue(SheetSummary, "B2")
	assert.Equal(t, "4", score)
	title, _ := f.GetCellValue(SheetSummary, "B5")
	assert.Equal(t, "Casual Dater", title)
	completed, _ := f.GetCellValue(SheetSummary, "B10")
	assert.Equal(t, "2024-11-22 10:30:00", completed)

	areaRows, err := f.GetRows(SheetAreas)
	require.NoError(t, err)
	require.Len(t, areaRows, 3)
	assert.Equal(t, []string{"2", "Online Dating", "1", "3"}, areaRows[2])

	answerRows, err := f.GetRows(SheetAnswers)
	require.NoError(t, err)
	require.Len(t, answerRows, 3)
	assert.Equal(t, "q1a", answerRows[1][1])
	assert.Equal(t, "A; C", answerRows[1][3])
	assert.Equal(t, "Incorrect", answerRows[1][5])
	assert.Equal(t, "Correct", answerRows[2][5])
}
