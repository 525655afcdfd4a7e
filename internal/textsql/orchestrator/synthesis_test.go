package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-query-workers/internal/models"
)

func TestBuildSynthesisPrompt(t *testing.T) {
	result := models.ExecutionResult{
		Success: true, Columns: []string{"total"},
		Rows: []map[string]interface{}{{"total": 1200}}, RowCount: 1,
	}

	prompt, err := buildSynthesisPrompt("How much did we collect in fees?", result, "NGN")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Amounts are in NGN")
	assert.Contains(t, prompt, `[{"total":1200}]`)
	assert.Contains(t, prompt, "no matching records")

	prompt, err = buildSynthesisPrompt("How many students are there?", result, "NGN")
	require.NoError(t, err)
	assert.NotContains(t, prompt, "NGN")
}

func TestUsableAnswer(t *testing.T) {
	assert.True(t, usableAnswer("You have 42 active students."))
	assert.False(t, usableAnswer("  "))
	assert.False(t, usableAnswer("SELECT COUNT(*) FROM students"))
	assert.False(t, usableAnswer("Filtered on tenant_id, there are 4."))
	assert.False(t, usableAnswer("```\n42\n```"))
	assert.False(t, usableAnswer("I ran SELECT first_name FROM students WHERE status = 'ACTIVE'."))
	assert.False(t, usableAnswer("SELECT s.first_name, c.name FROM students s"))
}

func TestUsableAnswer_AllowsProse(t *testing.T) {
	for _, text := range []string{
		"You can select students from Class 2A on the attendance page.",
		"Select from the list below: Ada, Bola and Chidi are in JSS1A.",
		"The table shows 3 classes. Primary 4 has the most students.",
	} {
		assert.True(t, usableAnswer(text), text)
	}
}

func TestFallbackAnswer(t *testing.T) {
	assert.Equal(t, MsgNoRows, fallbackAnswer("List students", models.ExecutionResult{Success: true}, ""))
	assert.Equal(t, "I found 3 matching records.", fallbackAnswer("List students", models.ExecutionResult{
		Success: true, Columns: []string{"a", "b"}, RowCount: 3,
		Rows: []map[string]interface{}{{}, {}, {}},
	}, ""))
	assert.Equal(t, "The answer is 42.", fallbackAnswer("How many students?", models.ExecutionResult{
		Success: true, Columns: []string{"total"}, RowCount: 1,
		Rows: []map[string]interface{}{{"total": int64(42)}},
	}, "NGN"))
}

func TestRenderTable(t *testing.T) {
	result := models.ExecutionResult{
		Columns: []string{"class_name", "students", "has_teacher"},
		Rows: []map[string]interface{}{
			{"class_name": "JSS1|A", "students": int64(30), "has_teacher": true},
			{"class_name": "JSS1B", "students": nil, "has_teacher": false},
		},
		RowCount: 2,
	}

	want := "| Class Name | Students | Has Teacher |\n" +
		"| --- | --- | --- |\n" +
		"| JSS1\\|A | 30 | Yes |\n" +
		"| JSS1B |  | No |\n"
	assert.Equal(t, want, renderTable(result, 20))
}

func TestRenderTable_ColumnsFromRows(t *testing.T) {
	result := models.ExecutionResult{
		Rows:     []map[string]interface{}{{"b": 2, "a": 1}, {"b": 4, "a": 3}, {"b": 6, "a": 5}},
		RowCount: 3,
	}

	out := renderTable(result, 2)

	assert.Contains(t, out, "| A | B |")
	assert.Contains(t, out, "| 3 | 4 |")
	assert.NotContains(t, out, "| 5 | 6 |")
	assert.Contains(t, out, "_Showing 2 of 3 rows._")
}
