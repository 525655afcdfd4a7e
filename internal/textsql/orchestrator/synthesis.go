package orchestrator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"school-query-workers/internal/models"
)

// synthesisRowLimit bounds the rows quoted in the synthesis prompt.
const synthesisRowLimit = 50

var (
	moneyQuestion = regexp.MustCompile(`(?i)\b(fees?|paid|pay(ment)?s?|revenue|income|expenses?|spen[dt]|spending|cost|owe[sd]?|owing|balance|outstanding|collected|collect|salar(y|ies)|money|amount|debt)\b`)

	// Query text is upper-case keywords with either SQL punctuation in the
	// select list or a clause after the FROM target. Prose such as "select
	// students from Class 2A" matches neither.
	leakedSQL = []*regexp.Regexp{
		regexp.MustCompile(`\bSELECT\s+[^!?\n]*?[*(,][^!?\n]*?\bFROM\s+\w+`),
		regexp.MustCompile(`\bSELECT\b[^!?\n]*?\bFROM\s+[\w.]+(\s+(AS\s+)?\w+)?\s+(WHERE|JOIN|GROUP\s+BY|ORDER\s+BY|LIMIT)\b`),
		regexp.MustCompile("(?i)(```|\\btenant_id\\b|\\bis_deleted\\b)"),
	}
)

func isMoneyQuestion(question string) bool {
	return moneyQuestion.MatchString(question)
}

// buildSynthesisPrompt asks for a plain-language answer built only from
// result.
func buildSynthesisPrompt(question string, result models.ExecutionResult, currency string) (string, error) {
	rows := result.Rows
	if len(rows) > synthesisRowLimit {
		rows = rows[:synthesisRowLimit]
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(`You answer questions from school staff using the query results below.

RULES:
1. Use only the rows given. Never invent names, numbers or dates.
2. If there are no rows, say plainly that no matching records were found.
3. Keep the answer short and conversational. Do not list more than a few items; a table is shown separately.
4. Never mention SQL, queries, databases, tables, columns or how the answer was produced.
`)
	if currency != "" && isMoneyQuestion(question) {
		fmt.Fprintf(&sb, "5. Amounts are in %s. Write them with the currency.\n", currency)
	}

	fmt.Fprintf(&sb, "\nQUESTION:\n%s\n\nROW COUNT: %d\n", strings.TrimSpace(question), result.RowCount)
	if result.Truncated || len(rows) < len(result.Rows) {
		fmt.Fprintf(&sb, "ONLY THE FIRST %d ROWS ARE SHOWN.\n", len(rows))
	}
	fmt.Fprintf(&sb, "ROWS (JSON):\n%s\n\nANSWER:\n", data)
	return sb.String(), nil
}

// usableAnswer rejects empty answers and answers that leak query text.
func usableAnswer(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, re := range leakedSQL {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// fallbackAnswer is the deterministic answer used when synthesis leaks
// query text.
func fallbackAnswer(question string, result models.ExecutionResult, currency string) string {
	switch {
	case result.RowCount == 0:
		return MsgNoRows
	case result.RowCount == 1 && len(result.Columns) == 1:
		value := formatValue(result.Rows[0][result.Columns[0]])
		if currency != "" && isMoneyQuestion(question) {
			value = currency + " " + value
		}
		return fmt.Sprintf("The answer is %s.", value)
	case result.Truncated:
		return fmt.Sprintf("I found more than %d matching records. Here are the first %d.", result.RowCount, result.RowCount)
	case result.RowCount == 1:
		return "I found 1 matching record."
	default:
		return fmt.Sprintf("I found %d matching records.", result.RowCount)
	}
}
