package orchestrator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"school-query-workers/internal/models"
)

// DefaultTableRenderLimit is the most rows rendered under an answer.
const DefaultTableRenderLimit = 20

// renderTable draws up to limit rows as a markdown table.
func renderTable(result models.ExecutionResult, limit int) string {
	if limit <= 0 {
		limit = DefaultTableRenderLimit
	}
	columns := result.Columns
	if len(columns) == 0 && len(result.Rows) > 0 {
		for name := range result.Rows[0] {
			columns = append(columns, name)
		}
		sort.Strings(columns)
	}
	if len(columns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("| ")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(escapeCell(headerLabel(c)))
	}
	sb.WriteString(" |\n|")
	for range columns {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	shown := result.Rows
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, row := range shown {
		sb.WriteString("| ")
		for i, c := range columns {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(escapeCell(formatValue(row[c])))
		}
		sb.WriteString(" |\n")
	}

	if len(result.Rows) > len(shown) {
		fmt.Fprintf(&sb, "\n_Showing %d of %d rows._\n", len(shown), len(result.Rows))
	}
	return sb.String()
}

func headerLabel(column string) string {
	words := strings.Fields(strings.ReplaceAll(column, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func formatValue(v interface{}) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case bool:
		if typed {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(typed)
	}
}
