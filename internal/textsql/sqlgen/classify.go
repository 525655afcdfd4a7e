package sqlgen

import (
	"regexp"

	"school-query-workers/internal/models"
)

var (
	countCall     = regexp.MustCompile(`(?i)\bCOUNT\s*\(`)
	aggregateCall = regexp.MustCompile(`(?i)\b(SUM|AVG|MAX|MIN)\s*\(`)
	groupBy       = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
)

// ClassifyQuery labels a validated statement by the shape of its result.
// Literals are masked first so words inside strings never count.
func ClassifyQuery(sql string) models.QueryType {
	m, _ := maskSQL(sql)
	grouped := groupBy.MatchString(m.text)

	switch {
	case countCall.MatchString(m.text) && !grouped:
		return models.QueryTypeCount
	case aggregateCall.MatchString(m.text):
		return models.QueryTypeAggregate
	case grouped:
		return models.QueryTypeGrouped
	default:
		return models.QueryTypeList
	}
}
