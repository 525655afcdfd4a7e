// Package classifier decides whether a chat message asks for data from the
// school database or is a support/how-to question.
package classifier

import (
	"regexp"
	"strings"
)

// Route is where a message should go after classification.
type Route string

const (
	RouteDataQuery      Route = "data_query"
	RouteGeneralSupport Route = "general_support"
)

// Classification is the verdict for one message.
type Classification struct {
	IsDataQuery    bool   `json:"isDataQuery"`
	Route          Route  `json:"route"`
	MatchedPattern string `json:"matchedPattern,omitempty"`
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

func compile(name, expr string) pattern {
	return pattern{name: name, re: regexp.MustCompile(`(?i)` + expr)}
}

// Support patterns are checked first and win over any data pattern, so
// "how do I see how many students I have" stays a support question.
var supportPatterns = []pattern{
	compile("how_do_i", `\bhow\s+(do|can|should)\s+i\b`),
	compile("how_to", `\bhow\s+to\b`),
	compile("not_working", `\b(is\s+not|isn'?t|not|doesn'?t|does\s+not)\s+work(ing)?\b`),
	compile("where_is", `\bwhere\s+(can|do)\s+i\b`),
	compile("help_me", `\bhelp\s+me\b`),
	compile("problem_with", `\b(error|issue|problem|bug)s?\s+(with|when|while)\b`),
	compile("cannot", `\b(can'?t|cannot|unable\s+to)\b`),
	compile("steps", `\bsteps?\s+to\b`),
	compile("guide", `\b(guide|tutorial|walkthrough|instructions?)\b`),
	compile("reset_password", `\b(reset|change|forgot)\s+(my\s+)?password\b`),
}

var dataPatterns = []pattern{
	compile("how_many", `\bhow\s+many\b`),
	compile("how_much", `\bhow\s+much\b`),
	compile("aggregate", `\b(count|total|sum|average|avg|mean|number\s+of)\b`),
	compile("ranking", `\b(top|bottom|highest|lowest|most|least|best|worst)\b`),
	compile("imperative", `^\s*(please\s+)?(list|show|find|display|give\s+me|get|fetch|which|who|what\s+(is|are|was|were))\b`),
	compile("breakdown", `\b(per|by|breakdown|grouped|each)\s+(class|term|gender|month|subject|status|teacher)\b`),
	compile("people", `\b(students?|pupils?|learners?|teachers?|staff|guardians?|parents?)\b`),
	compile("finance", `\b(fees?|payments?|paid|revenue|income|expenses?|owing|owe|unpaid|outstanding|balances?|debtors?|arrears)\b`),
	compile("academics", `\b(attendance|absent|present|late|grades?|scores?|results?|exams?|marks?|classes|subjects?|terms?)\b`),
	compile("enrolment", `\b(enrolled|enrollment|enrolment|admitted|admissions?|graduated|withdrawn|suspended)\b`),
}

// Classify returns the route for message. Empty messages are not data queries.
func Classify(message string) Classification {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Classification{Route: RouteGeneralSupport}
	}

	for _, p := range supportPatterns {
		if p.re.MatchString(msg) {
			return Classification{Route: RouteGeneralSupport, MatchedPattern: p.name}
		}
	}

	for _, p := range dataPatterns {
		if p.re.MatchString(msg) {
			return Classification{IsDataQuery: true, Route: RouteDataQuery, MatchedPattern: p.name}
		}
	}

	return Classification{Route: RouteGeneralSupport}
}

// IsDataQuery is shorthand for Classify(message).IsDataQuery.
func IsDataQuery(message string) bool {
	return Classify(message).IsDataQuery
}
