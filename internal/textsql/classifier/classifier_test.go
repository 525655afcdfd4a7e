package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
		pattern string
	}{
		{"count question", "How many students do we have?", true, "how_many"},
		{"enrolled", "How many students are enrolled?", true, "how_many"},
		{"add teacher", "How do I add a new teacher?", false, "how_do_i"},
		{"unpaid fees", "Show me all unpaid fees", true, "imperative"},
		{"record attendance", "how do I record attendance", false, "how_do_i"},
		{"support wins over data", "How do I add a student?", false, "how_do_i"},
		{"owing list", "List students owing fees", true, "imperative"},
		{"not working", "The fees page is not working", false, "not_working"},
		{"average", "average score in mathematics this term", true, "aggregate"},
		{"ranking", "top 5 classes by attendance", true, "ranking"},
		{"domain noun only", "unpaid balances for JSS1", true, "finance"},
		{"guide", "is there a guide for report cards", false, "guide"},
		{"cannot", "I can't log in", false, "cannot"},
		{"greeting", "hello there", false, ""},
		{"empty", "   ", false, ""},
		{"how much", "how much revenue did we collect in March", true, "how_much"},
		{"where can i", "where can I find attendance reports", false, "where_is"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)
			assert.Equal(t, tt.want, got.IsDataQuery)
			assert.Equal(t, tt.pattern, got.MatchedPattern)
			if tt.want {
				assert.Equal(t, RouteDataQuery, got.Route)
			} else {
				assert.Equal(t, RouteGeneralSupport, got.Route)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	msg := "Show total fees paid per class"
	first := Classify(msg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(msg))
	}
	assert.True(t, IsDataQuery(msg))
}
