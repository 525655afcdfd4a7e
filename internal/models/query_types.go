// internal/models/query_types.go
package models

// QueryType is the answer shape of a generated statement. It drives
// whether the answer gets a table appended.
type QueryType string

const (
	QueryTypeCount     QueryType = "count"
	QueryTypeAggregate QueryType = "aggregate"
	QueryTypeGrouped   QueryType = "grouped"
	QueryTypeList      QueryType = "list"
)

// Tabular reports whether results of this shape are shown as a table.
func (q QueryType) Tabular() bool {
	return q == QueryTypeList || q == QueryTypeGrouped
}
