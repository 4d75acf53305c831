package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/findexhq/findex/domain/schema"
)

// Clause couples a compiled predicate with the descriptor it was compiled
// against.
type Clause struct {
	predicate Predicate
	kind      schema.FilterKind
	dataType  schema.DataType
}

// NewClause creates a compiled clause.
func NewClause(predicate Predicate, kind schema.FilterKind, dataType schema.DataType) Clause {
	return Clause{predicate: predicate, kind: kind, dataType: dataType}
}

// Predicate returns the compiled predicate.
func (c Clause) Predicate() Predicate { return c.predicate }

// Kind returns the originating filter kind.
func (c Clause) Kind() schema.FilterKind { return c.kind }

// DataType returns the originating data type.
func (c Clause) DataType() schema.DataType { return c.dataType }

// Filters is an ordered collection of compiled clauses. Order follows the
// first occurrence of each column in the filter string; a repeated column
// replaces its clause in place.
type Filters struct {
	clauses []Clause
}

// NewFilters creates a Filters from compiled clauses.
func NewFilters(clauses ...Clause) Filters {
	if len(clauses) == 0 {
		return Filters{}
	}
	cs := make([]Clause, len(clauses))
	copy(cs, clauses)
	return Filters{clauses: cs}
}

// Clauses returns the compiled clauses in order.
func (f Filters) Clauses() []Clause {
	if f.clauses == nil {
		return nil
	}
	result := make([]Clause, len(f.clauses))
	copy(result, f.clauses)
	return result
}

// Predicates returns the compiled predicates in clause order.
func (f Filters) Predicates() []Predicate {
	result := make([]Predicate, 0, len(f.clauses))
	for _, c := range f.clauses {
		result = append(result, c.predicate)
	}
	return result
}

// IsEmpty reports whether no clauses survived compilation.
func (f Filters) IsEmpty() bool {
	return len(f.clauses) == 0
}

// Len returns the number of clauses.
func (f Filters) Len() int {
	return len(f.clauses)
}

// String re-serializes the clauses in the wire DSL. Compiling the result
// yields an equal Filters.
func (f Filters) String() string {
	parts := make([]string, 0, len(f.clauses))
	for _, c := range f.clauses {
		parts = append(parts, c.serialize())
	}
	return strings.Join(parts, ";")
}

func (c Clause) serialize() string {
	switch p := c.predicate.(type) {
	case Equal:
		return p.Column() + ":" + formatValue(p.Value())
	case InSet:
		values := p.Values()
		tokens := make([]string, 0, len(values))
		for _, v := range values {
			tokens = append(tokens, formatValue(v))
		}
		return p.Column() + ":" + strings.Join(tokens, ",")
	case RangeMin:
		return p.Column() + ":" + formatValue(p.Min()) + "-"
	case RangeMax:
		return p.Column() + ":-" + formatValue(p.Max())
	case RangeBoth:
		return p.Column() + ":" + formatValue(p.Min()) + "-" + formatValue(p.Max())
	case Like:
		return p.Column() + ":" + p.Value()
	case Within:
		return fmt.Sprintf("%s:%s,%s,%s",
			p.Column(),
			formatValue(p.CenterLat()),
			formatValue(p.CenterLon()),
			formatValue(p.MaxKm()))
	}
	return ""
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format("2006-01-02T15:04:05Z07:00")
	}
	return fmt.Sprintf("%v", v)
}
