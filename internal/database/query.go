package database

import (
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

// identifierPattern is the last line of defense before a table or column
// name reaches SQL text. Values never take this path; they are always bound.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ErrBadIdentifier reports a table or column name unsafe to interpolate.
var ErrBadIdentifier = fmt.Errorf("identifier must match %s", identifierPattern)

// ValidIdentifier reports whether s may be interpolated into SQL text.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// FilterOperator represents the supported SQL comparison shapes.
type FilterOperator int

// FilterOperator values.
const (
	OpEqual FilterOperator = iota
	OpIn
	OpAtLeast
	OpAtMost
	OpBetween
	OpContains
	OpWithinKm
)

// String returns a diagnostic representation of the operator.
func (o FilterOperator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpIn:
		return "IN"
	case OpAtLeast:
		return ">="
	case OpAtMost:
		return "<="
	case OpBetween:
		return "BETWEEN"
	case OpContains:
		return "LIKE"
	case OpWithinKm:
		return "WITHIN"
	default:
		return "="
	}
}

// Filter is a single WHERE condition.
type Filter struct {
	field    string
	operator FilterOperator
	value    any
	value2   any // upper bound for BETWEEN

	// distance condition fields
	latField  string
	lonField  string
	centerLat float64
	centerLon float64
	radiusKm  float64
}

// NewFilter creates a single-valued filter condition.
func NewFilter(field string, operator FilterOperator, value any) Filter {
	return Filter{field: field, operator: operator, value: value}
}

// NewBetweenFilter creates an inclusive interval condition.
func NewBetweenFilter(field string, low, high any) Filter {
	return Filter{field: field, operator: OpBetween, value: low, value2: high}
}

// NewDistanceFilter creates a great-circle distance condition over a lat/lon
// column pair.
func NewDistanceFilter(latField, lonField string, centerLat, centerLon, radiusKm float64) Filter {
	return Filter{
		operator:  OpWithinKm,
		latField:  latField,
		lonField:  lonField,
		centerLat: centerLat,
		centerLon: centerLon,
		radiusKm:  radiusKm,
	}
}

// Field returns the condition's column name.
func (f Filter) Field() string { return f.field }

// Operator returns the condition's operator.
func (f Filter) Operator() FilterOperator { return f.operator }

// Value returns the condition's bound value.
func (f Filter) Value() any { return f.value }

// Query accumulates WHERE conditions and a limit, then applies them to a
// GORM session. Conditions are ANDed.
type Query struct {
	filters []Filter
	limit   int
}

// NewQuery creates an empty Query.
func NewQuery() Query {
	return Query{}
}

// Equal adds an equality condition.
func (q Query) Equal(field string, value any) Query {
	q.filters = append(q.filters, NewFilter(field, OpEqual, value))
	return q
}

// In adds a set-membership condition. values must be a slice.
func (q Query) In(field string, values any) Query {
	q.filters = append(q.filters, NewFilter(field, OpIn, values))
	return q
}

// AtLeast adds an inclusive lower-bound condition.
func (q Query) AtLeast(field string, value any) Query {
	q.filters = append(q.filters, NewFilter(field, OpAtLeast, value))
	return q
}

// AtMost adds an inclusive upper-bound condition.
func (q Query) AtMost(field string, value any) Query {
	q.filters = append(q.filters, NewFilter(field, OpAtMost, value))
	return q
}

// Between adds an inclusive interval condition.
func (q Query) Between(field string, low, high any) Query {
	q.filters = append(q.filters, NewBetweenFilter(field, low, high))
	return q
}

// Contains adds a substring condition; the value is wrapped in wildcards
// when bound.
func (q Query) Contains(field, value string) Query {
	q.filters = append(q.filters, NewFilter(field, OpContains, value))
	return q
}

// WithinKm adds a great-circle distance condition.
func (q Query) WithinKm(latField, lonField string, centerLat, centerLon, radiusKm float64) Query {
	q.filters = append(q.filters, NewDistanceFilter(latField, lonField, centerLat, centerLon, radiusKm))
	return q
}

// Limit caps the number of rows. Zero means unbounded.
func (q Query) Limit(limit int) Query {
	q.limit = limit
	return q
}

// Filters returns the accumulated conditions.
func (q Query) Filters() []Filter {
	result := make([]Filter, len(q.filters))
	copy(result, q.filters)
	return result
}

// LimitValue returns the limit, zero meaning unbounded.
func (q Query) LimitValue() int {
	return q.limit
}

// Apply validates every interpolated identifier and applies the conditions
// to the session. The distance condition dispatches on the dialect: sqlite
// calls the registered haversine() function, MySQL and Postgres share an
// arithmetic form of the same formula.
func (q Query) Apply(db *gorm.DB) (*gorm.DB, error) {
	result := db
	for _, filter := range q.filters {
		applied, err := applyFilter(result, filter)
		if err != nil {
			return nil, err
		}
		result = applied
	}
	if q.limit > 0 {
		result = result.Limit(q.limit)
	}
	return result, nil
}

func applyFilter(db *gorm.DB, filter Filter) (*gorm.DB, error) {
	if filter.operator == OpWithinKm {
		return applyDistanceFilter(db, filter)
	}

	if !ValidIdentifier(filter.field) {
		return nil, fmt.Errorf("column %q: %w", filter.field, ErrBadIdentifier)
	}

	switch filter.operator {
	case OpEqual:
		return db.Where(fmt.Sprintf("%s = ?", filter.field), filter.value), nil
	case OpIn:
		return db.Where(fmt.Sprintf("%s IN ?", filter.field), filter.value), nil
	case OpAtLeast:
		return db.Where(fmt.Sprintf("%s >= ?", filter.field), filter.value), nil
	case OpAtMost:
		return db.Where(fmt.Sprintf("%s <= ?", filter.field), filter.value), nil
	case OpBetween:
		return db.Where(fmt.Sprintf("%s BETWEEN ? AND ?", filter.field), filter.value, filter.value2), nil
	case OpContains:
		return db.Where(fmt.Sprintf("%s LIKE ?", filter.field), fmt.Sprintf("%%%v%%", filter.value)), nil
	}
	return nil, fmt.Errorf("unsupported filter operator %v", filter.operator)
}

func applyDistanceFilter(db *gorm.DB, filter Filter) (*gorm.DB, error) {
	if !ValidIdentifier(filter.latField) {
		return nil, fmt.Errorf("latitude column %q: %w", filter.latField, ErrBadIdentifier)
	}
	if !ValidIdentifier(filter.lonField) {
		return nil, fmt.Errorf("longitude column %q: %w", filter.lonField, ErrBadIdentifier)
	}

	if db.Dialector.Name() == string(DialectSQLite) {
		cond := fmt.Sprintf("haversine(%s, %s, ?, ?) <= ?", filter.latField, filter.lonField)
		return db.Where(cond, filter.centerLat, filter.centerLon, filter.radiusKm), nil
	}

	cond := fmt.Sprintf(
		"(2 * %d * ASIN(SQRT(POWER(SIN(RADIANS(%s - ?) / 2), 2) + COS(RADIANS(?)) * COS(RADIANS(%s)) * POWER(SIN(RADIANS(%s - ?) / 2), 2)))) <= ?",
		earthRadiusKm, filter.latField, filter.latField, filter.lonField,
	)
	return db.Where(cond, filter.centerLat, filter.centerLat, filter.centerLon, filter.radiusKm), nil
}
