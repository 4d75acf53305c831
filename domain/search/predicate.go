package search

// Predicate is one compiled filter condition. The set of variants is closed:
// the store adapter switches over them exhaustively when building SQL.
type Predicate interface {
	// Column returns the column the clause was declared against. For Within
	// this is the declared geo column, not the bound lat/lon pair.
	Column() string

	isPredicate()
}

// Equal matches rows whose column equals a value.
type Equal struct {
	column string
	value  any
}

// NewEqual creates an equality predicate.
func NewEqual(column string, value any) Equal {
	return Equal{column: column, value: value}
}

// Column returns the filtered column.
func (p Equal) Column() string { return p.column }

// Value returns the comparison value.
func (p Equal) Value() any { return p.value }

func (Equal) isPredicate() {}

// InSet matches rows whose column equals any of the values.
type InSet struct {
	column string
	values []any
}

// NewInSet creates a set-membership predicate.
func NewInSet(column string, values []any) InSet {
	vs := make([]any, len(values))
	copy(vs, values)
	return InSet{column: column, values: vs}
}

// Column returns the filtered column.
func (p InSet) Column() string { return p.column }

// Values returns the allowed values.
func (p InSet) Values() []any {
	result := make([]any, len(p.values))
	copy(result, p.values)
	return result
}

func (InSet) isPredicate() {}

// RangeMin matches rows whose column is at least a value.
type RangeMin struct {
	column string
	min    any
}

// NewRangeMin creates a lower-bound predicate.
func NewRangeMin(column string, min any) RangeMin {
	return RangeMin{column: column, min: min}
}

// Column returns the filtered column.
func (p RangeMin) Column() string { return p.column }

// Min returns the inclusive lower bound.
func (p RangeMin) Min() any { return p.min }

func (RangeMin) isPredicate() {}

// RangeMax matches rows whose column is at most a value.
type RangeMax struct {
	column string
	max    any
}

// NewRangeMax creates an upper-bound predicate.
func NewRangeMax(column string, max any) RangeMax {
	return RangeMax{column: column, max: max}
}

// Column returns the filtered column.
func (p RangeMax) Column() string { return p.column }

// Max returns the inclusive upper bound.
func (p RangeMax) Max() any { return p.max }

func (RangeMax) isPredicate() {}

// RangeBoth matches rows whose column lies in an inclusive interval.
type RangeBoth struct {
	column string
	min    any
	max    any
}

// NewRangeBoth creates a bounded-interval predicate.
func NewRangeBoth(column string, min, max any) RangeBoth {
	return RangeBoth{column: column, min: min, max: max}
}

// Column returns the filtered column.
func (p RangeBoth) Column() string { return p.column }

// Min returns the inclusive lower bound.
func (p RangeBoth) Min() any { return p.min }

// Max returns the inclusive upper bound.
func (p RangeBoth) Max() any { return p.max }

func (RangeBoth) isPredicate() {}

// Like matches rows whose column contains the value as a substring. The
// store adapter wraps the value in wildcards when binding.
type Like struct {
	column string
	value  string
}

// NewLike creates a substring predicate.
func NewLike(column, value string) Like {
	return Like{column: column, value: value}
}

// Column returns the filtered column.
func (p Like) Column() string { return p.column }

// Value returns the unwrapped match text.
func (p Like) Value() string { return p.value }

func (Like) isPredicate() {}

// Within matches rows within maxKm kilometers of a center point, measured as
// great-circle distance over the table's bound lat/lon columns.
type Within struct {
	column    string
	latColumn string
	lonColumn string
	centerLat float64
	centerLon float64
	maxKm     float64
}

// NewWithin creates a distance predicate.
func NewWithin(column, latColumn, lonColumn string, centerLat, centerLon, maxKm float64) Within {
	return Within{
		column:    column,
		latColumn: latColumn,
		lonColumn: lonColumn,
		centerLat: centerLat,
		centerLon: centerLon,
		maxKm:     maxKm,
	}
}

// Column returns the declared geo column.
func (p Within) Column() string { return p.column }

// LatColumn returns the bound latitude column.
func (p Within) LatColumn() string { return p.latColumn }

// LonColumn returns the bound longitude column.
func (p Within) LonColumn() string { return p.lonColumn }

// CenterLat returns the center latitude in degrees.
func (p Within) CenterLat() float64 { return p.centerLat }

// CenterLon returns the center longitude in degrees.
func (p Within) CenterLon() float64 { return p.centerLon }

// MaxKm returns the radius in kilometers.
func (p Within) MaxKm() float64 { return p.maxKm }

func (Within) isPredicate() {}
