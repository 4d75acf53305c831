// Package schema declares the searchable tables: their text columns, filter
// descriptors and geo column bindings. Declarations are immutable after
// construction.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Schema construction errors.
var (
	ErrBadIdentifier  = errors.New("identifier must match ^[A-Za-z0-9_]+$")
	ErrUnknownKind    = errors.New("unknown filter kind")
	ErrUnknownType    = errors.New("unknown data type")
	ErrMissingGeoBind = errors.New("distance filter requires latitude and longitude columns")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidIdentifier reports whether s is safe to interpolate into SQL as a
// table or column name.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// FilterKind classifies how a filter value string is parsed and applied.
type FilterKind string

// FilterKind values.
const (
	KindExact    FilterKind = "exact"
	KindIn       FilterKind = "in"
	KindRange    FilterKind = "range"
	KindLike     FilterKind = "like"
	KindDistance FilterKind = "distance"
)

// ParseFilterKind converts a configuration string to a FilterKind.
func ParseFilterKind(s string) (FilterKind, error) {
	switch FilterKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindExact:
		return KindExact, nil
	case KindIn:
		return KindIn, nil
	case KindRange:
		return KindRange, nil
	case KindLike:
		return KindLike, nil
	case KindDistance:
		return KindDistance, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// DataType is the declared type of a filterable column.
type DataType string

// DataType values.
const (
	TypeInt     DataType = "int"
	TypeDecimal DataType = "decimal"
	TypeString  DataType = "string"
	TypeEnum    DataType = "enum"
	TypeDate    DataType = "date"
	TypeGeo     DataType = "geo"
)

// ParseDataType converts a configuration string to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch DataType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeInt:
		return TypeInt, nil
	case TypeDecimal:
		return TypeDecimal, nil
	case TypeString:
		return TypeString, nil
	case TypeEnum:
		return TypeEnum, nil
	case TypeDate:
		return TypeDate, nil
	case TypeGeo:
		return TypeGeo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Filter describes one filterable column of a table.
type Filter struct {
	column     string
	kind       FilterKind
	dataType   DataType
	enumValues []string
}

// FilterOption is a functional option for Filter.
type FilterOption func(*Filter)

// WithEnumValues sets the allowed values for an enum column.
func WithEnumValues(values ...string) FilterOption {
	return func(f *Filter) {
		if values != nil {
			f.enumValues = make([]string, len(values))
			copy(f.enumValues, values)
		}
	}
}

// NewFilter creates a filter descriptor for a column.
func NewFilter(column string, kind FilterKind, dataType DataType, opts ...FilterOption) (Filter, error) {
	if !ValidIdentifier(column) {
		return Filter{}, fmt.Errorf("filter column %q: %w", column, ErrBadIdentifier)
	}
	if _, err := ParseFilterKind(string(kind)); err != nil {
		return Filter{}, err
	}
	if _, err := ParseDataType(string(dataType)); err != nil {
		return Filter{}, err
	}
	if kind == KindDistance && dataType != TypeGeo {
		return Filter{}, fmt.Errorf("filter column %q: distance filters require the geo data type", column)
	}
	f := Filter{column: column, kind: kind, dataType: dataType}
	for _, opt := range opts {
		opt(&f)
	}
	return f, nil
}

// Column returns the column name.
func (f Filter) Column() string { return f.column }

// Kind returns the filter kind.
func (f Filter) Kind() FilterKind { return f.kind }

// DataType returns the declared data type.
func (f Filter) DataType() DataType { return f.dataType }

// EnumValues returns the enum allowlist, nil when unrestricted.
func (f Filter) EnumValues() []string {
	if f.enumValues == nil {
		return nil
	}
	result := make([]string, len(f.enumValues))
	copy(result, f.enumValues)
	return result
}

// AllowsEnum reports whether value is in the enum allowlist, comparing
// case-insensitively. An empty allowlist allows everything.
func (f Filter) AllowsEnum(value string) bool {
	if len(f.enumValues) == 0 {
		return true
	}
	for _, v := range f.enumValues {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// Table is the immutable declaration of one searchable table.
type Table struct {
	name            string
	textColumns     []string
	hybrid          bool
	filters         []Filter
	filtersByColumn map[string]Filter
	latitudeColumn  string
	longitudeColumn string
}

// TableOption is a functional option for Table.
type TableOption func(*Table)

// WithTextColumns sets the ordered columns used for lexical and semantic
// indexing.
func WithTextColumns(columns ...string) TableOption {
	return func(t *Table) {
		if columns != nil {
			t.textColumns = make([]string, len(columns))
			copy(t.textColumns, columns)
		}
	}
}

// WithHybrid marks the table as hybrid, enabling semantic retrieval and a
// persistent vector index.
func WithHybrid() TableOption {
	return func(t *Table) {
		t.hybrid = true
	}
}

// WithFilters sets the filter descriptors.
func WithFilters(filters ...Filter) TableOption {
	return func(t *Table) {
		if filters != nil {
			t.filters = make([]Filter, len(filters))
			copy(t.filters, filters)
		}
	}
}

// WithGeoColumns binds the latitude and longitude columns used by distance
// filters.
func WithGeoColumns(latitude, longitude string) TableOption {
	return func(t *Table) {
		t.latitudeColumn = latitude
		t.longitudeColumn = longitude
	}
}

// NewTable creates and validates a table declaration.
func NewTable(name string, opts ...TableOption) (Table, error) {
	if !ValidIdentifier(name) {
		return Table{}, fmt.Errorf("table %q: %w", name, ErrBadIdentifier)
	}

	t := Table{name: name}
	for _, opt := range opts {
		opt(&t)
	}

	for _, col := range t.textColumns {
		if !ValidIdentifier(col) {
			return Table{}, fmt.Errorf("table %q text column %q: %w", name, col, ErrBadIdentifier)
		}
	}

	t.filtersByColumn = make(map[string]Filter, len(t.filters))
	for _, f := range t.filters {
		if f.column == "" {
			return Table{}, fmt.Errorf("table %q: filter descriptors must be built with NewFilter", name)
		}
		if f.kind == KindDistance && (t.latitudeColumn == "" || t.longitudeColumn == "") {
			return Table{}, fmt.Errorf("table %q filter %q: %w", name, f.column, ErrMissingGeoBind)
		}
		t.filtersByColumn[f.column] = f
	}

	if t.latitudeColumn != "" && !ValidIdentifier(t.latitudeColumn) {
		return Table{}, fmt.Errorf("table %q latitude column %q: %w", name, t.latitudeColumn, ErrBadIdentifier)
	}
	if t.longitudeColumn != "" && !ValidIdentifier(t.longitudeColumn) {
		return Table{}, fmt.Errorf("table %q longitude column %q: %w", name, t.longitudeColumn, ErrBadIdentifier)
	}

	return t, nil
}

// Name returns the table name.
func (t Table) Name() string { return t.name }

// TextColumns returns the ordered indexing columns.
func (t Table) TextColumns() []string {
	if t.textColumns == nil {
		return nil
	}
	result := make([]string, len(t.textColumns))
	copy(result, t.textColumns)
	return result
}

// Hybrid reports whether semantic retrieval is enabled for the table.
func (t Table) Hybrid() bool { return t.hybrid }

// Filters returns the declared filter descriptors.
func (t Table) Filters() []Filter {
	if t.filters == nil {
		return nil
	}
	result := make([]Filter, len(t.filters))
	copy(result, t.filters)
	return result
}

// FilterFor returns the descriptor declared for column.
func (t Table) FilterFor(column string) (Filter, bool) {
	f, ok := t.filtersByColumn[column]
	return f, ok
}

// LatitudeColumn returns the bound latitude column, empty when absent.
func (t Table) LatitudeColumn() string { return t.latitudeColumn }

// LongitudeColumn returns the bound longitude column, empty when absent.
func (t Table) LongitudeColumn() string { return t.longitudeColumn }
