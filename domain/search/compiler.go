package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/findexhq/findex/domain/schema"
)

// Warning reports a filter fragment that was dropped during compilation.
// Compilation never fails: bad input degrades the filter set, not the
// request.
type Warning struct {
	column string
	detail string
}

// NewWarning creates a compilation warning.
func NewWarning(column, detail string) Warning {
	return Warning{column: column, detail: detail}
}

// Column returns the offending column, empty when the clause had none.
func (w Warning) Column() string { return w.column }

// Detail returns the human-readable reason.
func (w Warning) Detail() string { return w.detail }

// String renders the warning for logging.
func (w Warning) String() string {
	if w.column == "" {
		return w.detail
	}
	return w.column + ": " + w.detail
}

// CompileFilters parses the `column:value;...` DSL against a table's
// declared filters. Clauses that cannot be compiled are dropped with a
// warning; a repeated column replaces its earlier clause in place.
func CompileFilters(tbl schema.Table, filterString string) (Filters, []Warning) {
	var (
		clauses  []Clause
		position = make(map[string]int)
		warnings []Warning
	)

	for _, fragment := range strings.Split(filterString, ";") {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}

		column, value, found := strings.Cut(fragment, ":")
		if !found {
			warnings = append(warnings, NewWarning("", fmt.Sprintf("clause %q has no ':' separator", fragment)))
			continue
		}
		column = strings.TrimSpace(column)
		value = strings.ToLower(strings.TrimSpace(value))

		desc, ok := tbl.FilterFor(column)
		if !ok {
			warnings = append(warnings, NewWarning(column, "not a declared filter column"))
			continue
		}

		predicate, ws := compileClause(tbl, desc, value)
		warnings = append(warnings, ws...)
		if predicate == nil {
			continue
		}

		clause := NewClause(predicate, desc.Kind(), desc.DataType())
		if at, seen := position[column]; seen {
			clauses[at] = clause
			continue
		}
		position[column] = len(clauses)
		clauses = append(clauses, clause)
	}

	return NewFilters(clauses...), warnings
}

func compileClause(tbl schema.Table, desc schema.Filter, value string) (Predicate, []Warning) {
	switch desc.Kind() {
	case schema.KindExact:
		converted, err := convertValue(value, desc)
		if err != nil {
			return nil, []Warning{NewWarning(desc.Column(), err.Error())}
		}
		return NewEqual(desc.Column(), converted), nil

	case schema.KindLike:
		if _, err := convertValue(value, desc); err != nil {
			return nil, []Warning{NewWarning(desc.Column(), err.Error())}
		}
		return NewLike(desc.Column(), value), nil

	case schema.KindIn:
		return compileInClause(desc, value)

	case schema.KindRange:
		return compileRangeClause(desc, value)

	case schema.KindDistance:
		return compileDistanceClause(tbl, desc, value)
	}

	return nil, []Warning{NewWarning(desc.Column(), "unsupported filter kind")}
}

func compileInClause(desc schema.Filter, value string) (Predicate, []Warning) {
	var (
		values   []any
		warnings []Warning
	)
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		converted, err := convertValue(token, desc)
		if err != nil {
			warnings = append(warnings, NewWarning(desc.Column(), fmt.Sprintf("token %q dropped: %v", token, err)))
			continue
		}
		values = append(values, converted)
	}
	if len(values) == 0 {
		return nil, warnings
	}
	return NewInSet(desc.Column(), values), warnings
}

// compileRangeClause handles `lo-hi`, `lo-`, `-hi` and single-value forms.
// The split point is the first dash with a convertible value on each side,
// which lets ISO date pairs like 2024-01-01-2024-06-30 parse despite their
// internal dashes. A leading dash is always the open-below form, so negative
// scalars are not expressible; declared range columns are prices and dates,
// where that is acceptable.
func compileRangeClause(desc schema.Filter, value string) (Predicate, []Warning) {
	if rest, found := strings.CutPrefix(value, "-"); found {
		max, err := convertValue(rest, desc)
		if err != nil {
			return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("range %q dropped: %v", value, err))}
		}
		return NewRangeMax(desc.Column(), max), nil
	}

	if converted, err := convertValue(value, desc); err == nil {
		return NewEqual(desc.Column(), converted), nil
	}

	for at := 0; at < len(value); at++ {
		if value[at] != '-' {
			continue
		}
		min, err := convertValue(strings.TrimSpace(value[:at]), desc)
		if err != nil {
			continue
		}
		hi := strings.TrimSpace(value[at+1:])
		if hi == "" {
			return NewRangeMin(desc.Column(), min), nil
		}
		if max, err := convertValue(hi, desc); err == nil {
			return NewRangeBoth(desc.Column(), min, max), nil
		}
	}

	return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("range %q dropped: not a valid %s range", value, desc.DataType()))}
}

func compileDistanceClause(tbl schema.Table, desc schema.Filter, value string) (Predicate, []Warning) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("distance %q dropped: want lat,lon,radius", value))}
	}

	numbers := make([]float64, 3)
	for i, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("distance %q dropped: %q is not numeric", value, strings.TrimSpace(part)))}
		}
		numbers[i] = n
	}

	lat, lon, radius := numbers[0], numbers[1], numbers[2]
	if lat < -90 || lat > 90 {
		return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("distance dropped: latitude %v out of range", lat))}
	}
	if lon < -180 || lon > 180 {
		return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("distance dropped: longitude %v out of range", lon))}
	}
	if radius <= 0 {
		return nil, []Warning{NewWarning(desc.Column(), fmt.Sprintf("distance dropped: radius %v must be positive", radius))}
	}

	return NewWithin(desc.Column(), tbl.LatitudeColumn(), tbl.LongitudeColumn(), lat, lon, radius), nil
}

func convertValue(token string, desc schema.Filter) (any, error) {
	switch desc.DataType() {
	case schema.TypeInt:
		if token == "" {
			return nil, fmt.Errorf("empty value is not an int")
		}
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an int", token)
		}
		return n, nil

	case schema.TypeDecimal:
		if token == "" {
			return nil, fmt.Errorf("empty value is not a decimal")
		}
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a decimal", token)
		}
		return f, nil

	case schema.TypeDate:
		if token == "" {
			return nil, fmt.Errorf("empty value is not a date")
		}
		t, err := parseDate(token)
		if err != nil {
			return nil, fmt.Errorf("%q is not an ISO-8601 date", token)
		}
		return t, nil

	case schema.TypeString:
		return token, nil

	case schema.TypeEnum:
		if !desc.AllowsEnum(token) {
			return nil, fmt.Errorf("%q is not an allowed value", token)
		}
		return token, nil
	}

	return nil, fmt.Errorf("values of type %s cannot be converted", desc.DataType())
}

// dateLayouts accepts ISO-8601 with T or space separators. Values arrive
// lowercased, so the token is uppercased first; dates contain no other
// letters.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(token string) (time.Time, error) {
	token = strings.ToUpper(token)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, token)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
