package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/findexhq/findex/domain/search"
	"github.com/findexhq/findex/internal/database"
	"gorm.io/gorm"
)

// prefixThreshold is the non-space character count at or below which a
// query switches from natural-language matching to prefix matching.
const prefixThreshold = 3

// booleanSanitizer blanks the characters MySQL boolean mode treats as
// operators before a short query is turned into prefix terms.
var booleanSanitizer = strings.NewReplacer(
	"+", " ",
	"-", " ",
	"(", " ",
	")", " ",
	"*", " ",
	"?", " ",
)

// tsquerySanitizer blanks the characters to_tsquery treats as syntax before
// a short query is turned into prefix lexemes.
var tsquerySanitizer = strings.NewReplacer(
	"&", " ",
	"|", " ",
	"!", " ",
	"(", " ",
	")", " ",
	":", " ",
	"*", " ",
	"'", " ",
	"\\", " ",
)

// likeSanitizer blanks LIKE wildcards so a query term cannot widen the
// sqlite fallback match.
var likeSanitizer = strings.NewReplacer(
	"%", " ",
	"_", " ",
)

// scoredID is the scan target for ranked lexical results.
type scoredID struct {
	ID    int64   `gorm:"column:id"`
	Score float64 `gorm:"column:score"`
}

// LexicalSearch runs the store's native full-text match over the text
// columns, returning ids ordered by descending relevance.
func (s *Store) LexicalSearch(ctx context.Context, table string, textColumns []string, query string, limit int) ([]int64, error) {
	return s.lexicalIDs(ctx, table, textColumns, query, search.Filters{}, limit)
}

// LexicalSearchFiltered is LexicalSearch with the filter conjunction applied
// in the same statement, so filtered-out rows never rank.
func (s *Store) LexicalSearchFiltered(ctx context.Context, table string, textColumns []string, query string, filters search.Filters, limit int) ([]int64, error) {
	return s.lexicalIDs(ctx, table, textColumns, query, filters, limit)
}

func (s *Store) lexicalIDs(ctx context.Context, table string, textColumns []string, query string, filters search.Filters, limit int) ([]int64, error) {
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("table %q: %w", table, database.ErrBadIdentifier)
	}
	if len(textColumns) == 0 {
		return []int64{}, nil
	}
	for _, col := range textColumns {
		if !database.ValidIdentifier(col) {
			return nil, fmt.Errorf("text column %q: %w", col, database.ErrBadIdentifier)
		}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []int64{}, nil
	}
	if limit <= 0 {
		limit = search.DefaultTop
	}
	prefix := nonSpaceLength(query) <= prefixThreshold

	tx := s.db.Session(ctx).Table(table)
	var (
		matched bool
		err     error
	)
	switch s.db.Dialect() {
	case database.DialectMySQL:
		tx, matched = mysqlMatch(tx, textColumns, query, prefix)
	case database.DialectPostgres:
		tx, matched = postgresMatch(tx, textColumns, query, prefix)
	default:
		tx, matched = likeMatch(tx, textColumns, query, prefix)
	}
	if !matched {
		s.logger.Debug("lexical query emptied by sanitization", "table", table, "query", query)
		return []int64{}, nil
	}

	tx, err = translate(filters).Apply(tx)
	if err != nil {
		return nil, fmt.Errorf("lexical filter %s: %w", table, err)
	}
	tx = tx.Order("score DESC, id ASC").Limit(limit)

	var rows []scoredID
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("lexical search %s: %w", table, err)
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// mysqlMatch matches with MATCH ... AGAINST, natural-language mode for long
// queries and boolean mode with per-term trailing * for short ones. The
// column list is interpolated only after identifier validation; the query
// itself is always bound.
func mysqlMatch(tx *gorm.DB, textColumns []string, query string, prefix bool) (*gorm.DB, bool) {
	cols := strings.Join(textColumns, ", ")

	expr := fmt.Sprintf("MATCH(%s) AGAINST (? IN NATURAL LANGUAGE MODE)", cols)
	arg := query
	if prefix {
		terms := strings.Fields(booleanSanitizer.Replace(query))
		if len(terms) == 0 {
			return tx, false
		}
		for i := range terms {
			terms[i] += "*"
		}
		expr = fmt.Sprintf("MATCH(%s) AGAINST (? IN BOOLEAN MODE)", cols)
		arg = strings.Join(terms, " ")
	}

	tx = tx.Select("id, "+expr+" AS score", arg).Where(expr, arg)
	return tx, true
}

// postgresMatch matches with tsvector/tsquery over a coalesced concatenation
// of the text columns, ranked by ts_rank. The 'simple' configuration keeps
// matching language-neutral for arbitrary user tables.
func postgresMatch(tx *gorm.DB, textColumns []string, query string, prefix bool) (*gorm.DB, bool) {
	parts := make([]string, len(textColumns))
	for i, col := range textColumns {
		parts[i] = fmt.Sprintf("coalesce(%s, '')", col)
	}
	vector := fmt.Sprintf("to_tsvector('simple', %s)", strings.Join(parts, " || ' ' || "))

	tsquery := "plainto_tsquery('simple', ?)"
	arg := query
	if prefix {
		lexemes := strings.Fields(tsquerySanitizer.Replace(query))
		if len(lexemes) == 0 {
			return tx, false
		}
		for i := range lexemes {
			lexemes[i] += ":*"
		}
		tsquery = "to_tsquery('simple', ?)"
		arg = strings.Join(lexemes, " & ")
	}

	selectExpr := fmt.Sprintf("id, ts_rank(%s, %s) AS score", vector, tsquery)
	whereExpr := fmt.Sprintf("%s @@ %s", vector, tsquery)
	tx = tx.Select(selectExpr, arg).Where(whereExpr, arg)
	return tx, true
}

// likeMatch is the sqlite fallback: per-term LIKE hits across all text
// columns, scored by hit count. Prefix mode anchors each term at a word
// start; natural mode matches anywhere in the column.
func likeMatch(tx *gorm.DB, textColumns []string, query string, prefix bool) (*gorm.DB, bool) {
	terms := strings.Fields(likeSanitizer.Replace(strings.ToLower(query)))
	if len(terms) == 0 {
		return tx, false
	}

	var (
		hits       []string
		scoreArgs  []any
		conditions []string
		whereArgs  []any
	)
	for _, term := range terms {
		for _, col := range textColumns {
			var expr string
			var args []any
			if prefix {
				expr = fmt.Sprintf("(LOWER(%s) LIKE ? OR LOWER(%s) LIKE ?)", col, col)
				args = []any{term + "%", "% " + term + "%"}
			} else {
				expr = fmt.Sprintf("LOWER(%s) LIKE ?", col)
				args = []any{"%" + term + "%"}
			}
			hits = append(hits, expr)
			scoreArgs = append(scoreArgs, args...)
			conditions = append(conditions, expr)
			whereArgs = append(whereArgs, args...)
		}
	}

	scoreExpr := "(" + strings.Join(hits, " + ") + ")"
	selectArgs := append([]any{}, scoreArgs...)
	tx = tx.Select("id, "+scoreExpr+" AS score", selectArgs...)
	tx = tx.Where(strings.Join(conditions, " OR "), whereArgs...)
	return tx, true
}

// nonSpaceLength counts the non-whitespace runes of a query.
func nonSpaceLength(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
