package search

import (
	"reflect"
	"testing"
	"time"

	"github.com/findexhq/findex/domain/schema"
)

func itemsTable(t *testing.T) schema.Table {
	t.Helper()

	status, err := schema.NewFilter("status", schema.KindIn, schema.TypeEnum, schema.WithEnumValues("ativo", "inativo"))
	if err != nil {
		t.Fatalf("status filter: %v", err)
	}
	price, err := schema.NewFilter("preco_diario", schema.KindRange, schema.TypeDecimal)
	if err != nil {
		t.Fatalf("price filter: %v", err)
	}
	location, err := schema.NewFilter("localizacao", schema.KindDistance, schema.TypeGeo)
	if err != nil {
		t.Fatalf("location filter: %v", err)
	}
	category, err := schema.NewFilter("categoria", schema.KindExact, schema.TypeString)
	if err != nil {
		t.Fatalf("category filter: %v", err)
	}
	title, err := schema.NewFilter("titulo", schema.KindLike, schema.TypeString)
	if err != nil {
		t.Fatalf("title filter: %v", err)
	}
	owner, err := schema.NewFilter("owner_id", schema.KindIn, schema.TypeInt)
	if err != nil {
		t.Fatalf("owner filter: %v", err)
	}
	created, err := schema.NewFilter("data_criacao", schema.KindRange, schema.TypeDate)
	if err != nil {
		t.Fatalf("created filter: %v", err)
	}

	tbl, err := schema.NewTable("items",
		schema.WithTextColumns("titulo", "descricao"),
		schema.WithHybrid(),
		schema.WithFilters(status, price, location, category, title, owner, created),
		schema.WithGeoColumns("items_lat", "items_lon"),
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestCompileFilters_Exact(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "categoria: Ferramentas ")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if filters.Len() != 1 {
		t.Fatalf("expected 1 clause, got %d", filters.Len())
	}

	eq, ok := filters.Predicates()[0].(Equal)
	if !ok {
		t.Fatalf("expected Equal, got %T", filters.Predicates()[0])
	}
	if eq.Column() != "categoria" || eq.Value() != "ferramentas" {
		t.Errorf("unexpected predicate: %s=%v", eq.Column(), eq.Value())
	}
}

func TestCompileFilters_Like(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "titulo:Camera")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	like, ok := filters.Predicates()[0].(Like)
	if !ok {
		t.Fatalf("expected Like, got %T", filters.Predicates()[0])
	}
	if like.Value() != "camera" {
		t.Errorf("expected lowercased value, got %q", like.Value())
	}
}

func TestCompileFilters_InEnum(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "status:Ativo,pendente,INATIVO")
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for pendente, got %v", warnings)
	}
	if warnings[0].Column() != "status" {
		t.Errorf("warning attributed to %q", warnings[0].Column())
	}

	in, ok := filters.Predicates()[0].(InSet)
	if !ok {
		t.Fatalf("expected InSet, got %T", filters.Predicates()[0])
	}
	want := []any{"ativo", "inativo"}
	if !reflect.DeepEqual(in.Values(), want) {
		t.Errorf("expected %v, got %v", want, in.Values())
	}
}

func TestCompileFilters_InAllInvalidDropsClause(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "status:pendente,cancelado")
	if !filters.IsEmpty() {
		t.Errorf("expected clause dropped, got %v", filters.Predicates())
	}
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
}

func TestCompileFilters_InIntTokens(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "owner_id:7, 12 ,abc")
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for abc, got %v", warnings)
	}

	in := filters.Predicates()[0].(InSet)
	want := []any{int64(7), int64(12)}
	if !reflect.DeepEqual(in.Values(), want) {
		t.Errorf("expected %v, got %v", want, in.Values())
	}
}

func TestCompileFilters_RangeForms(t *testing.T) {
	tbl := itemsTable(t)

	cases := []struct {
		name  string
		value string
		want  Predicate
	}{
		{"both", "20-50", NewRangeBoth("preco_diario", 20.0, 50.0)},
		{"min only", "20-", NewRangeMin("preco_diario", 20.0)},
		{"max only", "-50", NewRangeMax("preco_diario", 50.0)},
		{"single", "35.5", NewEqual("preco_diario", 35.5)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filters, warnings := CompileFilters(tbl, "preco_diario:"+tc.value)
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", warnings)
			}
			if filters.Len() != 1 {
				t.Fatalf("expected 1 clause, got %d", filters.Len())
			}
			if !reflect.DeepEqual(filters.Predicates()[0], tc.want) {
				t.Errorf("expected %#v, got %#v", tc.want, filters.Predicates()[0])
			}
		})
	}
}

func TestCompileFilters_RangeInvalidDropped(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "preco_diario:cheap")
	if !filters.IsEmpty() {
		t.Errorf("expected clause dropped, got %v", filters.Predicates())
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}

func TestCompileFilters_DateRange(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "data_criacao:2024-03-01")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	eq, ok := filters.Predicates()[0].(Equal)
	if !ok {
		t.Fatalf("expected Equal for single date, got %T", filters.Predicates()[0])
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got, ok := eq.Value().(time.Time)
	if !ok || !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, eq.Value())
	}
}

func TestCompileFilters_DateRangeBoth(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "data_criacao:2024-01-01-2024-06-30")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	rb, ok := filters.Predicates()[0].(RangeBoth)
	if !ok {
		t.Fatalf("expected RangeBoth, got %T", filters.Predicates()[0])
	}
	wantMin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wantMax := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	if got := rb.Min().(time.Time); !got.Equal(wantMin) {
		t.Errorf("expected min %v, got %v", wantMin, got)
	}
	if got := rb.Max().(time.Time); !got.Equal(wantMax) {
		t.Errorf("expected max %v, got %v", wantMax, got)
	}
}

func TestCompileFilters_DateRangeOpenEnded(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "data_criacao:2024-01-01-")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	rm, ok := filters.Predicates()[0].(RangeMin)
	if !ok {
		t.Fatalf("expected RangeMin, got %T", filters.Predicates()[0])
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := rm.Min().(time.Time); !got.Equal(want) {
		t.Errorf("expected min %v, got %v", want, got)
	}
}

func TestCompileFilters_DateWithTimeAndZone(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "data_criacao:2024-03-01t10:30:00z")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	eq := filters.Predicates()[0].(Equal)
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if got := eq.Value().(time.Time); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCompileFilters_Distance(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "localizacao:40.0,-74.0,50")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	within, ok := filters.Predicates()[0].(Within)
	if !ok {
		t.Fatalf("expected Within, got %T", filters.Predicates()[0])
	}
	if within.LatColumn() != "items_lat" || within.LonColumn() != "items_lon" {
		t.Errorf("expected bound geo columns, got %q %q", within.LatColumn(), within.LonColumn())
	}
	if within.CenterLat() != 40.0 || within.CenterLon() != -74.0 || within.MaxKm() != 50.0 {
		t.Errorf("unexpected center/radius: %v %v %v", within.CenterLat(), within.CenterLon(), within.MaxKm())
	}
}

func TestCompileFilters_DistanceValidation(t *testing.T) {
	tbl := itemsTable(t)

	for _, value := range []string{
		"91,-74,50",    // latitude out of range
		"40,-181,50",   // longitude out of range
		"40,-74,0",     // zero radius
		"40,-74,-5",    // negative radius
		"40,-74",       // missing radius
		"40,-74,50,1",  // extra component
		"norte,-74,50", // non-numeric
	} {
		filters, warnings := CompileFilters(tbl, "localizacao:"+value)
		if !filters.IsEmpty() {
			t.Errorf("value %q: expected clause dropped, got %v", value, filters.Predicates())
		}
		if len(warnings) != 1 {
			t.Errorf("value %q: expected 1 warning, got %v", value, warnings)
		}
	}
}

func TestCompileFilters_UnknownColumnDropped(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "cor:azul;categoria:ferramentas")
	if filters.Len() != 1 {
		t.Fatalf("expected surviving categoria clause, got %d", filters.Len())
	}
	if len(warnings) != 1 || warnings[0].Column() != "cor" {
		t.Errorf("expected warning for cor, got %v", warnings)
	}
}

func TestCompileFilters_MissingSeparator(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "status ativo;categoria:casa")
	if filters.Len() != 1 {
		t.Fatalf("expected 1 clause, got %d", filters.Len())
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}

func TestCompileFilters_EmptyFragmentsIgnored(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), ";;categoria:casa;;")
	if filters.Len() != 1 {
		t.Fatalf("expected 1 clause, got %d", filters.Len())
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestCompileFilters_RepeatedColumnReplacedInPlace(t *testing.T) {
	filters, _ := CompileFilters(itemsTable(t), "categoria:casa;preco_diario:20-50;categoria:jardim")
	if filters.Len() != 2 {
		t.Fatalf("expected 2 clauses, got %d", filters.Len())
	}

	first, ok := filters.Predicates()[0].(Equal)
	if !ok {
		t.Fatalf("expected Equal first, got %T", filters.Predicates()[0])
	}
	if first.Column() != "categoria" || first.Value() != "jardim" {
		t.Errorf("expected categoria replaced in place with jardim, got %v", first.Value())
	}
}

func TestCompileFilters_EmptyString(t *testing.T) {
	filters, warnings := CompileFilters(itemsTable(t), "")
	if !filters.IsEmpty() {
		t.Errorf("expected empty filters, got %v", filters.Predicates())
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestCompileFilters_RoundTrip(t *testing.T) {
	tbl := itemsTable(t)
	input := "status:ativo,inativo;preco_diario:20-50;localizacao:40,-74,50;categoria:casa"

	first, warnings := CompileFilters(tbl, input)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	second, warnings := CompileFilters(tbl, first.String())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings on re-compile: %v", warnings)
	}

	if !reflect.DeepEqual(first.Predicates(), second.Predicates()) {
		t.Errorf("round trip mismatch:\n first: %#v\nsecond: %#v", first.Predicates(), second.Predicates())
	}
}
