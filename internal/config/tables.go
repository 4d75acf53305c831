package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/findexhq/findex/domain/schema"
)

// tablesFile mirrors the on-disk table declaration document.
type tablesFile struct {
	Tables []tableSpec `yaml:"tables"`
}

type tableSpec struct {
	Name            string       `yaml:"name"`
	Hybrid          bool         `yaml:"hybrid"`
	TextColumns     []string     `yaml:"text_columns"`
	LatitudeColumn  string       `yaml:"latitude_column"`
	LongitudeColumn string       `yaml:"longitude_column"`
	Filters         []filterSpec `yaml:"filters"`
}

type filterSpec struct {
	Column     string   `yaml:"column"`
	Kind       string   `yaml:"kind"`
	DataType   string   `yaml:"data_type"`
	EnumValues []string `yaml:"enum_values"`
}

// LoadTables reads the table declaration file at path and builds the schema
// registry. Any invalid declaration is an error; a service running with a
// half-validated schema would fail on its first query instead of at startup.
func LoadTables(path string) (schema.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return schema.Registry{}, fmt.Errorf("read tables config %s: %w", path, err)
	}
	return ParseTables(raw)
}

// ParseTables builds the schema registry from raw YAML table declarations.
func ParseTables(raw []byte) (schema.Registry, error) {
	var doc tablesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return schema.Registry{}, fmt.Errorf("parse tables config: %w", err)
	}

	tables := make([]schema.Table, 0, len(doc.Tables))
	for _, spec := range doc.Tables {
		tbl, err := spec.toTable()
		if err != nil {
			return schema.Registry{}, fmt.Errorf("table %q: %w", spec.Name, err)
		}
		tables = append(tables, tbl)
	}

	registry, err := schema.NewRegistry(tables...)
	if err != nil {
		return schema.Registry{}, err
	}
	return registry, nil
}

func (s tableSpec) toTable() (schema.Table, error) {
	opts := []schema.TableOption{}
	if len(s.TextColumns) > 0 {
		opts = append(opts, schema.WithTextColumns(s.TextColumns...))
	}
	if s.Hybrid {
		opts = append(opts, schema.WithHybrid())
	}
	if s.LatitudeColumn != "" || s.LongitudeColumn != "" {
		opts = append(opts, schema.WithGeoColumns(s.LatitudeColumn, s.LongitudeColumn))
	}

	filters := make([]schema.Filter, 0, len(s.Filters))
	for _, fs := range s.Filters {
		f, err := fs.toFilter()
		if err != nil {
			return schema.Table{}, err
		}
		filters = append(filters, f)
	}
	if len(filters) > 0 {
		opts = append(opts, schema.WithFilters(filters...))
	}

	return schema.NewTable(s.Name, opts...)
}

func (s filterSpec) toFilter() (schema.Filter, error) {
	kind, err := schema.ParseFilterKind(s.Kind)
	if err != nil {
		return schema.Filter{}, fmt.Errorf("filter %q: %w", s.Column, err)
	}
	dataType, err := schema.ParseDataType(s.DataType)
	if err != nil {
		return schema.Filter{}, fmt.Errorf("filter %q: %w", s.Column, err)
	}

	var opts []schema.FilterOption
	if len(s.EnumValues) > 0 {
		opts = append(opts, schema.WithEnumValues(s.EnumValues...))
	}
	return schema.NewFilter(s.Column, kind, dataType, opts...)
}
