package core

// ColumnProfile describes one column discovered during introspection.
type ColumnProfile struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	Position   int    `json:"position"`
}

// TableProfile describes one discovered table, with an optional data sample
// used to ground SQL-generation prompts.
type TableProfile struct {
	Schema     string          `json:"schema,omitempty"`
	Name       string          `json:"name"`
	Columns    []ColumnProfile `json:"columns"`
	RowCount   int64           `json:"row_count"`
	SampleRows [][]any         `json:"sample_rows,omitempty"`
}

// SchemaProfile is the connector's discovery output: the tables and columns
// available to SQL generation.
type SchemaProfile struct {
	Tables []TableProfile `json:"tables"`
}

// Table returns the named table profile, if discovered.
func (p *SchemaProfile) Table(name string) (TableProfile, bool) {
	for _, t := range p.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableProfile{}, false
}

// HasSamples reports whether any table carries sample rows.
func (p *SchemaProfile) HasSamples() bool {
	for _, t := range p.Tables {
		if len(t.SampleRows) > 0 {
			return true
		}
	}
	return false
}
