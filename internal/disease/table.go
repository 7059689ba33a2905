// Package disease resolves predicted labels to static remediation records.
package disease

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// Record is one row of the remediation table.
type Record struct {
	Disease           string `csv:"Disease" json:"disease"`
	Symptoms          string `csv:"Symptoms" json:"symptoms"`
	OrganicPesticides string `csv:"Organic Pesticides" json:"organic_pesticides"`
	Tips              string `csv:"Tips" json:"tips"`
}

func (r Record) complete() bool {
	return strings.TrimSpace(r.Disease) != "" &&
		strings.TrimSpace(r.Symptoms) != "" &&
		strings.TrimSpace(r.OrganicPesticides) != "" &&
		strings.TrimSpace(r.Tips) != ""
}

// Table is an immutable index of records keyed by the exact disease name.
type Table struct {
	records map[string]Record
	order   []string
	skipped int
}

// NewTable indexes records. Incomplete rows are skipped and the first row
// wins for a repeated disease name.
func NewTable(records ...Record) *Table {
	t := &Table{records: make(map[string]Record, len(records))}
	for _, rec := range records {
		if !rec.complete() {
			t.skipped++
			continue
		}
		if _, dup := t.records[rec.Disease]; dup {
			t.skipped++
			continue
		}
		t.records[rec.Disease] = rec
		t.order = append(t.order, rec.Disease)
	}
	return t
}

// ParseTable reads CSV with the header Disease,Symptoms,Organic Pesticides,Tips.
func ParseTable(r io.Reader) (*Table, error) {
	var rows []Record
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse disease table: %w", err)
	}
	return NewTable(rows...), nil
}

// LoadTable opens and parses the CSV file at path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open disease table: %w", err)
	}
	defer f.Close()
	return ParseTable(f)
}

// Lookup returns the record whose Disease column equals label exactly.
func (t *Table) Lookup(label string) (Record, bool) {
	if t == nil {
		return Record{}, false
	}
	rec, ok := t.records[label]
	return rec, ok
}

// Diseases lists the keys in file order.
func (t *Table) Diseases() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Len is the number of indexed records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Skipped counts rows dropped as incomplete or duplicate.
func (t *Table) Skipped() int {
	if t == nil {
		return 0
	}
	return t.skipped
}
