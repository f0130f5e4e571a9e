// Package annotation maps detection labels to the secondary text shown next to them.
package annotation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
)

//go:embed carbon.json
var carbonTable []byte

// An Annotator returns the text to display for a label. Unknown labels yield "".
type Annotator interface {
	Annotate(label string) string
}

// AnnotatorFunc adapts a plain function to an Annotator.
type AnnotatorFunc func(label string) string

// Annotate calls f(label).
func (f AnnotatorFunc) Annotate(label string) string {
	return f(label)
}

// Identity annotates every label with itself.
var Identity = AnnotatorFunc(func(label string) string { return label })

// Table is an immutable label to value lookup. It is safe for concurrent use.
type Table struct {
	unit    string
	entries map[string]string
}

type tableFile struct {
	Unit    string            `json:"unit"`
	Entries map[string]string `json:"entries"`
}

// NewTable copies entries into a new table. unit is appended after each value.
func NewTable(unit string, entries map[string]string) *Table {
	t := &Table{unit: unit, entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		t.entries[k] = strings.TrimSpace(v)
	}
	return t
}

// LoadTable decodes a JSON table of the form {"unit": "...", "entries": {"label": "value"}}.
func LoadTable(r io.Reader) (*Table, error) {
	var tf tableFile
	if err := json.NewDecoder(r).Decode(&tf); err != nil {
		return nil, errors.Wrap(err, "cannot decode annotation table")
	}
	if len(tf.Entries) == 0 {
		return nil, errors.New("annotation table has no entries")
	}
	return NewTable(tf.Unit, tf.Entries), nil
}

// LoadTableFile decodes the JSON table stored at path.
func LoadTableFile(path string) (*Table, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := LoadTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return t, nil
}

// DefaultTable returns the built-in carbon footprint table.
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(carbonTable))
	if err != nil {
		panic(err)
	}
	return t
}

// Annotate returns "<label> <value> <unit>" for known labels and "" otherwise.
func (t *Table) Annotate(label string) string {
	v, ok := t.entries[label]
	if !ok {
		return ""
	}
	if t.unit == "" {
		return fmt.Sprintf("%s %s", label, v)
	}
	return fmt.Sprintf("%s %s %s", label, v, t.unit)
}

// Value returns the raw value for a label.
func (t *Table) Value(label string) (string, bool) {
	v, ok := t.entries[label]
	return v, ok
}

// Len returns the number of labels in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Labels returns the known labels in sorted order.
func (t *Table) Labels() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String prints a table of every label with its value and unit.
func (t *Table) String() string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"#", "Label", "Value", "Unit"})
	for i, label := range t.Labels() {
		w.AppendRow(table.Row{i + 1, label, t.entries[label], t.unit})
	}
	return w.Render()
}
