package output

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	var nilPtr *int
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "hello", "hello"},
		{"empty string", "", "-"},
		{"int", 1234567, "1,234,567"},
		{"uint64", uint64(4096), "4,096"},
		{"float", 3.14159, "3.14"},
		{"bool", true, "true"},
		{"duration", 90 * time.Second, "1m30s"},
		{"time", ts, "2026-01-02 03:04:05"},
		{"zero time", time.Time{}, "-"},
		{"nil pointer", nilPtr, "-"},
		{"empty slice", []string{}, "-"},
		{"slice", []string{"a", "b"}, "[2 items]"},
		{"map", map[string]int{"a": 1}, "{1 keys}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(reflect.ValueOf(tt.input)); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStructToTable_JSONNames(t *testing.T) {
	type summary struct {
		Keys     int    `json:"keys"`
		Hidden   string `json:"-"`
		Version  string
		internal int
	}

	table := structToTable(reflect.ValueOf(summary{Keys: 1200, Hidden: "x", Version: "7.0.0", internal: 1}))

	want := [][]string{{"keys", "1,200"}, {"Version", "7.0.0"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("rows = %v, want %v", table.Rows, want)
	}
}

func TestTable_RenderAligned(t *testing.T) {
	table := NewTable("NAME", "PORT")
	table.AddRow("local", "6379")
	table.AddRow("production", "7379")

	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	col := strings.Index(lines[0], "PORT")
	for _, l := range lines[1:] {
		if strings.Index(l, "6379") != col && strings.Index(l, "7379") != col {
			t.Errorf("column not aligned: %q", l)
		}
	}
}
