package core

import (
	"strings"
	"testing"
)

func TestValidateRecord(t *testing.T) {
	schema := regionSchema()

	tests := []struct {
		name      string
		line      string
		wantField string
		wantMsg   string
	}{
		{name: "valid", line: "0|AFRICA|lar deposits"},
		{name: "empty comment allowed", line: "0|AFRICA|"},
		{name: "zero is a value", line: "0|AFRICA|x"},
		{
			name:    "too few fields",
			line:    "0|AFRICA",
			wantMsg: "field count mismatch: expected 3 fields, got 2",
		},
		{
			name:    "trailing delimiter counts",
			line:    "0|AFRICA|x|",
			wantMsg: "field count mismatch: expected 3 fields, got 4",
		},
		{
			name:      "empty required field",
			line:      "|AFRICA|x",
			wantField: "r_regionkey",
			wantMsg:   "field r_regionkey must not be empty",
		},
		{
			name:      "rule failure",
			line:      "-1|AFRICA|x",
			wantField: "r_regionkey",
			wantMsg:   "field r_regionkey failed validation: region key must be a non-negative integer",
		},
		{
			name:      "first failure wins",
			line:      "x|   |x",
			wantField: "r_regionkey",
			wantMsg:   "field r_regionkey failed validation",
		},
		{
			name:      "blank name",
			line:      "4|   |x",
			wantField: "r_name",
			wantMsg:   "name must not be blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, verr := ValidateRecord(schema, tt.line, "|")
			if tt.wantMsg == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				if len(values) != len(schema.Fields()) {
					t.Errorf("got %d values, want %d", len(values), len(schema.Fields()))
				}
				return
			}
			if verr == nil {
				t.Fatalf("expected error containing %q", tt.wantMsg)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", verr.Error(), tt.wantMsg)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
			if values != nil {
				t.Error("values returned alongside an error")
			}
		})
	}
}

func TestValidateRecord_MultiCharDelimiter(t *testing.T) {
	values, verr := ValidateRecord(regionSchema(), "1::AMERICA::a|b", "::")
	if verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	if values[2] != "a|b" {
		t.Errorf("comment = %q, want %q", values[2], "a|b")
	}
}

func TestTruncateData(t *testing.T) {
	short := strings.Repeat("a", MaxErrorData)
	if got := TruncateData(short); got != short {
		t.Errorf("line at the limit was changed: %q", got)
	}

	long := strings.Repeat("b", MaxErrorData+20)
	got := TruncateData(long)
	if got != strings.Repeat("b", MaxErrorData)+"..." {
		t.Errorf("TruncateData(long) = %q", got)
	}

	wide := strings.Repeat("中", MaxErrorData+1)
	got = TruncateData(wide)
	if want := strings.Repeat("中", MaxErrorData) + "..."; got != want {
		t.Errorf("multibyte truncation cut mid rune: %q", got)
	}
}
