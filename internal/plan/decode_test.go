package plan

import (
	"errors"
	"testing"
)

func TestDecodeArray(t *testing.T) {
	raw := []byte(`[
  {"SourceCommand":{"StartLine":1,"StartColumn":1,"EndLine":1,"EndPosition":5},"PlanResultReason":"Use Get-NewThing","PlanSeverity":3,"Replacement":"Get-NewThing"},
  {"SourceCommand":{"StartLine":4,"StartColumn":2,"EndLine":4,"EndPosition":9},"PlanResultReason":"No change","PlanSeverity":2,"Replacement":""}
]`)
	entries, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Replacement != "Get-NewThing" || entries[0].PlanSeverity != SeverityWarning {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].SourceCommand.StartLine != 4 || entries[1].SourceCommand.EndPosition != 9 {
		t.Fatalf("unexpected second entry span: %+v", entries[1].SourceCommand)
	}
}

func TestDecodeSingleObject(t *testing.T) {
	raw := []byte(`{"SourceCommand":{"StartLine":2,"StartColumn":3,"EndLine":2,"EndPosition":7},"PlanResultReason":"gone","PlanSeverity":1}`)
	entries, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].PlanSeverity != SeverityError {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, raw := range []string{"", "   \r\n", "null", "\xef\xbb\xbf[]"} {
		entries, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if len(entries) != 0 {
			t.Fatalf("decode %q: expected no entries, got %d", raw, len(entries))
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"not json", "[{", `{"PlanSeverity":"x"}`} {
		_, err := Decode([]byte(raw))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("decode %q: expected ParseError, got %v", raw, err)
		}
	}
}

func TestDecodeRenameWithoutReplacement(t *testing.T) {
	raw := []byte(`[
		{"SourceCommand":{"StartLine":1,"StartColumn":1,"EndLine":1,"EndPosition":2},"PlanResultReason":"a","PlanSeverity":1},
		{"SourceCommand":{"StartLine":2,"StartColumn":1,"EndLine":2,"EndPosition":2},"PlanResultReason":"b","PlanSeverity":3,"Replacement":"Get-AzVM"},
		{"SourceCommand":{"StartLine":3,"StartColumn":1,"EndLine":3,"EndPosition":2},"PlanResultReason":"c","PlanSeverity":3,"Replacement":null}
	]`)
	entries, err := Decode(raw)
	if !errors.Is(err, ErrMissingReplacement) {
		t.Fatalf("expected ErrMissingReplacement, got %v", err)
	}
	var dropped *DroppedError
	if !errors.As(err, &dropped) || len(dropped.Indexes) != 1 || dropped.Indexes[0] != 2 {
		t.Fatalf("expected entry 2 to be dropped, got %v", err)
	}
	if len(entries) != 2 || entries[0].PlanResultReason != "a" || entries[1].PlanResultReason != "b" {
		t.Fatalf("expected the valid entries to survive, got %+v", entries)
	}
}

func TestSeverityIsRename(t *testing.T) {
	cases := map[Severity]bool{
		SeverityError:       false,
		SeverityInformation: false,
		SeverityWarning:     true,
		Severity(7):         true,
	}
	for sev, want := range cases {
		if got := sev.IsRename(); got != want {
			t.Fatalf("%v.IsRename() = %v, want %v", sev, got, want)
		}
	}
}
