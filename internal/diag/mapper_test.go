package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"azupgrade/internal/plan"
)

func TestMapPlansRenameScenario(t *testing.T) {
	raw := `[{"SourceCommand":{"StartLine":1,"StartColumn":1,"EndLine":1,"EndPosition":5},"PlanResultReason":"Use Get-NewThing","PlanSeverity":3,"Replacement":"Get-NewThing"}]`
	records, err := MapPlans([]byte(raw))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	want := Range{Start: Position{Line: 0, Character: 0}, End: Position{Line: 0, Character: 4}}
	if got.Range != want {
		t.Fatalf("unexpected range: %v", got.Range)
	}
	if got.Message != "Use Get-NewThing" {
		t.Fatalf("unexpected message: %q", got.Message)
	}
	if got.Code != CodeRename || got.Severity != SevWarning {
		t.Fatalf("unexpected classification: %s/%s", got.Code, got.Severity)
	}
	if got.Annotation != "Get-NewThing" {
		t.Fatalf("unexpected annotation: %q", got.Annotation)
	}
}

func TestFromEntrySpanConversion(t *testing.T) {
	entry := plan.Entry{
		SourceCommand: plan.SourceCommand{StartLine: 5, StartColumn: 3, EndLine: 5, EndPosition: 10},
		PlanSeverity:  plan.SeverityError,
	}
	rec := FromEntry(entry)
	if rec.Range.Start != (Position{Line: 4, Character: 2}) {
		t.Fatalf("unexpected start: %+v", rec.Range.Start)
	}
	if rec.Range.End != (Position{Line: 4, Character: 9}) {
		t.Fatalf("unexpected end: %+v", rec.Range.End)
	}
}

func TestFromEntrySeverityTable(t *testing.T) {
	tests := []struct {
		sev        plan.Severity
		replace    string
		wantSev    Severity
		wantCode   Code
		wantAnnote string
	}{
		{plan.SeverityError, "", SevError, CodeDoNothing, ""},
		{plan.SeverityInformation, "", SevInformation, CodeDoNothing, ""},
		{plan.SeverityWarning, "New-AzVM", SevWarning, CodeRename, "New-AzVM"},
		// do-nothing entries never carry an annotation, even if the tool sent one
		{plan.SeverityError, "ignored", SevError, CodeDoNothing, ""},
	}
	for _, tt := range tests {
		rec := FromEntry(plan.Entry{PlanSeverity: tt.sev, Replacement: tt.replace})
		if rec.Severity != tt.wantSev || rec.Code != tt.wantCode || rec.Annotation != tt.wantAnnote {
			t.Fatalf("severity %d: got %s/%s/%q", tt.sev, rec.Severity, rec.Code, rec.Annotation)
		}
	}
}

func TestMapPlansPreservesOrderAndCount(t *testing.T) {
	var parts []string
	for i := 1; i <= 25; i++ {
		sev := i%3 + 1
		replacement := ""
		if sev == 3 {
			replacement = fmt.Sprintf("Cmd-%d", i)
		}
		parts = append(parts, fmt.Sprintf(
			`{"SourceCommand":{"StartLine":%d,"StartColumn":1,"EndLine":%d,"EndPosition":4},"PlanResultReason":"reason %d","PlanSeverity":%d,"Replacement":%q}`,
			30-i, 30-i, i, sev, replacement))
	}
	raw := "[" + strings.Join(parts, ",") + "]"
	records, err := MapPlans([]byte(raw))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(records) != 25 {
		t.Fatalf("expected 25 records, got %d", len(records))
	}
	for i, rec := range records {
		if want := fmt.Sprintf("reason %d", i+1); rec.Message != want {
			t.Fatalf("record %d: message %q, want %q", i, rec.Message, want)
		}
		if rec.Code == CodeRename && rec.Annotation == "" {
			t.Fatalf("record %d: rename without annotation", i)
		}
		if rec.Code == CodeDoNothing && rec.Annotation != "" {
			t.Fatalf("record %d: do-nothing with annotation %q", i, rec.Annotation)
		}
	}
}

func TestMapPlansMalformed(t *testing.T) {
	records, err := MapPlans([]byte("Get-Command: not recognized"))
	var parseErr *plan.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestMapPlansEmpty(t *testing.T) {
	records, err := MapPlans(nil)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestFromEntryNormalizesMessage(t *testing.T) {
	rec := FromEntry(plan.Entry{PlanSeverity: plan.SeverityInformation, PlanResultReason: "cafe\u0301"})
	if rec.Message != "caf\u00e9" {
		t.Fatalf("expected NFC message, got %q", rec.Message)
	}
}

func TestMapPlansKeepsValidEntries(t *testing.T) {
	raw := `[
		{"SourceCommand":{"StartLine":1,"StartColumn":1,"EndLine":1,"EndPosition":14},"PlanResultReason":"rename","PlanSeverity":3,"Replacement":"Get-AzVM"},
		{"SourceCommand":{"StartLine":2,"StartColumn":1,"EndLine":2,"EndPosition":14},"PlanResultReason":"odd","PlanSeverity":3,"Replacement":null},
		{"SourceCommand":{"StartLine":3,"StartColumn":1,"EndLine":3,"EndPosition":14},"PlanResultReason":"info","PlanSeverity":2}
	]`
	records, err := MapPlans([]byte(raw))
	if !errors.Is(err, plan.ErrMissingReplacement) {
		t.Fatalf("expected ErrMissingReplacement, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Annotation != "Get-AzVM" || records[1].Code != CodeDoNothing {
		t.Fatalf("unexpected records: %+v", records)
	}
}
