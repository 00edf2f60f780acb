package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("azupgrade plan", []string{"a.ps1", "b.ps1"}, events).(*progressModel)

	m.Update(eventMsg(Event{File: "a.ps1", Stage: StagePlan, Status: StatusWorking}))
	if m.items[0].status != "planning" {
		t.Fatalf("status = %q", m.items[0].status)
	}
	m.Update(eventMsg(Event{File: "a.ps1", Status: StatusDone, Findings: 3}))
	m.Update(eventMsg(Event{File: "b.ps1", Status: StatusError}))
	m.Update(eventMsg(Event{File: "unknown.ps1", Status: StatusError}))

	if m.items[0].status != "3 findings" || m.items[1].status != "error" {
		t.Fatalf("unexpected statuses %q %q", m.items[0].status, m.items[1].status)
	}
	if got := m.percent(); got != 1.0 {
		t.Fatalf("percent = %v, want 1", got)
	}

	_, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Fatalf("done must quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	view := m.View()
	if !strings.Contains(view, "done: azupgrade plan") || !strings.Contains(view, "a.ps1") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestStatusLabels(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{File: "a", Status: StatusDone}, "clean"},
		{Event{File: "a", Status: StatusDone, Findings: 1}, "1 finding"},
		{Event{Status: StatusDone}, "done"},
		{Event{File: "a", Status: StatusWorking, Stage: StageSession}, "starting"},
		{Event{File: "a", Status: StatusWorking, Stage: StageMap}, "mapping"},
	}
	for _, tc := range cases {
		if got := statusLabel(tc.ev); got != tc.want {
			t.Fatalf("statusLabel(%+v) = %q, want %q", tc.ev, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Fatalf("short value changed: %q", got)
	}
}
