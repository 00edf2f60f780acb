package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"azupgrade/internal/diagfmt"
	"azupgrade/internal/ui"
)

// runPlanWithUI runs analyse while a progress view renders its events.
// Once the view quits, further events are dropped.
func runPlanWithUI(ctx context.Context, title string, files []string, analyse func(context.Context, func(ui.Event)) []diagfmt.FileReport) ([]diagfmt.FileReport, error) {
	events := make(chan ui.Event, 256)
	uiDone := make(chan struct{})
	outcomeCh := make(chan []diagfmt.FileReport, 1)

	go func() {
		reports := analyse(ctx, func(ev ui.Event) {
			select {
			case events <- ev:
			case <-uiDone:
			}
		})
		outcomeCh <- reports
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	close(uiDone)
	reports := <-outcomeCh
	return reports, uiErr
}
