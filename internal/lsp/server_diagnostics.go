package lsp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"azupgrade/internal/diag"
	"azupgrade/internal/plan"
	"azupgrade/internal/pwsh"
	"azupgrade/internal/trace"
)

// enqueue hands j to the worker and returns a channel closed once it ran.
func (s *Server) enqueue(j job) <-chan struct{} {
	j.done = make(chan struct{})
	select {
	case s.jobs <- j:
	case <-s.baseCtx.Done():
		close(j.done)
	}
	return j.done
}

func (s *Server) enqueueUpdate(uri string) {
	s.enqueue(job{name: "update", uri: uri, run: func(ctx context.Context) {
		s.updateDiagnostics(ctx, uri)
	}})
}

// worker runs jobs one at a time in arrival order, so the PowerShell
// session only ever has one caller.
func (s *Server) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			span := trace.Begin(s.tracer(), trace.ScopeRequest, "lsp."+j.name, trace.CurrentSpan(ctx))
			if j.uri != "" {
				span.WithExtra("uri", j.uri)
			}
			j.run(trace.WithSpan(ctx, span))
			span.End("")
			close(j.done)
		}
	}
}

// updateDiagnostics refreshes the diagnostics of uri. An empty uri clears
// every file. Failures leave the file with an empty list and are reported
// to the user; they are never retried.
func (s *Server) updateDiagnostics(ctx context.Context, uri string) {
	if uri == "" {
		for _, file := range s.diags.Clear() {
			if err := s.sendPublish(file, nil); err != nil {
				s.logf("failed to clear diagnostics for %s: %v", file, err)
			}
		}
		return
	}

	path := uriToPath(uri)
	if path == "" {
		s.logf("skipping %s: not a file URI", uri)
		return
	}

	records, err := s.analyze(ctx, path)
	var dropped *plan.DroppedError
	if errors.As(err, &dropped) {
		s.logf("%s: %v", path, err)
		err = nil
	}
	if err != nil {
		s.logf("analysis of %s failed: %v", path, err)
		trace.Error(s.tracer(), trace.ScopeRequest, "lsp.update", err)
		s.showMessage(messageWarning, fmt.Sprintf("azupgrade: analysis of %s failed: %v", filepath.Base(path), err))
		records = nil
	}
	s.diags.Replace(uri, records)
	if err := s.sendPublish(uri, toLSPDiagnostics(records)); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
}

func (s *Server) analyze(ctx context.Context, path string) ([]diag.Record, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("no analyzer configured")
	}
	settings := s.currentSettings()
	raw, err := s.analyzer.GetUpgradePlan(ctx, pwsh.Request{
		FilePath:    path,
		FromVersion: settings.FromVersion,
		ToVersion:   settings.ToVersion,
	})
	if err != nil {
		return nil, err
	}
	return diag.MapPlans(raw)
}
