package cache

import (
	"context"
	"errors"
	"os"

	"azupgrade/internal/plan"
	"azupgrade/internal/pwsh"
	"azupgrade/internal/trace"
)

// Planner produces raw upgrade plans.
type Planner interface {
	GetUpgradePlan(ctx context.Context, req pwsh.Request) ([]byte, error)
}

// CachedPlanner serves plans from a DiskCache and falls back to Next.
// Only results that decode as a plan are stored.
type CachedPlanner struct {
	Next  Planner
	Cache *DiskCache

	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
	// Logf receives cache failures, which never fail the request.
	Logf func(format string, args ...any)
}

// GetUpgradePlan implements Planner.
func (p *CachedPlanner) GetUpgradePlan(ctx context.Context, req pwsh.Request) ([]byte, error) {
	readFile := p.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	content, err := readFile(req.FilePath)
	if err != nil || p.Cache == nil {
		return p.Next.GetUpgradePlan(ctx, req)
	}

	tracer := trace.FromContext(ctx)
	key := Key(req.FilePath, content, req.FromVersion, req.ToVersion)
	var payload Payload
	hit, err := p.Cache.Get(key, &payload)
	if err != nil {
		p.logf("cache: read %s: %v", key, err)
	}
	if hit {
		trace.Point(tracer, trace.ScopeRequest, "cache.hit", req.FilePath)
		return payload.Raw, nil
	}
	trace.Point(tracer, trace.ScopeRequest, "cache.miss", req.FilePath)

	raw, err := p.Next.GetUpgradePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := plan.Decode(raw); err != nil {
		var dropped *plan.DroppedError
		if !errors.As(err, &dropped) {
			trace.Point(tracer, trace.ScopeRequest, "cache.skip", req.FilePath)
			return raw, nil
		}
	}
	if err := p.Cache.Put(key, &Payload{File: req.FilePath, From: req.FromVersion, To: req.ToVersion, Raw: raw}); err != nil {
		p.logf("cache: write %s: %v", key, err)
	}
	return raw, nil
}

func (p *CachedPlanner) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}
