package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"

	"azupgrade/internal/diag"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID          string
	Title       string
	Message     string
	Range       diag.Range
	Replacement string
}

// SkippedFix captures a skipped fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// ApplyResult aggregates applied and skipped fixes.
type ApplyResult struct {
	Applied []AppliedFix
	Skipped []SkippedFix
	// Delta is the change in byte length of the text.
	Delta int64
}

type candidate struct {
	id          string
	rec         diag.Record
	replacement string
	start, end  int
	order       int
}

// FixID returns the stable identifier of the fix for rec, used by
// ApplyModeID.
func FixID(rec diag.Record) string {
	return fmt.Sprintf("%s-%d-%d", rec.Code.ID(), rec.Range.Start.Line+1, rec.Range.Start.Character+1)
}

// Apply applies the RENAME fixes among records to text and returns the new
// text. Edits that overlap an already selected edit are skipped; the rest
// are applied from the end of the text backwards so earlier offsets stay
// valid.
func Apply(text string, records []diag.Record, opts ApplyOptions) (string, *ApplyResult, error) {
	result := &ApplyResult{
		Applied: make([]AppliedFix, 0),
		Skipped: make([]SkippedFix, 0),
	}

	candidates, skips := gatherCandidates(text, records)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return text, result, ErrNoFixes
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		if candidates[i].end != candidates[j].end {
			return candidates[i].end < candidates[j].end
		}
		return candidates[i].order < candidates[j].order
	})

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return text, result, ErrNoFixes
	}

	// selected is ascending; apply descending.
	out := text
	for i := len(selected) - 1; i >= 0; i-- {
		c := selected[i]
		out = out[:c.start] + c.replacement + out[c.end:]
	}
	for _, c := range selected {
		result.Applied = append(result.Applied, AppliedFix{
			ID:          c.id,
			Title:       "Auto fix to " + c.replacement,
			Message:     c.rec.Message,
			Range:       c.rec.Range,
			Replacement: c.replacement,
		})
	}
	delta, err := safecast.Conv[int64](len(out) - len(text))
	if err != nil {
		return text, result, fmt.Errorf("fix: %w", err)
	}
	result.Delta = delta
	return out, result, nil
}

// gatherCandidates resolves the byte span of every fixable record.
func gatherCandidates(text string, records []diag.Record) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0, len(records))
	skips := make([]SkippedFix, 0)
	seen := make(map[string]struct{})
	for i, rec := range records {
		replacement, ok := rec.Replacement()
		if !ok {
			continue
		}
		id := FixID(rec)
		if _, dup := seen[id]; dup {
			skips = append(skips, SkippedFix{ID: id, Title: "Auto fix to " + replacement, Reason: "duplicate fix id"})
			continue
		}
		seen[id] = struct{}{}
		start := Offset(text, rec.Range.Start)
		end := Offset(text, rec.Range.End)
		if end < start {
			skips = append(skips, SkippedFix{ID: id, Title: "Auto fix to " + replacement, Reason: "edit span out of range"})
			continue
		}
		cands = append(cands, candidate{
			id:          id,
			rec:         rec,
			replacement: replacement,
			start:       start,
			end:         end,
			order:       i,
		})
	}
	return cands, skips
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.id == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}
	case ApplyModeOnce:
		return candidates[:1], nil
	case ApplyModeAll:
		selected := make([]candidate, 0, len(candidates))
		skipped := make([]SkippedFix, 0)
		for _, cand := range candidates {
			if len(selected) > 0 && spansConflict(selected[len(selected)-1], cand) {
				skipped = append(skipped, SkippedFix{
					ID:     cand.id,
					Title:  "Auto fix to " + cand.replacement,
					Reason: "conflicts with previously applied edits",
				})
				continue
			}
			selected = append(selected, cand)
		}
		return selected, skipped
	default:
		return nil, nil
	}
}

// spansConflict reports whether two edits overlap.
// Spans are half-open; two insertions at the same point conflict, touching
// spans do not.
func spansConflict(a, b candidate) bool {
	if a.start == a.end && b.start == b.end {
		return a.start == b.start
	}
	if a.start == a.end {
		return b.start < a.start && a.start < b.end
	}
	if b.start == b.end {
		return a.start < b.start && b.start < a.end
	}
	return a.start < b.end && b.start < a.end
}

// ApplyFile applies fixes to the file at path. With dryRun the file is
// left untouched and the would-be content is returned.
func ApplyFile(path string, records []diag.Record, opts ApplyOptions, dryRun bool) (string, *ApplyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	out, res, err := Apply(string(data), records, opts)
	if err != nil || dryRun {
		return out, res, err
	}
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, []byte(out), mode); err != nil {
		return out, res, fmt.Errorf("write %s: %w", path, err)
	}
	return out, res, nil
}
