package diag

import (
	"errors"

	"golang.org/x/text/unicode/norm"

	"azupgrade/internal/plan"
)

// MapPlans decodes raw plan output and maps every entry to a Record.
// Order and count are preserved. On a *plan.DroppedError the records of
// the surviving entries are returned with the error; any other decode
// failure yields no records.
func MapPlans(raw []byte) ([]Record, error) {
	entries, err := plan.Decode(raw)
	var dropped *plan.DroppedError
	if err != nil && !errors.As(err, &dropped) {
		return nil, err
	}
	return FromEntries(entries), err
}

// FromEntries maps decoded plan entries in order.
func FromEntries(entries []plan.Entry) []Record {
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, FromEntry(entry))
	}
	return records
}

// FromEntry maps a single plan entry.
func FromEntry(entry plan.Entry) Record {
	cmd := entry.SourceCommand
	rec := Record{
		Range: Range{
			Start: Position{Line: zeroBased(cmd.StartLine), Character: zeroBased(cmd.StartColumn)},
			End:   Position{Line: zeroBased(cmd.EndLine), Character: zeroBased(cmd.EndPosition)},
		},
		Message: norm.NFC.String(entry.PlanResultReason),
	}
	switch entry.PlanSeverity {
	case plan.SeverityError:
		rec.Severity = SevError
		rec.Code = CodeDoNothing
	case plan.SeverityInformation:
		rec.Severity = SevInformation
		rec.Code = CodeDoNothing
	default:
		rec.Severity = SevWarning
		rec.Code = CodeRename
		rec.Annotation = entry.Replacement
	}
	return rec
}

func zeroBased(n int) int {
	if n <= 1 {
		return 0
	}
	return n - 1
}
