package diag

// Counts summarises records by severity.
type Counts struct {
	Errors       int
	Warnings     int
	Informations int
	Hints        int
}

// Total returns the number of counted records.
func (c Counts) Total() int {
	return c.Errors + c.Warnings + c.Informations + c.Hints
}

// Count tallies records by severity.
func Count(records []Record) Counts {
	var c Counts
	for i := range records {
		switch records[i].Severity {
		case SevError:
			c.Errors++
		case SevWarning:
			c.Warnings++
		case SevInformation:
			c.Informations++
		case SevHint:
			c.Hints++
		}
	}
	return c
}

// HasErrors returns true if at least one record has Error severity.
func HasErrors(records []Record) bool {
	for i := range records {
		if records[i].Severity == SevError {
			return true
		}
	}
	return false
}

// Filter returns the records at least as severe as min, keeping order.
func Filter(records []Record, min Severity) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Severity.AtLeast(min) {
			out = append(out, rec)
		}
	}
	return out
}
