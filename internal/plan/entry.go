// Package plan decodes the output of New-AzUpgradeModulePlan.
package plan

import "fmt"

// Severity is the numeric PlanSeverity reported by Az.Tools.Migration.
type Severity int

const (
	// SeverityError marks a breaking change with no automatic upgrade.
	SeverityError Severity = 1
	// SeverityInformation marks a change that needs no action.
	SeverityInformation Severity = 2
	// SeverityWarning marks a command that can be renamed automatically.
	SeverityWarning Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// IsRename reports whether entries of this severity carry a replacement.
// Anything other than 1 and 2 is treated as a rename.
func (s Severity) IsRename() bool {
	return s != SeverityError && s != SeverityInformation
}

// SourceCommand locates the analysed command in the script.
// Lines and columns are 1-based.
type SourceCommand struct {
	CommandName string `json:"CommandName,omitempty"`
	StartLine   int    `json:"StartLine"`
	StartColumn int    `json:"StartColumn"`
	EndLine     int    `json:"EndLine"`
	EndPosition int    `json:"EndPosition"`
	SourceFile  string `json:"SourceFile,omitempty"`
}

// Entry is one finding of an upgrade plan.
type Entry struct {
	Order            int           `json:"Order,omitempty"`
	UpgradeType      any           `json:"UpgradeType,omitempty"`
	PlanResult       any           `json:"PlanResult,omitempty"`
	PlanSeverity     Severity      `json:"PlanSeverity"`
	PlanResultReason string        `json:"PlanResultReason"`
	SourceCommand    SourceCommand `json:"SourceCommand"`
	Location         string        `json:"Location,omitempty"`
	Original         string        `json:"Original,omitempty"`
	Replacement      string        `json:"Replacement"`
}
