// Package ui renders the interactive progress view of `azupgrade plan`.
package ui

// Stage is the step a file is in.
type Stage uint8

const (
	StageNone    Stage = iota
	StageSession       // waiting for the PowerShell session
	StagePlan          // New-AzUpgradeModulePlan is running
	StageMap           // converting the plan into diagnostics
)

// Status is the coarse state of a file or of the whole run.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports progress. An empty File describes the whole run.
type Event struct {
	File     string
	Stage    Stage
	Status   Status
	Findings int
}
