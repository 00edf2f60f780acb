package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"

	"azupgrade/internal/diag"
)

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifact      `json:"artifactLocation"`
	Replacements     []sarifReplacement `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion  `json:"deletedRegion"`
	InsertedContent sarifMessage `json:"insertedContent"`
}

func sarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// Sarif writes reports as a SARIF v2.1.0 log.
func Sarif(w io.Writer, reports []FileReport, meta SarifRunMeta) error {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:    meta.ToolName,
			Version: meta.ToolVersion,
			Rules: []sarifRule{
				{ID: diag.CodeRename.ID(), ShortDescription: sarifMessage{Text: "Command or parameter renamed in Az"}},
				{ID: diag.CodeDoNothing.ID(), ShortDescription: sarifMessage{Text: "Breaking change without automatic fix"}},
			},
		}},
		Results: make([]sarifResult, 0),
	}
	ok := true
	for _, rep := range reports {
		if rep.Err != nil {
			ok = false
			continue
		}
		uri := filepath.ToSlash(formatPath(rep.Path, PathModeRelative, meta.BaseDir))
		for _, rec := range rep.Records {
			loc, err := makeLocation(uri, rec.Range)
			if err != nil {
				return err
			}
			region := sarifRegion{StartLine: loc.StartLine, StartColumn: loc.StartCol, EndLine: loc.EndLine, EndColumn: loc.EndCol}
			res := sarifResult{
				RuleID:  rec.Code.ID(),
				Level:   sarifLevel(rec.Severity),
				Message: sarifMessage{Text: rec.Message},
				Locations: []sarifLocation{{PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: uri},
					Region:           region,
				}}},
			}
			if replacement, has := rec.Replacement(); has {
				res.Fixes = []sarifFix{{
					Description: sarifMessage{Text: "Auto fix to " + replacement},
					ArtifactChanges: []sarifArtifactChange{{
						ArtifactLocation: sarifArtifact{URI: uri},
						Replacements: []sarifReplacement{{
							DeletedRegion:   region,
							InsertedContent: sarifMessage{Text: replacement},
						}},
					}},
				}}
			}
			run.Results = append(run.Results, res)
		}
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: ok}}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}})
}
