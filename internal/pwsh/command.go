package pwsh

import (
	"fmt"
	"strings"
)

// Request describes one analysis run.
type Request struct {
	FilePath    string
	FromVersion string
	ToVersion   string
}

var quoteReplacer = strings.NewReplacer(
	"`", "``",
	`"`, "`\"",
	"$", "`$",
	"\r", "`r",
	"\n", "`n",
)

// Quote renders s as a PowerShell double-quoted string literal.
// Newlines are escaped because commands travel as single lines.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

// PlanCommand builds the New-AzUpgradeModulePlan pipeline for req.
func PlanCommand(req Request) string {
	return fmt.Sprintf("New-AzUpgradeModulePlan -FilePath %s -FromAzureRmVersion %s -ToAzVersion %s | ConvertTo-Json -Depth 10",
		Quote(req.FilePath), Quote(req.FromVersion), Quote(req.ToVersion))
}

// InstallCommand builds the Install-Module command for name.
func InstallCommand(name string) string {
	return fmt.Sprintf("Install-Module %s -Repository PSGallery -Force -Scope CurrentUser", Quote(name))
}

const markerPrefix = "__AZUPGRADE_"

func endMarker(id uint64) string   { return fmt.Sprintf("%sEND_%d__", markerPrefix, id) }
func errorMarker(id uint64) string { return fmt.Sprintf("%sERR_%d__", markerPrefix, id) }

// wrapCommand frames cmd so its completion and failure are visible on
// stdout. The error text is flattened to one line.
func wrapCommand(cmd string, id uint64) string {
	return fmt.Sprintf("try { %s } catch { Write-Output ('%s' + ($_.ToString() -replace '\\r?\\n', ' ')) }; Write-Output '%s'\n",
		cmd, errorMarker(id), endMarker(id))
}
