// Package diag defines the editor-facing diagnostic model.
//
// # Data model
//
// Record is the central value. It contains:
//
//   - Range – zero-based start/end positions, columns in UTF-16 code units
//     as the LSP expects them.
//   - Message – the PlanResultReason reported by the migration tool.
//   - Severity – Error, Warning, Information or Hint, numbered as in LSP.
//   - Code – DO_NOTHING or RENAME.
//   - Annotation – the replacement token for RENAME records, empty otherwise.
//
// # Mapping
//
// MapPlans turns raw New-AzUpgradeModulePlan output into records, one per
// plan entry and in the same order. It performs no IO; publishing is the
// caller's job.
//
// # Storage
//
// Set keeps the latest records per file. Updates replace a file's records
// wholesale; Clear drops every file at once.
package diag
