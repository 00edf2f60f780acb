// Package pwsh manages the long-lived PowerShell process that runs the
// Az.Tools.Migration cmdlets.
//
// A Session owns exactly one interpreter. Commands are written to its
// stdin one line at a time, wrapped so the interpreter prints an end
// marker (and an error marker on failure) that lets the reader split the
// output stream back into per-command results. All operations serialize
// on an internal mutex; a command abandoned by its caller leaves the
// session Running and the next command restarts the process.
package pwsh
