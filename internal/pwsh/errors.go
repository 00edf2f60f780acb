package pwsh

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start when a process is live.
	ErrAlreadyStarted = errors.New("pwsh: session already started")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("pwsh: session stopped")
	// ErrProcessExited means the interpreter died while a command ran.
	ErrProcessExited = errors.New("pwsh: process exited")
	// ErrUnsupportedPlatform is returned when no module directories are
	// known for the running OS.
	ErrUnsupportedPlatform = errors.New("pwsh: unsupported operating system")
)

// InvokeError carries the message of a PowerShell terminating error.
type InvokeError struct {
	Command string
	Message string
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("pwsh: %s: %s", commandName(e.Command), e.Message)
}

// commandName returns the first word of a command line.
func commandName(cmd string) string {
	for i, r := range cmd {
		if r == ' ' || r == '\t' {
			return cmd[:i]
		}
	}
	return cmd
}
