package pwsh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"azupgrade/internal/trace"
)

// DefaultExecutable is the interpreter started when Options leaves it empty.
const DefaultExecutable = "pwsh"

// Options configures a Session.
type Options struct {
	Executable      string   // defaults to "pwsh"
	ExecutionPolicy string   // defaults to "Bypass"
	NoProfile       bool     // pass -NoProfile
	ModulePaths     []string // extra module directories, searched first
	Launcher        Launcher // defaults to ExecLauncher{}

	// GOOS, Getenv and HomeDir override the platform lookups used by
	// CheckModuleExist.
	GOOS    string
	Getenv  func(string) string
	HomeDir func() (string, error)

	// Logf receives human-readable log lines. Nil discards them.
	Logf func(format string, args ...any)
}

// DefaultOptions returns the fixed options used for analysis sessions.
func DefaultOptions() Options {
	return Options{
		Executable:      DefaultExecutable,
		ExecutionPolicy: "Bypass",
		NoProfile:       true,
	}
}

// Session owns one PowerShell process.
type Session struct {
	opts Options

	op sync.Mutex // serializes Start/Invoke/Restart/Stop

	mu    sync.Mutex // guards the fields below for State/Pid
	state State
	proc  Process

	// per-process reader plumbing, owned by op
	lines chan string
	quit  chan struct{}
	group *errgroup.Group
	seq   uint64
}

// NewSession returns an uninitialized session. No process is started.
func NewSession(opts Options) *Session {
	if opts.Executable == "" {
		opts.Executable = DefaultExecutable
	}
	if opts.ExecutionPolicy == "" {
		opts.ExecutionPolicy = "Bypass"
	}
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	return &Session{opts: opts}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pid returns the interpreter's process id, 0 when none is live.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.Pid()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) logf(format string, args ...any) {
	if s.opts.Logf != nil {
		s.opts.Logf(format, args...)
	}
}

func (s *Session) args() []string {
	args := []string{"-NoLogo"}
	if s.opts.NoProfile {
		args = append(args, "-NoProfile")
	}
	args = append(args, "-NonInteractive", "-ExecutionPolicy", s.opts.ExecutionPolicy, "-Command", "-")
	return args
}

// Start launches the interpreter.
func (s *Session) Start(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	switch s.State() {
	case StateIdle, StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeSession, "pwsh.start", trace.CurrentSpan(ctx))
	proc, err := s.opts.Launcher.Launch(ctx, s.opts.Executable, s.args())
	if err != nil {
		span.Fail(err)
		return fmt.Errorf("pwsh: start %s: %w", s.opts.Executable, err)
	}

	lines := make(chan string)
	quit := make(chan struct{})
	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(lines)
		sc := bufio.NewScanner(proc.Stdout())
		sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-quit:
				return nil
			}
		}
		return nil
	})
	g.Go(func() error {
		sc := bufio.NewScanner(proc.Stderr())
		for sc.Scan() {
			s.logf("pwsh stderr: %s", sc.Text())
		}
		return nil
	})

	s.lines, s.quit, s.group = lines, quit, g
	s.mu.Lock()
	s.proc = proc
	s.state = StateIdle
	s.mu.Unlock()
	span.WithExtra("pid", strconv.Itoa(proc.Pid())).End("")
	s.logf("pwsh: started %s (pid %d)", s.opts.Executable, proc.Pid())
	return nil
}

// disposeLocked kills the process and waits for its readers.
func (s *Session) disposeLocked() {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()
	if proc == nil {
		return
	}
	if err := proc.Stdin().Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logf("pwsh: close stdin: %v", err)
	}
	if err := proc.Kill(); err != nil {
		s.logf("pwsh: kill pid %d: %v", proc.Pid(), err)
	}
	close(s.quit)
	// Wait closes the pipes, which ends both readers.
	_ = proc.Wait() //nolint:errcheck
	_ = s.group.Wait()
	s.lines, s.quit, s.group = nil, nil, nil
}

// Restart force-kills the current process, releases its pipes and
// readers, and starts a new one.
func (s *Session) Restart(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	if s.State() == StateStopped {
		return ErrStopped
	}
	return s.restartLocked(ctx)
}

func (s *Session) restartLocked(ctx context.Context) error {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeSession, "pwsh.restart", trace.CurrentSpan(ctx))
	defer span.End("")
	s.logf("pwsh: restarting session (pid %d)", s.Pid())
	s.disposeLocked()
	s.setState(StateUninitialized)
	return s.startLocked(ctx)
}

// Stop disposes the process. Calling Stop more than once is harmless.
func (s *Session) Stop() error {
	s.op.Lock()
	defer s.op.Unlock()
	if s.State() == StateStopped {
		return nil
	}
	s.disposeLocked()
	s.setState(StateStopped)
	s.logf("pwsh: session stopped")
	return nil
}

// Invoke runs one command and returns its stdout. A session that was
// never started is started first; a session left Running by an abandoned
// command is restarted. If ctx ends before the command completes, Invoke
// returns ctx.Err() and the session stays Running.
func (s *Session) Invoke(ctx context.Context, cmd string) (string, error) {
	s.op.Lock()
	defer s.op.Unlock()

	switch s.State() {
	case StateStopped:
		return "", ErrStopped
	case StateUninitialized:
		if err := s.startLocked(ctx); err != nil {
			return "", err
		}
	case StateRunning:
		if err := s.restartLocked(ctx); err != nil {
			return "", err
		}
	}
	return s.invokeLocked(ctx, cmd)
}

func (s *Session) invokeLocked(ctx context.Context, cmd string) (string, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeSession, "pwsh.invoke", trace.CurrentSpan(ctx))
	span.WithExtra("command", commandName(cmd))

	s.seq++
	id := s.seq
	line := wrapCommand(cmd, id)
	end, errMark := endMarker(id), errorMarker(id)

	s.setState(StateRunning)
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	trace.Point(tracer, trace.ScopeIO, "pwsh.write", strings.TrimSpace(line))
	if _, err := io.WriteString(proc.Stdin(), line); err != nil {
		s.disposeLocked()
		s.setState(StateUninitialized)
		span.End("write failed")
		return "", fmt.Errorf("%w: %v", ErrProcessExited, err)
	}

	var out strings.Builder
	var invokeErr *InvokeError
	lines := s.lines
	for {
		select {
		case <-ctx.Done():
			span.End("abandoned")
			return "", ctx.Err()
		case text, ok := <-lines:
			if !ok {
				s.disposeLocked()
				s.setState(StateUninitialized)
				span.Fail(ErrProcessExited)
				return "", ErrProcessExited
			}
			switch {
			case text == end:
				s.setState(StateIdle)
				if invokeErr != nil {
					span.Fail(invokeErr)
					return out.String(), invokeErr
				}
				span.End("")
				return out.String(), nil
			case strings.HasPrefix(text, errMark):
				invokeErr = &InvokeError{Command: cmd, Message: strings.TrimPrefix(text, errMark)}
			default:
				trace.Point(tracer, trace.ScopeIO, "pwsh.read", text)
				out.WriteString(text)
				out.WriteByte('\n')
			}
		}
	}
}

// GetUpgradePlan runs New-AzUpgradeModulePlan for req and returns the raw
// JSON text. Empty output is not an error.
func (s *Session) GetUpgradePlan(ctx context.Context, req Request) ([]byte, error) {
	out, err := s.Invoke(ctx, PlanCommand(req))
	if err != nil {
		return nil, fmt.Errorf("upgrade plan for %s: %w", req.FilePath, err)
	}
	return []byte(out), nil
}

// CheckModuleExist reports whether a module directory named name exists
// in any PowerShell module search path.
func (s *Session) CheckModuleExist(name string) bool {
	dirs, err := s.ModuleSearchPaths()
	if err != nil {
		s.logf("pwsh: %v", err)
	}
	return moduleInstalled(dirs, name)
}

// ModuleSearchPaths returns the configured extra paths followed by the
// platform search paths. On an unsupported platform only the extra paths
// are returned, together with ErrUnsupportedPlatform.
func (s *Session) ModuleSearchPaths() ([]string, error) {
	goos := s.opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	getenv := s.opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	homeDir := s.opts.HomeDir
	if homeDir == nil {
		homeDir = os.UserHomeDir
	}
	home, err := homeDir()
	if err != nil {
		home = ""
	}
	dirs := append([]string(nil), s.opts.ModulePaths...)
	platform, err := SearchPaths(goos, getenv("PSModulePath"), home)
	if err != nil {
		return dirs, fmt.Errorf("%w: %s", err, goos)
	}
	return append(dirs, platform...), nil
}

// InstallModule installs name from PSGallery for the current user.
func (s *Session) InstallModule(ctx context.Context, name string) error {
	if _, err := s.Invoke(ctx, InstallCommand(name)); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	s.logf("pwsh: installed %q", name)
	return nil
}

// EnsureModule checks for name and, when install is set, installs it if
// missing. It reports whether the module is present afterwards.
func (s *Session) EnsureModule(ctx context.Context, name string, install bool) (bool, error) {
	if s.CheckModuleExist(name) {
		return true, nil
	}
	if !install {
		return false, nil
	}
	if err := s.InstallModule(ctx, name); err != nil {
		return false, err
	}
	return s.CheckModuleExist(name), nil
}
