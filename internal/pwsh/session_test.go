package pwsh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestSession(handler func(string) reply) (*Session, *fakeLauncher) {
	l := &fakeLauncher{handler: handler}
	opts := DefaultOptions()
	opts.Launcher = l
	return NewSession(opts), l
}

func TestInvokeStartsLazily(t *testing.T) {
	s, l := newTestSession(func(cmd string) reply {
		return reply{out: []string{"[", `{"PlanSeverity": 2}`, "]"}}
	})
	defer s.Stop()

	if s.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %v", s.State())
	}
	req := Request{FilePath: "/tmp/a.ps1", FromVersion: "6.13.1", ToVersion: "latest"}
	raw, err := s.GetUpgradePlan(context.Background(), req)
	if err != nil {
		t.Fatalf("GetUpgradePlan: %v", err)
	}
	if got, want := string(raw), "[\n{\"PlanSeverity\": 2}\n]\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle after command, got %v", s.State())
	}
	if s.Pid() != 100 {
		t.Fatalf("pid = %d", s.Pid())
	}
	cmds := l.commands()
	if len(cmds) != 1 || cmds[0] != PlanCommand(req) {
		t.Fatalf("unexpected commands %q", cmds)
	}
	wantArgs := []string{"pwsh", "-NoLogo", "-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", "-"}
	if !reflect.DeepEqual(l.args[0], wantArgs) {
		t.Fatalf("args = %q, want %q", l.args[0], wantArgs)
	}
}

func TestInvokeReusesProcess(t *testing.T) {
	s, l := newTestSession(func(string) reply { return reply{} })
	defer s.Stop()
	for i := 0; i < 3; i++ {
		out, err := s.Invoke(context.Background(), "Get-Date")
		if err != nil {
			t.Fatalf("Invoke #%d: %v", i, err)
		}
		if out != "" {
			t.Fatalf("expected empty output, got %q", out)
		}
	}
	if len(l.procs) != 1 {
		t.Fatalf("expected one process, got %d", len(l.procs))
	}
}

func TestInvokeErrorIsReturned(t *testing.T) {
	s, _ := newTestSession(func(string) reply {
		return reply{err: "The term 'New-AzUpgradeModulePlan' is not recognized"}
	})
	defer s.Stop()
	_, err := s.GetUpgradePlan(context.Background(), Request{FilePath: "x.ps1"})
	var invErr *InvokeError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvokeError, got %v", err)
	}
	if !strings.Contains(invErr.Message, "not recognized") {
		t.Fatalf("unexpected message %q", invErr.Message)
	}
	if s.State() != StateIdle {
		t.Fatalf("failed command should leave the session idle, got %v", s.State())
	}
}

func TestRunningSessionIsRestarted(t *testing.T) {
	calls := 0
	s, l := newTestSession(func(string) reply {
		calls++
		if calls == 1 {
			return reply{hang: true}
		}
		return reply{out: []string{"[]"}}
	})
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.GetUpgradePlan(ctx, Request{FilePath: "a.ps1"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("abandoned command should leave the session running, got %v", s.State())
	}

	raw, err := s.GetUpgradePlan(context.Background(), Request{FilePath: "b.ps1"})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("unexpected output %q", raw)
	}

	var lifecycle []string
	for _, ev := range l.log() {
		if !strings.HasPrefix(ev, "cmd ") {
			lifecycle = append(lifecycle, ev)
		}
	}
	want := []string{"launch 100", "kill 100", "launch 101"}
	if !reflect.DeepEqual(lifecycle, want) {
		t.Fatalf("lifecycle = %q, want %q", lifecycle, want)
	}
	if s.Pid() != 101 || s.State() != StateIdle {
		t.Fatalf("expected idle session on pid 101, got %v on %d", s.State(), s.Pid())
	}
}

func TestProcessExitMidCommand(t *testing.T) {
	calls := 0
	s, l := newTestSession(func(string) reply {
		calls++
		if calls == 1 {
			return reply{exit: true}
		}
		return reply{out: []string{"ok"}}
	})
	defer s.Stop()

	if _, err := s.Invoke(context.Background(), "Get-Date"); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
	if s.State() != StateUninitialized {
		t.Fatalf("expected uninitialized after exit, got %v", s.State())
	}
	out, err := s.Invoke(context.Background(), "Get-Date")
	if err != nil || out != "ok\n" {
		t.Fatalf("second invoke = %q, %v", out, err)
	}
	if len(l.procs) != 2 {
		t.Fatalf("expected a fresh process, got %d launches", len(l.procs))
	}
}

func TestStartAndStopLifecycle(t *testing.T) {
	s, l := newTestSession(func(string) reply { return reply{} })
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if s.State() != StateStopped || s.Pid() != 0 {
		t.Fatalf("expected stopped session without pid")
	}
	if _, err := s.Invoke(ctx, "Get-Date"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped from Start, got %v", err)
	}
	if got := l.log(); len(got) != 2 || got[1] != "kill 100" {
		t.Fatalf("unexpected lifecycle %q", got)
	}
}

func TestLaunchFailure(t *testing.T) {
	s, l := newTestSession(nil)
	l.fail = errors.New("executable file not found")
	if _, err := s.Invoke(context.Background(), "Get-Date"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected launch error, got %v", err)
	}
	if s.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %v", s.State())
	}
}

func TestQuoteAndCommands(t *testing.T) {
	if got, want := Quote(`C:\a "b" $c`+"`"), "\"C:\\a `\"b`\" `$c``\""; got != want {
		t.Fatalf("Quote = %s, want %s", got, want)
	}
	if got := Quote("a\nb"); got != "\"a`nb\"" {
		t.Fatalf("Quote newline = %s", got)
	}
	req := Request{FilePath: "/w/s.ps1", FromVersion: "6.13.1", ToVersion: "latest"}
	want := `New-AzUpgradeModulePlan -FilePath "/w/s.ps1" -FromAzureRmVersion "6.13.1" -ToAzVersion "latest" | ConvertTo-Json -Depth 10`
	if got := PlanCommand(req); got != want {
		t.Fatalf("PlanCommand = %s", got)
	}
	if got := InstallCommand("Az.Tools.Migration"); got != `Install-Module "Az.Tools.Migration" -Repository PSGallery -Force -Scope CurrentUser` {
		t.Fatalf("InstallCommand = %s", got)
	}
	cmd, errMark, endMark := parseWrapped(strings.TrimSuffix(wrapCommand("Get-Date", 7), "\n"))
	if cmd != "Get-Date" || errMark != errorMarker(7) || endMark != endMarker(7) {
		t.Fatalf("wrapCommand framing broken: %q %q %q", cmd, errMark, endMark)
	}
}

func TestSearchPaths(t *testing.T) {
	got, err := SearchPaths("windows", `C:\Mods;;D:\More`, `C:\Users\me`)
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	want := []string{`C:\Mods`, `D:\More`, `C:\Users\me\Documents\PowerShell\Modules`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windows paths = %q, want %q", got, want)
	}

	got, err = SearchPaths("linux", "/opt/m:/usr/local/share/powershell/Modules", "/home/me")
	if err != nil {
		t.Fatalf("linux: %v", err)
	}
	want = []string{"/opt/m", "/usr/local/share/powershell/Modules", "/home/me/.local/share/powershell/Modules"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("linux paths = %q, want %q", got, want)
	}

	if _, err := SearchPaths("plan9", "", "/"); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestCheckModuleExist(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Az.Tools.Migration"), 0o755); err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.GOOS = "linux"
	opts.Getenv = func(key string) string {
		if key == "PSModulePath" {
			return dir
		}
		return ""
	}
	opts.HomeDir = func() (string, error) { return t.TempDir(), nil }
	s := NewSession(opts)
	if !s.CheckModuleExist("Az.Tools.Migration") {
		t.Fatalf("module should be found in PSModulePath")
	}
	if s.CheckModuleExist("Az.Missing") {
		t.Fatalf("missing module reported present")
	}

	opts.GOOS = "plan9"
	var logged []string
	opts.Logf = func(format string, args ...any) { logged = append(logged, format) }
	if NewSession(opts).CheckModuleExist("Az.Tools.Migration") {
		t.Fatalf("unsupported platform must report false")
	}
	if len(logged) == 0 {
		t.Fatalf("unsupported platform should be logged")
	}
}

func TestEnsureModuleInstalls(t *testing.T) {
	dir := t.TempDir()
	l := &fakeLauncher{handler: func(cmd string) reply {
		if strings.HasPrefix(cmd, "Install-Module") {
			if err := os.MkdirAll(filepath.Join(dir, "Az.Tools.Migration"), 0o755); err != nil {
				return reply{err: err.Error()}
			}
		}
		return reply{}
	}}
	opts := DefaultOptions()
	opts.Launcher = l
	opts.GOOS = "linux"
	opts.ModulePaths = []string{dir}
	opts.Getenv = func(string) string { return "" }
	opts.HomeDir = func() (string, error) { return "", errors.New("no home") }
	s := NewSession(opts)
	defer s.Stop()

	ok, err := s.EnsureModule(context.Background(), "Az.Tools.Migration", false)
	if err != nil || ok {
		t.Fatalf("check only: ok=%v err=%v", ok, err)
	}
	if len(l.procs) != 0 {
		t.Fatalf("check only must not start the interpreter")
	}
	ok, err = s.EnsureModule(context.Background(), "Az.Tools.Migration", true)
	if err != nil || !ok {
		t.Fatalf("install: ok=%v err=%v", ok, err)
	}
}
