package pwsh

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// reply is what the fake interpreter does with one command.
type reply struct {
	out  []string
	err  string
	hang bool // block until killed
	exit bool // die without finishing
}

type fakeLauncher struct {
	mu      sync.Mutex
	handler func(cmd string) reply
	procs   []*fakeProc
	events  []string
	args    [][]string
	fail    error
}

func (l *fakeLauncher) Launch(_ context.Context, name string, args []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	pid := len(l.procs) + 100
	p := newFakeProc(pid, l)
	l.procs = append(l.procs, p)
	l.events = append(l.events, fmt.Sprintf("launch %d", pid))
	l.args = append(l.args, append([]string{name}, args...))
	go p.serve()
	return p, nil
}

func (l *fakeLauncher) record(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *fakeLauncher) log() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *fakeLauncher) commands() []string {
	var cmds []string
	for _, ev := range l.log() {
		if strings.HasPrefix(ev, "cmd ") {
			cmds = append(cmds, strings.TrimPrefix(ev, "cmd "))
		}
	}
	return cmds
}

type fakeProc struct {
	pid      int
	launcher *fakeLauncher

	stdinR, stdoutR, stderrR *io.PipeReader
	stdinW, stdoutW, stderrW *io.PipeWriter

	killed   chan struct{}
	killOnce sync.Once
	done     chan struct{}
}

func newFakeProc(pid int, l *fakeLauncher) *fakeProc {
	p := &fakeProc{pid: pid, launcher: l, killed: make(chan struct{}), done: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProc) Stdin() io.WriteCloser { return p.stdinW }
func (p *fakeProc) Stdout() io.Reader     { return p.stdoutR }
func (p *fakeProc) Stderr() io.Reader     { return p.stderrR }
func (p *fakeProc) Pid() int              { return p.pid }

func (p *fakeProc) Kill() error {
	p.killOnce.Do(func() {
		p.launcher.record(fmt.Sprintf("kill %d", p.pid))
		close(p.killed)
		p.stdinR.Close()
		p.stdoutW.Close()
		p.stderrW.Close()
	})
	return nil
}

func (p *fakeProc) Wait() error {
	<-p.done
	return nil
}

func (p *fakeProc) serve() {
	defer close(p.done)
	sc := bufio.NewScanner(p.stdinR)
	for sc.Scan() {
		cmd, errMark, endMark := parseWrapped(sc.Text())
		p.launcher.record("cmd " + cmd)
		r := p.launcher.handler(cmd)
		if r.hang {
			<-p.killed
			return
		}
		if r.exit {
			p.stdoutW.Close()
			p.stderrW.Close()
			<-p.killed
			return
		}
		var b strings.Builder
		for _, line := range r.out {
			b.WriteString(line + "\n")
		}
		if r.err != "" {
			b.WriteString(errMark + r.err + "\n")
		}
		b.WriteString(endMark + "\n")
		if _, err := io.WriteString(p.stdoutW, b.String()); err != nil {
			return
		}
	}
}

// parseWrapped undoes wrapCommand.
func parseWrapped(line string) (cmd, errMark, endMark string) {
	rest := strings.TrimPrefix(line, "try { ")
	idx := strings.Index(rest, " } catch { Write-Output ('")
	cmd = rest[:idx]
	rest = rest[idx+len(" } catch { Write-Output ('"):]
	errMark = rest[:strings.Index(rest, "'")]
	endIdx := strings.LastIndex(rest, "Write-Output '")
	endMark = strings.TrimSuffix(rest[endIdx+len("Write-Output '"):], "'")
	return cmd, errMark, endMark
}
