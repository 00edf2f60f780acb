package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"azupgrade/internal/diag"
	"azupgrade/internal/pwsh"
	"azupgrade/internal/trace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// Analyzer produces the raw upgrade plan of a script.
type Analyzer interface {
	GetUpgradePlan(ctx context.Context, req pwsh.Request) ([]byte, error)
}

// Stopper is implemented by analyzers that own a process.
type Stopper interface {
	Stop() error
}

// ModuleEnsurer checks for (and optionally installs) the migration module.
type ModuleEnsurer interface {
	EnsureModule(ctx context.Context, name string, install bool) (bool, error)
}

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Analyzer Analyzer
	// Session is stopped on shutdown. It defaults to Analyzer when the
	// analyzer implements Stopper.
	Session Stopper
	// Modules, when set, is checked for Module once the client is initialized.
	Modules     ModuleEnsurer
	Module      string
	AutoInstall bool

	Settings Settings
	// WorkspaceSettings, when set, is called with the workspace root on
	// initialize. Its result sits between Settings and client settings.
	WorkspaceSettings func(root string, base Settings) (Settings, error)
	// Pinned versions win over everything the client or workspace sets.
	Pinned  Settings
	Version string
	// Log receives log lines; nil means stderr.
	Log io.Writer
}

// Server handles stdio JSON-RPC for the azupgrade language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	mu     sync.Mutex

	openDocs map[string]string
	versions map[string]int
	diags    *diag.Set

	analyzer    Analyzer
	session     Stopper
	modules     ModuleEnsurer
	module      string
	autoInstall bool
	version     string
	log         io.Writer

	workspaceRoot     string
	workspaceSettings func(root string, base Settings) (Settings, error)
	settings          Settings
	pinned            Settings
	shutdownRequested bool

	baseCtx context.Context
	jobs    chan job
}

type job struct {
	name string
	uri  string
	run  func(ctx context.Context)
	done chan struct{}
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	session := opts.Session
	if session == nil {
		if st, ok := opts.Analyzer.(Stopper); ok {
			session = st
		}
	}
	logw := opts.Log
	if logw == nil {
		logw = os.Stderr
	}
	return &Server{
		in:          bufio.NewReader(in),
		out:         bufio.NewWriter(out),
		openDocs:    make(map[string]string),
		versions:    make(map[string]int),
		diags:       diag.NewSet(),
		analyzer:    opts.Analyzer,
		session:     session,
		modules:     opts.Modules,
		module:      opts.Module,
		autoInstall: opts.AutoInstall,
		version:     opts.Version,
		log:         logw,
		settings:    opts.Settings.pin(opts.Pinned),
		pinned:      opts.Pinned,
		baseCtx:     context.Background(),
		jobs:        make(chan job, 256),

		workspaceSettings: opts.WorkspaceSettings,
	}
}

// Diagnostics returns the published diagnostic set.
func (s *Server) Diagnostics() *diag.Set { return s.diags }

// Run serves LSP requests until exit or end of input.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.baseCtx = ctx
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.worker(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	if s.currentSettings().Trace {
		s.logf("<- %s", msg.Method)
	}
	if msg.Method != "exit" && len(msg.ID) > 0 && s.isShuttingDown() {
		return s.sendError(msg.ID, codeInvalidRequest, "server is shutting down")
	}
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized()
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.isShuttingDown() {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := ""
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()
	if root != "" && s.workspaceSettings != nil {
		settings, err := s.workspaceSettings(root, s.currentSettings())
		if err != nil {
			s.logf("workspace settings: %v", err)
			s.showMessage(messageWarning, fmt.Sprintf("azupgrade: %v", err))
		} else {
			s.mu.Lock()
			s.settings = settings.pin(s.pinned)
			s.mu.Unlock()
		}
	}
	s.applySettings(params.InitializationOptions)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save:      saveOptions{IncludeText: false},
			},
			CodeActionProvider: &codeActionOptions{CodeActionKinds: []string{"quickfix"}},
		},
		ServerInfo: &serverInfo{Name: "azupgrade", Version: s.version},
	}
	return s.sendResponse(msg.ID, result)
}

// handleInitialized is the activation point: check the module, then
// analyse every document that is already open.
func (s *Server) handleInitialized() error {
	s.mu.Lock()
	uris := make([]string, 0, len(s.openDocs))
	for uri := range s.openDocs {
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	sort.Strings(uris)

	if s.modules != nil && s.module != "" {
		s.enqueue(job{name: "module.ensure", run: s.ensureModule})
	}
	for _, uri := range uris {
		s.enqueueUpdate(uri)
	}
	return nil
}

func (s *Server) ensureModule(ctx context.Context) {
	ok, err := s.modules.EnsureModule(ctx, s.module, s.autoInstall)
	switch {
	case err != nil:
		s.logf("module %s: %v", s.module, err)
		s.showMessage(messageWarning, fmt.Sprintf("azupgrade: could not install %s: %v", s.module, err))
	case !ok:
		s.showMessage(messageWarning, fmt.Sprintf("azupgrade: PowerShell module %s is not installed; run `Install-Module %s` or enable auto_install", s.module, s.module))
	default:
		s.logf("module %s available", s.module)
	}
}

// handleShutdown clears every published diagnostic and stops the
// session once the queued work has run.
func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	done := s.enqueue(job{name: "shutdown", run: func(ctx context.Context) {
		s.updateDiagnostics(ctx, "")
		if s.session != nil {
			if err := s.session.Stop(); err != nil {
				s.logf("failed to stop session: %v", err)
			}
		}
	}})
	select {
	case <-done:
	case <-s.baseCtx.Done():
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[uri] = params.TextDocument.Text
	s.versions[uri] = params.TextDocument.Version
	s.mu.Unlock()
	s.enqueueUpdate(uri)
	return nil
}

// handleDidChange only tracks the text; plans are computed from the saved
// file.
func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[uri] = applyChanges(s.openDocs[uri], params.ContentChanges)
	s.versions[uri] = params.TextDocument.Version
	s.mu.Unlock()
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	if params.Text != nil {
		s.mu.Lock()
		s.openDocs[uri] = *params.Text
		s.mu.Unlock()
	}
	s.enqueueUpdate(uri)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.openDocs, uri)
	delete(s.versions, uri)
	s.mu.Unlock()
	s.enqueue(job{name: "close", uri: uri, run: func(context.Context) {
		s.diags.Delete(uri)
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}})
	return nil
}

func (s *Server) isOpen(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.openDocs[uri]
	return ok
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

func (s *Server) showMessage(typ int, message string) {
	if err := s.sendNotification("window/showMessage", showMessageParams{Type: typ, Message: message}); err != nil {
		s.logf("failed to show message: %v", err)
	}
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(s.log, "lsp: "+format+"\n", args...)
}

func (s *Server) tracer() trace.Tracer {
	return trace.FromContext(s.baseCtx)
}
