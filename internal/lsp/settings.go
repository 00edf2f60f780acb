package lsp

import (
	"encoding/json"
	"strings"
)

// Settings are the values a client can change at runtime.
type Settings struct {
	FromVersion string
	ToVersion   string
	Trace       bool
}

type settingsPayload struct {
	FromVersion *string `json:"fromVersion,omitempty"`
	ToVersion   *string `json:"toVersion,omitempty"`
	Trace       *bool   `json:"trace,omitempty"`
}

// lspSettings accepts both {"azupgrade": {...}} and the flat form.
type lspSettings struct {
	Azupgrade *settingsPayload `json:"azupgrade,omitempty"`
	settingsPayload
}

func (s Settings) merge(p *settingsPayload) Settings {
	if p == nil {
		return s
	}
	if p.FromVersion != nil && strings.TrimSpace(*p.FromVersion) != "" {
		s.FromVersion = strings.TrimSpace(*p.FromVersion)
	}
	if p.ToVersion != nil && strings.TrimSpace(*p.ToVersion) != "" {
		s.ToVersion = strings.TrimSpace(*p.ToVersion)
	}
	if p.Trace != nil {
		s.Trace = *p.Trace
	}
	return s
}

// pin overrides s with the non-empty versions of p.
func (s Settings) pin(p Settings) Settings {
	if p.FromVersion != "" {
		s.FromVersion = p.FromVersion
	}
	if p.ToVersion != "" {
		s.ToVersion = p.ToVersion
	}
	return s
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logf("ignoring malformed settings: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = s.settings.merge(&settings.settingsPayload).merge(settings.Azupgrade).pin(s.pinned)
}

func (s *Server) currentSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}
