package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Runs      int      `json:"runs"`
	LastRun   *Summary `json:"last_run,omitempty"`
	Layout    string   `json:"layout"`
	Archive   any      `json:"archive,omitempty"`
	NoteStore any      `json:"note_store,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := ServiceState{
		Runs:   s.runs,
		Layout: s.layout.Signature(),
	}
	if s.last != nil {
		last := *s.last
		state.LastRun = &last
	}
	if i, ok := s.archive.(introspection.Introspectable); ok {
		state.Archive = i.State()
	}
	if i, ok := s.notes.(introspection.Introspectable); ok {
		state.NoteStore = i.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
