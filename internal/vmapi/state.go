package vmapi

import (
	"fmt"
	"strings"
)

// State is a lifecycle state as reported by VMAPI in `state` and `zone_state`.
type State string

// Recognised provider states.
const (
	StateActive       State = "active"
	StateConfigured   State = "configured"
	StateDeleted      State = "deleted"
	StateDestroyed    State = "destroyed"
	StateDown         State = "down"
	StateFailed       State = "failed"
	StateHalt         State = "halt"
	StateHalting      State = "halting"
	StateIncomplete   State = "incomplete"
	StateInstalled    State = "installed"
	StateOff          State = "off"
	StateOffline      State = "offline"
	StateProvisioning State = "provisioning"
	StateReady        State = "ready"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
	StateStopping     State = "stopping"
	StateUnavailable  State = "unavailable"
	StateUnknown      State = "unknown"
	StateUnreachable  State = "unreachable"
)

// MachineState is the canonical, brand-agnostic machine state.
type MachineState string

const (
	MachineProvisioning MachineState = "provisioning"
	MachineReady        MachineState = "ready"
	MachineRunning      MachineState = "running"
	MachineStopping     MachineState = "stopping"
	MachineStopped      MachineState = "stopped"
	MachineOffline      MachineState = "offline"
	MachineDeleted      MachineState = "deleted"
	MachineFailed       MachineState = "failed"
	MachineUnknown      MachineState = "unknown"
)

// States returns every provider state this package recognises.
func States() []State {
	return []State{
		StateActive, StateConfigured, StateDeleted, StateDestroyed, StateDown,
		StateFailed, StateHalt, StateHalting, StateIncomplete, StateInstalled,
		StateOff, StateOffline, StateProvisioning, StateReady, StateRunning,
		StateShuttingDown, StateStopped, StateStopping, StateUnavailable,
		StateUnknown, StateUnreachable,
	}
}

// MachineStates returns the canonical state set.
func MachineStates() []MachineState {
	return []MachineState{
		MachineProvisioning, MachineReady, MachineRunning, MachineStopping,
		MachineStopped, MachineOffline, MachineDeleted, MachineFailed,
		MachineUnknown,
	}
}

// String returns the state in the provider vocabulary.
func (s State) String() string {
	return string(s)
}

// IsValid reports whether s is one of the recognised provider states.
func (s State) IsValid() bool {
	for _, known := range States() {
		if s == known {
			return true
		}
	}
	return false
}

// MachineState collapses the provider state into the canonical set. Any value
// not listed below, including a literal "deleted", becomes MachineUnknown.
func (s State) MachineState() MachineState {
	switch s {
	case StateConfigured, StateIncomplete, StateUnavailable, StateProvisioning:
		return MachineProvisioning
	case StateReady:
		return MachineReady
	case StateRunning:
		return MachineRunning
	case StateHalting, StateStopping, StateShuttingDown:
		return MachineStopping
	case StateOff, StateDown, StateInstalled, StateStopped:
		return MachineStopped
	case StateUnreachable:
		return MachineOffline
	case StateDestroyed:
		return MachineDeleted
	case StateFailed:
		return MachineFailed
	default:
		return MachineUnknown
	}
}

// ClassifyState is MachineState for an optional state; nil yields MachineUnknown.
func ClassifyState(s *State) MachineState {
	if s == nil {
		return MachineUnknown
	}
	return s.MachineState()
}

// ParseState returns the provider state for value, accepting the hyphenated
// spelling of shutting_down.
func ParseState(value string) (State, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	s := State(normalized)
	if !s.IsValid() {
		return "", fmt.Errorf("unsupported state %q", value)
	}
	return s, nil
}

// String returns the canonical state as string.
func (s MachineState) String() string {
	return string(s)
}
