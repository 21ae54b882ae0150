// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lifecycle defines the three-state lifecycle shared by consumers
// and pools, the checks that guard each transition, and the Termination
// handle returned when a component shuts down.
//
// State only moves forward:
//
//	Init ──Start──▶ Running ──Terminate/TerminateNow──▶ Terminated
//
// The checks are pure functions of the current state; a failed check
// returns a *StateError that matches ErrInvalidState under errors.Is.
package lifecycle

import (
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
)

// State is a lifecycle state.
type State int32

const (
	// Init is the state of a constructed component that has not started.
	Init State = iota
	// Running is the state between a successful Start and termination.
	Running
	// Terminated is final.
	Terminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Running:
		return "Running"
	case Terminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrInvalidState is matched by every *StateError.
var ErrInvalidState = errors.New("lifecycle: invalid state")

// StateError reports an operation attempted in a state that does not
// allow it. It is a programmer error and is never retried.
type StateError struct {
	Component string // e.g. "SPSCConsumer" or "Pool"
	Op        string // e.g. "start", "terminate", "submit"
	State     State  // state observed when the check failed
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: cannot %s in state %s", e.Component, e.Op, e.State)
}

// Is reports whether target is ErrInvalidState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// CheckStart returns nil if s allows Start.
func CheckStart(component string, s State) error {
	if s != Init {
		return &StateError{Component: component, Op: "start", State: s}
	}
	return nil
}

// CheckRunning returns nil if s allows op, which requires Running.
func CheckRunning(component, op string, s State) error {
	if s != Running {
		return &StateError{Component: component, Op: op, State: s}
	}
	return nil
}

// Cell holds a State for concurrent readers and CAS-guarded transitions.
// The zero value is Init.
type Cell struct {
	v atomix.Int32
}

// Load returns the current state.
func (c *Cell) Load() State {
	return State(c.v.Load())
}

// Transition moves from one state to another if the cell still holds
// from. Otherwise it returns the check error for op against the state
// actually observed.
func (c *Cell) Transition(component, op string, from, to State) error {
	if c.v.CompareAndSwapAcqRel(int32(from), int32(to)) {
		return nil
	}
	return &StateError{Component: component, Op: op, State: c.Load()}
}

// Store sets the state unconditionally. The caller must already own the
// transition, for example by holding the component's start lock.
func (c *Cell) Store(s State) {
	c.v.Store(int32(s))
}
