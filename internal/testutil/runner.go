package testutil

import (
	"context"
	"strings"
	"sync"
)

// Call is one command seen by a RecordingRunner.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a shell-like command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// RecordingRunner records every command instead of executing it. OnRun, when
// set, is called for each command and its error is returned to the caller.
type RecordingRunner struct {
	OnRun func(name string, args []string) error

	mu    sync.Mutex
	calls []Call
}

// Run implements the bundle runner interface.
func (r *RecordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	r.mu.Unlock()
	if r.OnRun != nil {
		return r.OnRun(name, args)
	}
	return nil
}

// Calls returns a copy of the recorded commands.
func (r *RecordingRunner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
