// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package consumer

import (
	"fmt"
	"runtime"
)

// PanicError is a recovered handler panic together with the stack of the
// worker at the point of the panic. The worker survives; the task counts
// as failed and the PanicError reaches the ErrorHandler.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the worker's stack trace at the point of the panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}
