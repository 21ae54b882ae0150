// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package osthread binds worker goroutines to OS threads.
package osthread

import "runtime"

// Lock wires the calling goroutine to its current OS thread and, when
// cpuID is not negative, pins that thread to the CPU core cpuID modulo
// NumCPU. It returns the thread id and a function that undoes the lock.
// A failed pin is reported but the thread stays locked.
func Lock(cpuID int) (tid int, unlock func(), err error) {
	runtime.LockOSThread()
	if cpuID >= 0 {
		err = pin(cpuID % runtime.NumCPU())
	}
	return ID(), runtime.UnlockOSThread, err
}
