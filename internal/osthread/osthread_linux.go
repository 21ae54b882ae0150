// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package osthread

import "golang.org/x/sys/unix"

// ID returns the kernel thread id of the calling thread.
func ID() int {
	return unix.Gettid()
}

// pin must run on a locked thread.
func pin(cpuID int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)
	return unix.SchedSetaffinity(0, &mask)
}
