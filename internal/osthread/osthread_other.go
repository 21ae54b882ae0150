// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package osthread

import "code.hybscloud.com/atomix"

var next atomix.Int64

// ID returns a process-unique number for the calling worker. Platforms
// without a cheap thread id query get a counter instead.
func ID() int {
	return int(next.Add(1))
}

// pin is a no-op: thread affinity is only supported on linux.
func pin(int) error {
	return nil
}
