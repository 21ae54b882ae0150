// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/taskq/lifecycle"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "Init", lifecycle.Init.String())
	assert.Equal(t, "Running", lifecycle.Running.String())
	assert.Equal(t, "Terminated", lifecycle.Terminated.String())
	assert.Equal(t, "State(9)", lifecycle.State(9).String())
}

func TestChecks(t *testing.T) {
	assert.NoError(t, lifecycle.CheckStart("c", lifecycle.Init))
	assert.ErrorIs(t, lifecycle.CheckStart("c", lifecycle.Running), lifecycle.ErrInvalidState)
	assert.ErrorIs(t, lifecycle.CheckStart("c", lifecycle.Terminated), lifecycle.ErrInvalidState)

	assert.NoError(t, lifecycle.CheckRunning("c", "submit", lifecycle.Running))
	assert.ErrorIs(t, lifecycle.CheckRunning("c", "submit", lifecycle.Init), lifecycle.ErrInvalidState)
	assert.ErrorIs(t, lifecycle.CheckRunning("c", "submit", lifecycle.Terminated), lifecycle.ErrInvalidState)
}

func TestStateError(t *testing.T) {
	err := lifecycle.CheckRunning("SPSCConsumer", "submit", lifecycle.Terminated)

	var se *lifecycle.StateError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "SPSCConsumer", se.Component)
	assert.Equal(t, "submit", se.Op)
	assert.Equal(t, lifecycle.Terminated, se.State)
	assert.Equal(t, "SPSCConsumer: cannot submit in state Terminated", err.Error())

	wrapped := errors.Join(errors.New("outer"), err)
	assert.ErrorIs(t, wrapped, lifecycle.ErrInvalidState)
	assert.False(t, errors.Is(errors.New("other"), lifecycle.ErrInvalidState))
}

func TestCell_Transition(t *testing.T) {
	var c lifecycle.Cell
	assert.Equal(t, lifecycle.Init, c.Load())

	err := c.Transition("x", "terminate", lifecycle.Running, lifecycle.Terminated)
	var se *lifecycle.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, lifecycle.Init, se.State)

	c.Store(lifecycle.Running)
	require.NoError(t, c.Transition("x", "terminate", lifecycle.Running, lifecycle.Terminated))
	assert.Equal(t, lifecycle.Terminated, c.Load())
}

func TestCell_TransitionOnce(t *testing.T) {
	var c lifecycle.Cell
	c.Store(lifecycle.Running)

	const n = 16
	var (
		wg  sync.WaitGroup
		won sync.Map
	)
	for i := range n {
		wg.Go(func() {
			if c.Transition("x", "terminate", lifecycle.Running, lifecycle.Terminated) == nil {
				won.Store(i, true)
			}
		})
	}
	wg.Wait()

	count := 0
	won.Range(func(any, any) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count)
}

func TestTermination(t *testing.T) {
	term := lifecycle.NewTermination()
	_, ok := term.Consumed()
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := term.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go term.Resolve(42)

	n, err := term.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	select {
	case <-term.Done():
	default:
		t.Fatal("Done not closed after Resolve")
	}
	n, ok = term.Consumed()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
}
