// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProc_EchoRoundTrip(t *testing.T) {
	t.Parallel()

	// cat echoes each stdin line back on stdout unchanged.
	proc, err := StartProc("cat", nil, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = proc.Close(t.Context()) })

	require.NoError(t, proc.Send(map[string]string{"type": "ping"}))

	select {
	case line := <-proc.Lines():
		assert.JSONEq(t, `{"type":"ping"}`, string(line))
	case <-time.After(5 * time.Second):
		t.Fatal("no line received from the child process")
	}

	require.NoError(t, proc.Close(t.Context()))
	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after stdin close")
	}
	assert.NoError(t, proc.Err(), "cat exits cleanly on EOF")

	err = proc.Send(map[string]string{"type": "late"})
	assert.ErrorIs(t, err, ErrProcessExited)
}

func TestProc_StderrTailAndExitError(t *testing.T) {
	t.Parallel()

	proc, err := StartProc("sh", []string{"-c", "echo oops >&2; exit 3"}, "", nil)
	require.NoError(t, err)

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	require.Error(t, proc.Err())
	assert.Contains(t, proc.Err().Error(), "exit status 3")
	assert.Equal(t, "oops", proc.StderrTail())

	// The lines channel is closed and empty.
	_, open := <-proc.Lines()
	assert.False(t, open)
}

func TestProc_SkipsBlankLines(t *testing.T) {
	t.Parallel()

	proc, err := StartProc("sh", []string{"-c", `printf '\n{"a":1}\n\n{"b":2}\n'`}, "", nil)
	require.NoError(t, err)

	var got []string
	for line := range proc.Lines() {
		got = append(got, string(line))
	}
	require.Len(t, got, 2, "blank lines are dropped")
	assert.JSONEq(t, `{"a":1}`, got[0])
	assert.JSONEq(t, `{"b":2}`, got[1])
}

func TestProc_StartFailure(t *testing.T) {
	t.Parallel()

	_, err := StartProc("/nonexistent/agent-runner", nil, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting agent-runner")
}
