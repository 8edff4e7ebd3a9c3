// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aperturehq/aperture/pkg/logger"
)

const (
	// procLineLimit bounds a single line from the runner. Lines can carry
	// base64 image payloads, so the limit sits well above the gateway's
	// inbound frame cap.
	procLineLimit = 32 << 20

	// stderrTailLimit caps the retained stderr tail used in exit reasons.
	stderrTailLimit = 4096

	// procExitGrace is how long Close waits for a voluntary exit after
	// stdin closes when the caller's context carries no deadline.
	procExitGrace = 5 * time.Second

	// procKillGrace is how long Close waits between SIGTERM and SIGKILL.
	procKillGrace = 2 * time.Second
)

// ErrProcessExited is returned by Send once the runner has gone away.
var ErrProcessExited = stderrors.New("agent process has exited")

// Proc is a running backend subprocess speaking newline-delimited JSON on
// both stdio pipes. A single reader goroutine owns stdout and fans decoded
// lines into Lines; writes to stdin are serialized by an internal mutex.
//
// The process lifetime is governed by Close, never by a context: callers
// hold a Proc across many requests.
type Proc struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex

	lines chan json.RawMessage

	done    chan struct{}
	waitErr error

	stderrMu sync.Mutex
	stderr   []byte
}

// StartProc launches the runner binary and begins pumping its stdout.
func StartProc(path string, args []string, dir string, env []string) (*Proc, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", filepath.Base(path), err)
	}

	p := &Proc{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan json.RawMessage, 64),
		done:  make(chan struct{}),
	}

	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		p.pumpStdout(stdout)
	}()
	go func() {
		defer pipes.Done()
		p.tailStderr(stderr)
	}()
	go func() {
		pipes.Wait()
		p.waitErr = cmd.Wait()
		close(p.lines)
		close(p.done)
	}()

	logger.Debugf("started agent runner %s (pid %d)", filepath.Base(path), cmd.Process.Pid)
	return p, nil
}

// Send marshals v and writes it to the runner's stdin as one line.
func (p *Proc) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding runner message: %w", err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	select {
	case <-p.done:
		return ErrProcessExited
	default:
	}

	if _, err := p.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing to runner stdin: %w", err)
	}
	return nil
}

// Lines returns the stdout line channel. The channel is closed after the
// process exits and its output is drained. Exactly one consumer must read
// it to completion; abandoning the channel stalls the stdout pump.
func (p *Proc) Lines() <-chan json.RawMessage {
	return p.lines
}

// Done is closed once the process has exited and all output is consumed.
func (p *Proc) Done() <-chan struct{} {
	return p.done
}

// Err returns the process exit error. Valid only after Done is closed.
func (p *Proc) Err() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// StderrTail returns the most recent stderr output, for exit diagnostics.
func (p *Proc) StderrTail() string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()
	return strings.TrimSpace(string(p.stderr))
}

// Close shuts the runner down: stdin close first so it can exit voluntarily,
// then SIGTERM, then SIGKILL. The ctx deadline bounds the voluntary phase.
// Close returns once the process has been reaped.
func (p *Proc) Close(ctx context.Context) error {
	p.writeMu.Lock()
	_ = p.stdin.Close()
	p.writeMu.Unlock()

	grace := time.NewTimer(procExitGrace)
	defer grace.Stop()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
	case <-grace.C:
	}

	logger.Debugf("agent runner (pid %d) ignored stdin close, sending SIGTERM", p.cmd.Process.Pid)
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	kill := time.NewTimer(procKillGrace)
	defer kill.Stop()
	select {
	case <-p.done:
		return nil
	case <-kill.C:
	}

	_ = p.cmd.Process.Kill()
	<-p.done
	return nil
}

func (p *Proc) pumpStdout(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), procLineLimit)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		raw := make(json.RawMessage, len(line))
		copy(raw, line)
		p.lines <- raw
	}
	if err := scanner.Err(); err != nil {
		logger.Debugf("agent runner stdout closed: %v", err)
	}
}

func (p *Proc) tailStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		p.stderrMu.Lock()
		p.stderr = append(p.stderr, line...)
		p.stderr = append(p.stderr, '\n')
		if over := len(p.stderr) - stderrTailLimit; over > 0 {
			p.stderr = p.stderr[over:]
		}
		p.stderrMu.Unlock()
	}
}
