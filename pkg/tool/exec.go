// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrToolNotFound means the external binary is not on PATH.
	ErrToolNotFound = errors.Base("image tool not found")
	// ErrTimeout means the external process exceeded its wait bound and was killed.
	ErrTimeout = errors.Base("image tool timed out")
	// ErrMissingOutput means the tool exited 0 without writing the output file.
	ErrMissingOutput = errors.Base("image tool produced no output")
)

// 💥 ExecutionError is a non-zero exit of the external tool.
type ExecutionError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Binary, e.ExitCode, msg)
}

const waitDelay = 2 * time.Second

// Invocation is one external process run against one file.
type Invocation struct {
	Binary string
	Args   []string
	Input  string
	Output string
}

func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Binary}, inv.Args...), " ")
}

// Result is what is known once the process has terminated.
type Result struct {
	ExitCode     int
	ProducedPath string
	Stderr       string
	Duration     time.Duration
}

// 🔌 Executor runs invocations. The dispatcher only depends on this interface.
type Executor interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// Exec runs invocations as real subprocesses.
type Exec struct {
	// Timeout bounds each process; zero means no bound beyond ctx.
	Timeout time.Duration

	lookPath func(string) (string, error)
}

// NewExec creates an Exec backed by exec.LookPath.
func NewExec(timeout time.Duration) *Exec {
	return &Exec{Timeout: timeout, lookPath: exec.LookPath}
}

// 🏃 Run starts the process, waits for it and classifies the outcome
func (e *Exec) Run(ctx context.Context, inv Invocation) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("binary", inv.Binary).Str("input", inv.Input).Logger()

	lookPath := e.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	bin, err := lookPath(inv.Binary)
	if err != nil {
		return nil, errors.Errorf("%s: %w", inv.Binary, ErrToolNotFound)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, inv.Args...)
	cmd.Stderr = &stderr
	// grandchildren holding stderr open must not outlive the kill
	cmd.WaitDelay = waitDelay

	logger.Debug().Str("cmd", inv.String()).Msg("running image tool")

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		ExitCode: -1,
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, errors.Errorf("%s after %s: %w", inv.Binary, res.Duration.Round(time.Millisecond), ErrTimeout)
		}
		if ctx.Err() != nil {
			return res, errors.Errorf("running %s: %w", inv.Binary, ctx.Err())
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return res, errors.Errorf("%s: %w", inv.Binary, ErrToolNotFound)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			logger.Debug().Int("exit_code", res.ExitCode).Str("stderr", res.Stderr).Msg("image tool failed")
			return res, &ExecutionError{Binary: inv.Binary, ExitCode: res.ExitCode, Stderr: res.Stderr}
		}
		return res, errors.Errorf("running %s: %w", inv.Binary, runErr)
	}

	if inv.Output != "" {
		if _, err := os.Stat(inv.Output); err != nil {
			return res, errors.Errorf("%s: %w", inv.Output, ErrMissingOutput)
		}
		res.ProducedPath = inv.Output
	}

	logger.Debug().Dur("duration", res.Duration).Str("output", res.ProducedPath).Msg("image tool finished")

	return res, nil
}
