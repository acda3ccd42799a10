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

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 🔧 Options configures Setup
type Options struct {
	// File is the rotating JSON log file; empty disables it.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Debug      bool
	// Stderr receives human-readable output when it is a terminal.
	Stderr io.Writer
}

// 🏭 Setup builds the process logger. The returned closer flushes the log file.
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nil, errors.Errorf("creating log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			LocalTime:  true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	if opts.Stderr != nil && (opts.Debug || IsTerminal(opts.Stderr)) {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Stderr,
			TimeFormat: time.TimeOnly,
			NoColor:    !IsTerminal(opts.Stderr),
		})
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// 🎯 Console prints short colored status lines and mirrors them to zerolog
type Console struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// 📝 Header logs a header
func (c *Console) Header(ctx context.Context, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("imagetoolkit")
	fmt.Fprintf(c.out, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	zerolog.Ctx(ctx).Info().Msg(msg)
}

// 📝 Success logs a success message
func (c *Console) Success(ctx context.Context, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	zerolog.Ctx(ctx).Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (c *Console) Warning(ctx context.Context, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	zerolog.Ctx(ctx).Warn().Msg(msg)
}

func (c *Console) Error(ctx context.Context, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	zerolog.Ctx(ctx).Error().Msg(msg)
}

func (c *Console) Successf(ctx context.Context, format string, args ...interface{}) {
	c.Success(ctx, fmt.Sprintf(format, args...))
}
