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

package opts

import (
	"context"
	"io"
	"os"

	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/config"
	"github.com/walteh/imagetoolkit/pkg/dispatch"
	"github.com/walteh/imagetoolkit/pkg/log"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/outpath"
	"github.com/walteh/imagetoolkit/pkg/selection"
	"github.com/walteh/imagetoolkit/pkg/status"
	"github.com/walteh/imagetoolkit/pkg/tool"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	// Flags
	ConfigFile string
	Debug      bool

	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(string) (string, bool)
	// Notifiers are added to the sinks the config enables.
	Notifiers []notify.Notifier

	// Populated by Setup
	Config  *config.Config
	Console *log.Console

	closer io.Closer
}

// New returns RootOpts wired to the process environment.
func New() *RootOpts {
	return &RootOpts{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		LookupEnv: os.LookupEnv,
	}
}

// 🏗️ Setup loads the configuration and returns ctx carrying the logger.
func (o *RootOpts) Setup(ctx context.Context) (context.Context, error) {
	cfg, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return ctx, errors.Errorf("loading config: %w", err)
	}

	logger, closer, err := log.Setup(log.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Debug:      o.Debug,
		Stderr:     o.Stderr,
	})
	if err != nil {
		return ctx, errors.Errorf("setting up logging: %w", err)
	}

	o.Config = cfg
	o.Console = log.NewConsole(o.Stdout)
	o.closer = closer

	logger.Debug().Str("config", cfg.Location()).Msg("configuration loaded")

	return logger.WithContext(ctx), nil
}

// Close flushes the log file.
func (o *RootOpts) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// Interactive reports whether stdout is a terminal.
func (o *RootOpts) Interactive() bool {
	return log.IsTerminal(o.Stdout)
}

// 📣 Notifier builds the notification sinks enabled in the config.
func (o *RootOpts) Notifier() notify.Notifier {
	var sinks notify.Multi
	if o.Config.Notify.Desktop {
		sinks = append(sinks, notify.NewDesktop(config.AppName))
	}
	if o.Config.Notify.Console || o.Interactive() {
		sinks = append(sinks, notify.Console{})
	}
	return append(sinks, o.Notifiers...)
}

// MenuActions lists every action the config can offer, for install.
func (o *RootOpts) MenuActions() ([]action.MenuAction, error) {
	targets, err := o.Config.Targets()
	if err != nil {
		return nil, err
	}
	out := make([]action.MenuAction, 0, len(targets)+1)
	for _, t := range targets {
		out = append(out, action.Convert(t))
	}
	return append(out, action.RemoveBackground()), nil
}

// 🎯 Dispatcher builds a dispatcher from the config.
func (o *RootOpts) Dispatcher(observer func(*status.Report)) (*dispatch.Dispatcher, error) {
	timeout, err := o.Config.Timeout()
	if err != nil {
		return nil, err
	}
	targets, err := o.Config.Targets()
	if err != nil {
		return nil, err
	}

	return dispatch.New(dispatch.Options{
		Executor: tool.NewExec(timeout),
		Toolkit:  o.Config.Magick(),
		Resolver: outpath.NewResolver(o.Config.Policy()),
		Targets:  targets,
		Selection: selection.Options{
			SniffContent:   o.Config.Selection.SniffContent,
			IgnorePatterns: o.Config.Selection.IgnorePatterns,
		},
		BackgroundSuffix: o.Config.RemoveBackground.Suffix,
		Parallelism:      o.Config.Dispatch.Parallelism,
		Observer:         observer,
	})
}
