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

package dispatch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/format"
	"github.com/walteh/imagetoolkit/pkg/host"
	"github.com/walteh/imagetoolkit/pkg/outpath"
	"github.com/walteh/imagetoolkit/pkg/probe"
	"github.com/walteh/imagetoolkit/pkg/selection"
	"github.com/walteh/imagetoolkit/pkg/status"
	"github.com/walteh/imagetoolkit/pkg/tool"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔧 Options configures a Dispatcher
type Options struct {
	// Executor runs the external tool. Required.
	Executor tool.Executor
	// Toolkit builds invocations; defaults to ImageMagick with default settings.
	Toolkit *tool.Magick
	// Resolver applies the collision policy; defaults to rename.
	Resolver *outpath.Resolver
	// Targets offered for conversion; defaults to format.Targets.
	Targets []format.Format
	// Selection tunes the eligibility predicate.
	Selection selection.Options
	// BackgroundSuffix is appended to background-removal outputs.
	BackgroundSuffix string
	// Parallelism > 1 processes files concurrently.
	Parallelism int
	// Inspect probes background-removal outputs; defaults to probe.Inspect.
	Inspect func(path string) (*probe.Info, error)
	// Observer, when set, receives every finished report.
	Observer func(*status.Report)
}

// 🎯 Dispatcher maps a selection to menu actions and runs them file by file
type Dispatcher struct {
	opts Options
}

// New creates a Dispatcher with defaults filled in.
func New(opts Options) (*Dispatcher, error) {
	if opts.Executor == nil {
		return nil, errors.Errorf("executor is required")
	}
	if opts.Toolkit == nil {
		opts.Toolkit = tool.NewMagick("")
	}
	if opts.Resolver == nil {
		opts.Resolver = outpath.NewResolver(outpath.PolicyRename)
	}
	if len(opts.Targets) == 0 {
		opts.Targets = format.Targets
	}
	for _, t := range opts.Targets {
		if !t.IsTarget() {
			return nil, errors.Errorf("target %q: %w", t, format.ErrUnsupportedFormat)
		}
	}
	if opts.BackgroundSuffix == "" {
		opts.BackgroundSuffix = outpath.DefaultBackgroundSuffix
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.Inspect == nil {
		opts.Inspect = probe.Inspect
	}
	return &Dispatcher{opts: opts}, nil
}

// Actions returns the menu actions applicable to sel, or nil when the
// selection is not made of recognized image files.
func (d *Dispatcher) Actions(ctx context.Context, sel selection.Selection) []action.MenuAction {
	if !selection.Eligible(ctx, sel, d.opts.Selection) {
		return nil
	}

	actions := make([]action.MenuAction, 0, len(d.opts.Targets)+1)
	for _, target := range d.opts.Targets {
		if sel.AllIn(target) {
			continue
		}
		actions = append(actions, action.Convert(target))
	}
	return append(actions, action.RemoveBackground())
}

// 📋 Register attaches a handler for every applicable action to h.
func (d *Dispatcher) Register(ctx context.Context, h host.Host) ([]action.MenuAction, error) {
	sel, err := h.Selection(ctx)
	if err != nil {
		return nil, errors.Errorf("reading selection: %w", err)
	}

	actions := d.Actions(ctx, sel)
	for _, a := range actions {
		a := a
		h.RegisterMenuItem(host.NewMenuItem(a), func(ctx context.Context) error {
			report := d.Handle(ctx, h, a, sel)
			return report.Err()
		})
	}

	zerolog.Ctx(ctx).Debug().Int("files", len(sel)).Int("actions", len(actions)).Msg("registered menu items")

	return actions, nil
}

// Handle executes a over sel and sends exactly one notification for the batch.
func (d *Dispatcher) Handle(ctx context.Context, h host.Host, a action.MenuAction, sel selection.Selection) *status.Report {
	report := d.Execute(ctx, a, sel)

	if err := h.Notify(ctx, report.Notification()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("notification failed")
	}
	return report
}

// 🏃 Execute runs a over every file. A failing file never stops the others;
// the report lists files in selection order regardless of completion order.
func (d *Dispatcher) Execute(ctx context.Context, a action.MenuAction, sel selection.Selection) *status.Report {
	logger := zerolog.Ctx(ctx).With().Str("action", a.ID()).Logger()
	ctx = logger.WithContext(ctx)

	report := &status.Report{Action: a, Files: make([]status.FileResult, len(sel))}
	resolver := d.opts.Resolver.Scope()

	if err := a.Validate(); err != nil {
		for i, input := range sel {
			report.Files[i] = status.FileResult{Input: input, Status: status.StatusFailed, Err: err}
		}
		return d.finish(ctx, report)
	}

	if d.opts.Parallelism <= 1 || len(sel) <= 1 {
		for i, input := range sel {
			report.Files[i] = d.processFile(ctx, resolver, a, input)
		}
		return d.finish(ctx, report)
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Parallelism)
	for i, input := range sel {
		i, input := i, input
		g.Go(func() error {
			report.Files[i] = d.processFile(ctx, resolver, a, input)
			return nil
		})
	}
	_ = g.Wait()

	return d.finish(ctx, report)
}

func (d *Dispatcher) finish(ctx context.Context, report *status.Report) *status.Report {
	logger := zerolog.Ctx(ctx)
	for _, f := range report.Files {
		ev := logger.Info()
		if f.Status == status.StatusFailed {
			ev = logger.Error().Err(f.Err)
		}
		ev.Str("input", f.Input).Str("output", f.Output()).Str("status", f.Status.String()).Msg("file processed")
	}
	logger.Info().Msg(report.Summary())

	if d.opts.Observer != nil {
		d.opts.Observer(report)
	}
	return report
}

func (d *Dispatcher) processFile(ctx context.Context, resolver *outpath.Resolver, a action.MenuAction, input string) status.FileResult {
	fail := func(err error) status.FileResult {
		return status.FileResult{Input: input, Status: status.StatusFailed, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.Errorf("batch cancelled: %w", err))
	}

	src, ok := format.FromPath(input)
	if !ok {
		return fail(errors.Errorf("%s: %w", filepath.Base(input), format.ErrUnsupportedFormat))
	}

	var candidate string
	switch a.Kind {
	case action.KindConvert:
		if src == a.Target {
			return status.FileResult{Input: input, Status: status.StatusSkipped}
		}
		candidate = outpath.Convert(input, a.Target)
	case action.KindRemoveBackground:
		candidate = outpath.RemoveBackground(input, d.opts.BackgroundSuffix)
	}

	output, err := resolver.Resolve(input, candidate)
	if err != nil {
		return fail(err)
	}

	var inv tool.Invocation
	if a.Kind == action.KindConvert {
		inv = d.opts.Toolkit.Convert(input, output)
	} else {
		inv = d.opts.Toolkit.RemoveBackground(input, output)
	}

	res, err := d.opts.Executor.Run(ctx, inv)
	if err != nil {
		r := fail(err)
		r.Result = res
		return r
	}

	result := status.FileResult{Input: input, Status: status.StatusSucceeded, Result: res}
	if a.Kind == action.KindRemoveBackground {
		result.Warning = d.checkTransparency(ctx, res.ProducedPath)
	}
	return result
}

// checkTransparency returns a warning when a background-removal output is fully opaque.
func (d *Dispatcher) checkTransparency(ctx context.Context, path string) string {
	if path == "" {
		return ""
	}
	if f, ok := format.FromPath(path); ok && !f.SupportsAlpha() {
		zerolog.Ctx(ctx).Warn().Str("output", path).Str("format", string(f)).Msg("output format has no alpha channel")
		return fmt.Sprintf("%s cannot store transparency", f.Label())
	}
	info, err := d.opts.Inspect(path)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("output", path).Msg("could not inspect output")
		return ""
	}
	if !info.HasAlpha {
		zerolog.Ctx(ctx).Warn().Str("output", path).Msg("output has no transparent pixels")
		return "output has no transparency"
	}
	return ""
}
