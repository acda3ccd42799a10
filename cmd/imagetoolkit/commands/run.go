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

package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/imagetoolkit/cmd/imagetoolkit/opts"
	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/host"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// NewRunCmd creates the command the file manager invokes on a click
func NewRunCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <action-id> [files...]",
		Short: "Run a menu action on the selected files",
		Long: `Run performs one menu action on every selected file.

The selection is taken from the arguments (paths or file:// URIs). Without
arguments it is read from NAUTILUS_SCRIPT_SELECTED_FILE_PATHS or
NEMO_SCRIPT_SELECTED_FILE_PATHS. Exactly one notification is shown per run,
and the exit status is non-zero when any file failed.`,
		Example: `  imagetoolkit run convert:webp ~/Pictures/cat.jpg ~/Pictures/dog.png
  imagetoolkit run remove-background logo.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := action.Parse(args[0])
			if err != nil {
				return err
			}

			var report *status.Report
			d, err := opts.Dispatcher(func(r *status.Report) { report = r })
			if err != nil {
				return errors.Errorf("creating dispatcher: %w", err)
			}

			h := host.NewDesktop(args[1:], opts.LookupEnv, opts.Notifier())
			if _, err := d.Register(ctx, h); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Str("action", a.ID()).Msg("reading selection")
				notifyFailure(ctx, h, a, fmt.Sprintf("Could not read the selected files: %v", err))
				return err
			}

			err = h.Activate(ctx, a.ID())
			if errors.Is(err, host.ErrUnknownItem) {
				zerolog.Ctx(ctx).Warn().Str("action", a.ID()).Msg("action does not apply to the selection")
				notifyFailure(ctx, h, a, fmt.Sprintf("%s does not apply to the selected files.", a.Label()))
				return err
			}

			if report != nil && opts.Interactive() {
				fmt.Fprint(opts.Stdout, status.FormatReport(report))
			}
			return err
		},
	}

	return cmd
}

// notifyFailure reports a run that never reached the dispatcher; the file
// manager discards our exit status, so the notification is all the user sees.
func notifyFailure(ctx context.Context, h host.Host, a action.MenuAction, body string) {
	if err := h.Notify(ctx, notify.Notification{
		Level: notify.LevelError,
		Title: a.Title(),
		Body:  body,
	}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("notification failed")
	}
}
