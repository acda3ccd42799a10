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
	"encoding/json"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/imagetoolkit/cmd/imagetoolkit/opts"
	"github.com/walteh/imagetoolkit/pkg/host"
	"gitlab.com/tozd/go/errors"
)

type menuEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Tip   string `json:"tip"`
	Group string `json:"group,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// NewMenuCmd prints the menu entries a selection would get
func NewMenuCmd(opts *opts.RootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "menu [files...]",
		Short: "List the actions offered for a selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := opts.Dispatcher(nil)
			if err != nil {
				return errors.Errorf("creating dispatcher: %w", err)
			}

			h := host.NewDesktop(args, opts.LookupEnv, nil)
			if _, err := d.Register(ctx, h); err != nil {
				return err
			}

			entries := []menuEntry{}
			for _, item := range h.Items() {
				entries = append(entries, menuEntry{
					ID:    item.Action.ID(),
					Label: item.Label,
					Tip:   item.Tip,
					Group: item.Group,
					Icon:  item.Icon,
				})
			}

			if asJSON {
				enc := json.NewEncoder(opts.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			data := pterm.TableData{{"ID", "Label"}}
			for _, e := range entries {
				data = append(data, []string{e.ID, e.Label})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(opts.Stdout).WithData(data).Render()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")

	return cmd
}
