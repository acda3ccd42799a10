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

package main

import (
	"github.com/spf13/cobra"
	"github.com/walteh/imagetoolkit/cmd/imagetoolkit/commands"
	"github.com/walteh/imagetoolkit/cmd/imagetoolkit/opts"
)

// newRootCmd wires every subcommand to the shared options
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imagetoolkit",
		Short: "Image conversion and background removal for file manager context menus",
		Long: `imagetoolkit adds "Convert Image" and "Remove White Background" entries to
the context menu of Nautilus, Nemo and Dolphin. Every action runs ImageMagick
on the selected files and writes its output next to the originals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := o.Setup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	addRootFlags(rootCmd, o)

	rootCmd.SetOut(o.Stdout)
	rootCmd.SetErr(o.Stderr)

	rootCmd.AddCommand(
		commands.NewRunCmd(o),
		commands.NewMenuCmd(o),
		commands.NewInstallCmd(o),
		commands.NewUninstallCmd(o),
		newVersionCmd(o),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "config file path (default $XDG_CONFIG_HOME/imagetoolkit/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}
