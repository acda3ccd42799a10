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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/imagetoolkit/cmd/imagetoolkit/opts"
	"github.com/walteh/imagetoolkit/pkg/install"
	"gitlab.com/tozd/go/errors"
)

type installFlags struct {
	targets []string
	binary  string
}

func (f *installFlags) register(cmd *cobra.Command) {
	names := make([]string, 0, len(install.AllTargets))
	for _, t := range install.AllTargets {
		names = append(names, string(t))
	}
	cmd.Flags().StringSliceVarP(&f.targets, "target", "t", names, "file managers to integrate with")
}

func (f *installFlags) parseTargets() ([]install.Target, error) {
	out := make([]install.Target, 0, len(f.targets))
	for _, name := range f.targets {
		t, err := install.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func homeDir(opts *opts.RootOpts) (string, error) {
	if home, ok := opts.LookupEnv("HOME"); ok && filepath.IsAbs(home) {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("finding home directory: %w", err)
	}
	return home, nil
}

// NewInstallCmd creates the install command
func NewInstallCmd(opts *opts.RootOpts) *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Add the image actions to file manager context menus",
		Long: `Install writes menu entries that call "imagetoolkit run <action-id>"
into the per-user directories scanned by Nautilus, Nemo and Dolphin.
Running it again only rewrites entries that changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			targets, err := flags.parseTargets()
			if err != nil {
				return err
			}
			home, err := homeDir(opts)
			if err != nil {
				return err
			}

			binary := flags.binary
			if binary == "" {
				if binary, err = os.Executable(); err != nil {
					return errors.Errorf("locating executable: %w", err)
				}
			}
			if binary, err = filepath.Abs(binary); err != nil {
				return errors.Errorf("resolving binary path: %w", err)
			}

			actions, err := opts.MenuActions()
			if err != nil {
				return err
			}

			opts.Console.Header(ctx, "installing menu entries")
			for _, t := range targets {
				res, err := install.Install(ctx, t, install.Options{Home: home, Binary: binary, Actions: actions})
				if err != nil {
					opts.Console.Error(ctx, err.Error())
					return errors.Errorf("installing %s: %w", t, err)
				}
				opts.Console.Successf(ctx, "%s: %d written, %d unchanged, %d removed (%s)",
					t, len(res.Written), len(res.Unchanged), len(res.Removed), install.Dir(t, home))
			}
			opts.Console.Warning(ctx, "restart the file manager to pick up the new entries")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.binary, "binary", "", "path the menu entries should call (defaults to this executable)")

	return cmd
}

// NewUninstallCmd creates the uninstall command
func NewUninstallCmd(opts *opts.RootOpts) *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the menu entries written by install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			targets, err := flags.parseTargets()
			if err != nil {
				return err
			}
			home, err := homeDir(opts)
			if err != nil {
				return err
			}

			opts.Console.Header(ctx, "removing menu entries")
			for _, t := range targets {
				res, err := install.Uninstall(ctx, t, home)
				if err != nil {
					opts.Console.Error(ctx, err.Error())
					return errors.Errorf("uninstalling %s: %w", t, err)
				}
				opts.Console.Successf(ctx, "%s: %d removed", t, len(res.Removed))
			}
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
