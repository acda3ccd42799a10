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

package host

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/selection"
	"gitlab.com/tozd/go/errors"
)

// 🖥️ Desktop is the host as seen from a binary launched by the file manager:
// the selection arrives as arguments or environment, the click as the action ID.
type Desktop struct {
	args     []string
	lookup   func(string) (string, bool)
	notifier notify.Notifier
	registry registry
}

// NewDesktop creates a Desktop host. When args is empty the selection is read
// from the file manager's environment through lookup.
func NewDesktop(args []string, lookup func(string) (string, bool), notifier notify.Notifier) *Desktop {
	return &Desktop{args: args, lookup: lookup, notifier: notifier}
}

func (d *Desktop) Selection(ctx context.Context) (selection.Selection, error) {
	if len(d.args) > 0 {
		return selection.Parse(d.args)
	}
	if d.lookup == nil {
		return selection.Selection{}, nil
	}
	sel, err := selection.FromEnv(d.lookup)
	if err != nil {
		return nil, errors.Errorf("reading selection from environment: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Strs("selection", sel).Msg("selection from environment")
	return sel, nil
}

func (d *Desktop) RegisterMenuItem(item MenuItem, handler Handler) {
	d.registry.register(item, handler)
}

func (d *Desktop) Notify(ctx context.Context, n notify.Notification) error {
	if d.notifier == nil {
		return nil
	}
	return d.notifier.Notify(ctx, n)
}

// Items returns the registered menu items in registration order.
func (d *Desktop) Items() []MenuItem {
	return d.registry.list()
}

// Activate plays the user's click on the item registered for actionID.
func (d *Desktop) Activate(ctx context.Context, actionID string) error {
	return d.registry.activate(ctx, actionID)
}
