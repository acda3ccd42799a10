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
	"sync"

	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/selection"
	"gitlab.com/tozd/go/errors"
)

// ErrUnknownItem is returned when activating a menu item that was never registered.
var ErrUnknownItem = errors.Base("menu item not registered")

// 📋 MenuItem is what the extension contributes to the host's context menu
type MenuItem struct {
	// Name is unique within the extension, e.g. "ImageToolkit::convert:png".
	Name   string
	Label  string
	Tip    string
	Icon   string
	Group  string
	Action action.MenuAction
}

// NewMenuItem derives the menu entry for a.
func NewMenuItem(a action.MenuAction) MenuItem {
	item := MenuItem{
		Name:   "ImageToolkit::" + a.ID(),
		Label:  a.Label(),
		Tip:    a.Tip(),
		Action: a,
	}
	if a.Kind == action.KindConvert {
		item.Group = action.GroupLabel
		item.Icon = "image-x-generic"
	}
	return item
}

// Handler runs when the user clicks a registered item.
type Handler func(ctx context.Context) error

// 🔌 Host is the capability contract the dispatcher depends on.
type Host interface {
	// Selection returns the files the user right-clicked.
	Selection(ctx context.Context) (selection.Selection, error)
	// RegisterMenuItem attaches handler to a menu entry.
	RegisterMenuItem(item MenuItem, handler Handler)
	// Notify asks the host to show a notification.
	Notify(ctx context.Context, n notify.Notification) error
}

type registration struct {
	item    MenuItem
	handler Handler
}

// registry keeps registrations in insertion order
type registry struct {
	mu    sync.Mutex
	items []registration
}

func (r *registry) register(item MenuItem, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.items {
		if existing.item.Name == item.Name {
			r.items[i] = registration{item: item, handler: handler}
			return
		}
	}
	r.items = append(r.items, registration{item: item, handler: handler})
}

func (r *registry) list() []MenuItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MenuItem, 0, len(r.items))
	for _, reg := range r.items {
		out = append(out, reg.item)
	}
	return out
}

func (r *registry) activate(ctx context.Context, actionID string) error {
	r.mu.Lock()
	var handler Handler
	for _, reg := range r.items {
		if reg.item.Action.ID() == actionID {
			handler = reg.handler
			break
		}
	}
	r.mu.Unlock()

	if handler == nil {
		return errors.Errorf("%s: %w", actionID, ErrUnknownItem)
	}
	return handler(ctx)
}
