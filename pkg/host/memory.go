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

	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/selection"
)

// Memory is an in-memory Host for tests and dry runs.
type Memory struct {
	Files selection.Selection
	// NotifyErr is returned from every Notify call when set.
	NotifyErr error

	registry registry

	mu            sync.Mutex
	notifications []notify.Notification
}

// NewMemory returns a Memory host whose selection is files.
func NewMemory(files ...string) *Memory {
	return &Memory{Files: files}
}

func (m *Memory) Selection(ctx context.Context) (selection.Selection, error) {
	return append(selection.Selection{}, m.Files...), nil
}

func (m *Memory) RegisterMenuItem(item MenuItem, handler Handler) {
	m.registry.register(item, handler)
}

func (m *Memory) Notify(ctx context.Context, n notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return m.NotifyErr
}

// Items returns the registered menu items.
func (m *Memory) Items() []MenuItem {
	return m.registry.list()
}

// Click activates the item registered for actionID.
func (m *Memory) Click(ctx context.Context, actionID string) error {
	return m.registry.activate(ctx, actionID)
}

// Notifications returns every notification received so far.
func (m *Memory) Notifications() []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Notification(nil), m.notifications...)
}
