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

package notify

import (
	"context"

	dbusnotify "github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Level selects the icon and console style of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Icon returns the freedesktop icon name for the level.
func (l Level) Icon() string {
	if l == LevelError {
		return "dialog-error"
	}
	return "dialog-information"
}

// 📣 Notification is one user visible message
type Notification struct {
	Level Level
	Title string
	Body  string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Desktop sends notifications to the session's org.freedesktop.Notifications service.
type Desktop struct {
	AppName string

	send func(ctx context.Context, note dbusnotify.Notification) error
}

// NewDesktop creates a Desktop notifier.
func NewDesktop(appName string) *Desktop {
	return &Desktop{AppName: appName, send: sendSessionBus}
}

func sendSessionBus(ctx context.Context, note dbusnotify.Notification) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return errors.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	id, err := dbusnotify.SendNotification(conn, note)
	if err != nil {
		return errors.Errorf("calling Notify: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Uint32("id", id).Str("summary", note.Summary).Msg("desktop notification sent")
	return nil
}

// Message builds the bus message for n.
func (d *Desktop) Message(n Notification) dbusnotify.Notification {
	note := dbusnotify.Notification{
		AppName:       d.AppName,
		AppIcon:       n.Level.Icon(),
		Summary:       n.Title,
		Body:          n.Body,
		ExpireTimeout: dbusnotify.ExpireTimeoutSetByNotificationServer,
	}
	if n.Level == LevelError {
		note.SetUrgency(dbusnotify.UrgencyCritical)
	}
	return note
}

func (d *Desktop) Notify(ctx context.Context, n Notification) error {
	send := d.send
	if send == nil {
		send = sendSessionBus
	}
	if err := send(ctx, d.Message(n)); err != nil {
		return errors.Errorf("sending desktop notification: %w", err)
	}
	return nil
}

// Console prints notifications with pterm, for terminal use.
type Console struct{}

func (Console) Notify(ctx context.Context, n Notification) error {
	printer := pterm.Info
	if n.Level == LevelError {
		printer = pterm.Error
	}
	printer.WithPrefix(pterm.Prefix{Text: n.Title, Style: printer.Prefix.Style}).Println(n.Body)
	return nil
}

// Multi fans a notification out to every notifier; one failing sink does not stop the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var firstErr error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("title", n.Title).Msg("notifier failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
