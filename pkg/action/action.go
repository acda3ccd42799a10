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

package action

import (
	"fmt"
	"strings"

	"github.com/walteh/imagetoolkit/pkg/format"
	"gitlab.com/tozd/go/errors"
)

// Kind distinguishes the menu action variants.
type Kind int

const (
	KindConvert Kind = iota + 1
	KindRemoveBackground
)

const (
	convertPrefix      = "convert:"
	removeBackgroundID = "remove-background"

	// GroupLabel is the parent menu entry conversions are nested under.
	GroupLabel = "Convert Image"
)

// 🎬 MenuAction is a user invokable context-menu entry.
// Target is only meaningful for KindConvert.
type MenuAction struct {
	Kind   Kind
	Target format.Format
}

// Convert returns the ConvertFormat(target) action.
func Convert(target format.Format) MenuAction {
	return MenuAction{Kind: KindConvert, Target: target}
}

// RemoveBackground returns the RemoveBackground action.
func RemoveBackground() MenuAction {
	return MenuAction{Kind: KindRemoveBackground}
}

// ID is the stable identifier used on the command line and in host artifacts.
func (a MenuAction) ID() string {
	switch a.Kind {
	case KindConvert:
		return convertPrefix + string(a.Target)
	case KindRemoveBackground:
		return removeBackgroundID
	default:
		return "unknown"
	}
}

func (a MenuAction) String() string {
	return a.ID()
}

// Label is the menu item text.
func (a MenuAction) Label() string {
	switch a.Kind {
	case KindConvert:
		return "Convert to " + a.Target.Label()
	case KindRemoveBackground:
		return "Remove White Background"
	default:
		return "Unknown Action"
	}
}

// Tip is the menu item tooltip.
func (a MenuAction) Tip() string {
	switch a.Kind {
	case KindConvert:
		return fmt.Sprintf("Convert the selected images to %s format", a.Target.Label())
	case KindRemoveBackground:
		return "Remove the white background from the selected images"
	default:
		return ""
	}
}

// Done describes a completed run over subject ("cat.jpg", "3 files") for notifications.
func (a MenuAction) Done(subject string) string {
	switch a.Kind {
	case KindConvert:
		return fmt.Sprintf("Converted %s to %s format.", subject, a.Target.Label())
	case KindRemoveBackground:
		return fmt.Sprintf("Removed white background from %s.", subject)
	default:
		return fmt.Sprintf("Processed %s.", subject)
	}
}

// Title is the notification title for the action.
func (a MenuAction) Title() string {
	switch a.Kind {
	case KindRemoveBackground:
		return "White Background Removal"
	default:
		return "Image Conversion"
	}
}

// Validate checks that the action is well formed.
func (a MenuAction) Validate() error {
	switch a.Kind {
	case KindConvert:
		if !a.Target.IsTarget() {
			return errors.Errorf("convert target %q: %w", a.Target, format.ErrUnsupportedFormat)
		}
		return nil
	case KindRemoveBackground:
		return nil
	default:
		return errors.Errorf("unknown action kind %d", a.Kind)
	}
}

// 🔍 Parse turns an action ID back into a MenuAction
func Parse(id string) (MenuAction, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	switch {
	case id == removeBackgroundID:
		return RemoveBackground(), nil
	case strings.HasPrefix(id, convertPrefix):
		target, err := format.ParseTarget(strings.TrimPrefix(id, convertPrefix))
		if err != nil {
			return MenuAction{}, errors.Errorf("parsing action %q: %w", id, err)
		}
		return Convert(target), nil
	default:
		return MenuAction{}, errors.Errorf("unknown action %q", id)
	}
}
