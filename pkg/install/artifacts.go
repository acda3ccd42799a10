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

package install

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/walteh/imagetoolkit/pkg/action"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/ini.v1"
)

const icon = "image-x-generic"

func init() {
	// key files are read by GLib/KConfig, which expect "Key=Value"
	ini.PrettyFormat = false
}

// nautilusScript receives the selection through NAUTILUS_SCRIPT_SELECTED_FILE_PATHS
// and the arguments, both of which `run` understands.
func nautilusScript(binary string, a action.MenuAction) []byte {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "# %s\n", a.Tip())
	fmt.Fprintf(&b, "exec %s run %s \"$@\"\n", shellescape.Quote(binary), shellescape.Quote(a.ID()))
	return []byte(b.String())
}

// keyFile is one freedesktop-style key file; section and key order is kept.
type keyFile struct {
	file *ini.File
	err  error
}

func newKeyFile() *keyFile {
	// ';' separates list values in key files, it never starts a comment
	return &keyFile{file: ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})}
}

func (k *keyFile) section(name string, pairs ...string) {
	if k.err != nil {
		return
	}
	sec, err := k.file.NewSection(name)
	if err != nil {
		k.err = errors.Errorf("adding section %q: %w", name, err)
		return
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, err := sec.NewKey(pairs[i], pairs[i+1]); err != nil {
			k.err = errors.Errorf("adding key %s.%s: %w", name, pairs[i], err)
			return
		}
	}
}

func (k *keyFile) bytes() ([]byte, error) {
	if k.err != nil {
		return nil, k.err
	}
	var buf bytes.Buffer
	if _, err := k.file.WriteTo(&buf); err != nil {
		return nil, errors.Errorf("encoding key file: %w", err)
	}
	return buf.Bytes(), nil
}

func list(values []string) string {
	return strings.Join(values, ";") + ";"
}

func execLine(binary string, a action.MenuAction) string {
	return fmt.Sprintf("%s run %s %%F", execQuote(binary), a.ID())
}

func nemoAction(binary string, a action.MenuAction) ([]byte, error) {
	kf := newKeyFile()
	kf.section("Nemo Action",
		"Name", a.Label(),
		"Comment", a.Tip(),
		"Exec", execLine(binary, a),
		"Icon-Name", icon,
		"Selection", "notnone",
		"Extensions", list(extensions()),
		"Quote", "double",
	)
	return kf.bytes()
}

func dolphinServiceMenu(binary string, actions []action.MenuAction) ([]byte, error) {
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, desktopActionID(a))
	}

	kf := newKeyFile()
	kf.section("Desktop Entry",
		"Type", "Service",
		"MimeType", list(mimeTypes()),
		"Actions", list(ids),
		"X-KDE-Submenu", action.GroupLabel,
	)
	for _, a := range actions {
		kf.section("Desktop Action "+desktopActionID(a),
			"Name", a.Label(),
			"Icon", icon,
			"Exec", execLine(binary, a),
		)
	}
	return kf.bytes()
}

func desktopActionID(a action.MenuAction) string {
	return strings.NewReplacer(":", "_", "-", "_").Replace(a.ID())
}

// execQuote quotes an Exec argument following the desktop entry rules, which
// use double quotes and differ from POSIX shell quoting.
func execQuote(s string) string {
	if !strings.ContainsAny(s, " \t\"'\\`$<>~|&;*?#()") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}
