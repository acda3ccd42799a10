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

package tool

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ImageMagick defaults, matching what the white-background removal has always used
const (
	DefaultBinary = "magick"
	DefaultFuzz   = "20%"
	DefaultColor  = "white"
)

// Magick builds ImageMagick invocations.
type Magick struct {
	Binary string
	Fuzz   string
	Color  string
	// BackgroundCommand replaces the built-in removal; it is called as
	// <BackgroundCommand...> <input> <output>.
	BackgroundCommand []string
}

// NewMagick returns a Magick with defaults filled in.
func NewMagick(binary string) *Magick {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Magick{Binary: binary, Fuzz: DefaultFuzz, Color: DefaultColor}
}

// Convert builds `magick <input> <output>`; the output extension selects the format.
func (m *Magick) Convert(input, output string) Invocation {
	return Invocation{
		Binary: m.Binary,
		Args:   []string{input, output},
		Input:  input,
		Output: output,
	}
}

// RemoveBackground builds the fuzz/transparent invocation, or the configured replacement tool.
func (m *Magick) RemoveBackground(input, output string) Invocation {
	if len(m.BackgroundCommand) > 0 {
		args := append([]string{}, m.BackgroundCommand[1:]...)
		return Invocation{
			Binary: m.BackgroundCommand[0],
			Args:   append(args, input, output),
			Input:  input,
			Output: output,
		}
	}

	fuzz := m.Fuzz
	if fuzz == "" {
		fuzz = DefaultFuzz
	}
	color := m.Color
	if color == "" {
		color = DefaultColor
	}

	return Invocation{
		Binary: m.Binary,
		Args:   []string{input, "-fuzz", fuzz, "-transparent", color, output},
		Input:  input,
		Output: output,
	}
}

// Version returns the first line of `magick -version`.
func (m *Magick) Version(ctx context.Context) (string, error) {
	bin, err := exec.LookPath(m.Binary)
	if err != nil {
		return "", errors.Errorf("%s: %w", m.Binary, ErrToolNotFound)
	}

	out, err := exec.CommandContext(ctx, bin, "-version").Output()
	if err != nil {
		return "", errors.Errorf("running %s -version: %w", m.Binary, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", errors.Errorf("%s -version printed nothing", m.Binary)
}
