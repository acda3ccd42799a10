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

package status

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	statusWidth = 10 // Width for status text
)

// 🎯 FormatFileResult formats one report entry for the console
func FormatFileResult(r FileResult) string {
	var prefix string
	switch r.Status {
	case StatusSucceeded:
		prefix = color.GreenString("✓")
	case StatusFailed:
		prefix = color.RedString("✗")
	case StatusSkipped:
		prefix = color.HiBlackString("-")
	default:
		prefix = color.YellowString("?")
	}

	namePart := fmt.Sprintf("%-*s", nameWidth, filepath.Base(r.Input))
	statusPart := fmt.Sprintf("%-*s", statusWidth, r.Status.String())

	var detail string
	switch {
	case r.Status == StatusFailed:
		detail = color.RedString(Describe(r.Err))
	case r.Output() != "":
		detail = "→ " + filepath.Base(r.Output())
	}
	if r.Warning != "" {
		detail = strings.TrimSpace(detail + " " + color.YellowString("⚠️  "+r.Warning))
	}

	return strings.TrimRight(fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", fileIndent),
		prefix,
		namePart,
		statusPart,
		detail,
	), " ")
}

// FormatReport renders every entry followed by the summary line.
func FormatReport(r *Report) string {
	var b strings.Builder
	for _, f := range r.Files {
		b.WriteString(FormatFileResult(f))
		b.WriteByte('\n')
	}
	b.WriteString(r.Summary())
	b.WriteByte('\n')
	return b.String()
}
