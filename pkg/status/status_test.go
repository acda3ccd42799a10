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
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/format"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/tool"
	"gitlab.com/tozd/go/errors"
)

func succeeded(input, output string) FileResult {
	return FileResult{Input: input, Status: StatusSucceeded, Result: &tool.Result{ProducedPath: output}}
}

func failed(input string, err error) FileResult {
	return FileResult{Input: input, Status: StatusFailed, Err: err}
}

func TestReportNotification(t *testing.T) {
	convertPNG := action.Convert(format.PNG)

	tests := []struct {
		name      string
		report    *Report
		wantLevel notify.Level
		wantTitle string
		wantBody  []string
	}{
		{
			name: "single_success",
			report: &Report{Action: convertPNG, Files: []FileResult{
				succeeded("/p/cat.jpg", "/p/cat.png"),
			}},
			wantLevel: notify.LevelInfo,
			wantTitle: "Image Conversion",
			wantBody:  []string{"Converted cat.jpg to PNG format."},
		},
		{
			name: "many_successes",
			report: &Report{Action: action.RemoveBackground(), Files: []FileResult{
				succeeded("/p/a.jpg", "/p/a-no-bg.png"),
				succeeded("/p/b.jpg", "/p/b-no-bg.png"),
			}},
			wantLevel: notify.LevelInfo,
			wantTitle: "White Background Removal",
			wantBody:  []string{"Removed white background from 2 files."},
		},
		{
			name: "partial_failure_names_file",
			report: &Report{Action: convertPNG, Files: []FileResult{
				succeeded("/p/a.jpg", "/p/a.png"),
				failed("/p/b.jpg", &tool.ExecutionError{Binary: "magick", ExitCode: 1, Stderr: "corrupt image\n"}),
				succeeded("/p/c.jpg", "/p/c.png"),
			}},
			wantLevel: notify.LevelError,
			wantTitle: "ImageMagick Failed",
			wantBody:  []string{"Converted 2 of 3 files to PNG format.", "Error processing b.jpg: corrupt image"},
		},
		{
			name: "tool_missing",
			report: &Report{Action: convertPNG, Files: []FileResult{
				failed("/p/a.jpg", errors.Errorf("magick: %w", tool.ErrToolNotFound)),
			}},
			wantLevel: notify.LevelError,
			wantTitle: "ImageMagick Not Found",
			wantBody:  []string{"please install ImageMagick"},
		},
		{
			name: "all_skipped",
			report: &Report{Action: convertPNG, Files: []FileResult{
				{Input: "/p/a.png", Status: StatusSkipped},
			}},
			wantLevel: notify.LevelInfo,
			wantTitle: "Image Conversion",
			wantBody:  []string{"already in the requested format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.report.Notification()
			assert.Equal(t, tt.wantLevel, n.Level, "level should match")
			assert.Equal(t, tt.wantTitle, n.Title, "title should match")
			for _, want := range tt.wantBody {
				assert.Contains(t, n.Body, want, "body should mention %q", want)
			}
		})
	}
}

func TestReportCounts(t *testing.T) {
	r := &Report{Action: action.Convert(format.JPG), Files: []FileResult{
		succeeded("/p/a.png", "/p/a.jpg"),
		failed("/p/b.png", errors.New("boom")),
		{Input: "/p/c.jpg", Status: StatusSkipped},
	}}

	assert.Len(t, r.Succeeded(), 1)
	assert.Len(t, r.Failed(), 1)
	assert.Len(t, r.Skipped(), 1)
	assert.Equal(t, "convert:jpg: 1 succeeded, 1 failed, 1 skipped", r.Summary())

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.png")
	assert.Contains(t, err.Error(), "1 of 3")

	ok := &Report{Action: action.Convert(format.JPG), Files: []FileResult{succeeded("/p/a.png", "/p/a.jpg")}}
	assert.NoError(t, ok.Err())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "", Describe(nil))
	assert.Equal(t, "the image tool did not finish in time", Describe(errors.Errorf("x: %w", tool.ErrTimeout)))
	assert.Equal(t, "exit status 2", Describe(&tool.ExecutionError{Binary: "magick", ExitCode: 2}))
	assert.Equal(t, "plain", Describe(errors.Base("plain")))
}

func TestFormatFileResult(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	line := FormatFileResult(succeeded("/p/cat.jpg", "/p/cat.png"))
	assert.True(t, strings.HasPrefix(line, "    ✓ cat.jpg"), "line should start with indent and symbol: %q", line)
	assert.Contains(t, line, "succeeded")
	assert.True(t, strings.HasSuffix(line, "→ cat.png"))

	line = FormatFileResult(failed("/p/b.jpg", &tool.ExecutionError{Binary: "magick", ExitCode: 1, Stderr: "bad"}))
	assert.Contains(t, line, "✗ b.jpg")
	assert.True(t, strings.HasSuffix(line, "bad"))

	warned := succeeded("/p/w.jpg", "/p/w-no-bg.png")
	warned.Warning = "output has no transparency"
	assert.Contains(t, FormatFileResult(warned), "output has no transparency")

	report := FormatReport(&Report{Action: action.RemoveBackground(), Files: []FileResult{warned}})
	assert.True(t, strings.HasSuffix(report, "remove-background: 1 succeeded, 0 failed, 0 skipped\n"))
}
