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

	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/tool"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus is the outcome of one file in a batch
type FileStatus int

const (
	StatusUnknown FileStatus = iota
	StatusSucceeded
	StatusFailed
	StatusSkipped // already in the target format
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// 📄 FileResult is the report entry for one selected file
type FileResult struct {
	Input  string
	Status FileStatus
	// Result is nil when the tool never ran.
	Result *tool.Result
	Err    error
	// Warning is set for non-fatal observations, e.g. missing transparency.
	Warning string
}

// Output returns the produced path, or "" when nothing was written.
func (r FileResult) Output() string {
	if r.Result == nil {
		return ""
	}
	return r.Result.ProducedPath
}

// 📋 Report aggregates a batch in selection order
type Report struct {
	Action action.MenuAction
	Files  []FileResult
}

func (r *Report) filter(s FileStatus) []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Status == s {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) Succeeded() []FileResult { return r.filter(StatusSucceeded) }
func (r *Report) Failed() []FileResult    { return r.filter(StatusFailed) }
func (r *Report) Skipped() []FileResult   { return r.filter(StatusSkipped) }

// Err returns a single error naming every failed file, or nil.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, f := range failed {
		names = append(names, filepath.Base(f.Input))
	}
	return errors.Errorf("%s failed for %d of %d files: %s", r.Action.ID(), len(failed), len(r.Files), strings.Join(names, ", "))
}

// Summary is a one-line description of the batch.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped",
		r.Action.ID(), len(r.Succeeded()), len(r.Failed()), len(r.Skipped()))
}

// 📣 Notification builds the single notification shown after a batch.
func (r *Report) Notification() notify.Notification {
	failed := r.Failed()
	if len(failed) == 0 {
		return notify.Notification{
			Level: notify.LevelInfo,
			Title: r.Action.Title(),
			Body:  r.successBody(),
		}
	}

	lines := make([]string, 0, len(failed)+1)
	if ok := len(r.Succeeded()); ok > 0 {
		lines = append(lines, r.Action.Done(fmt.Sprintf("%d of %d files", ok, len(r.Files))))
	}
	for _, f := range failed {
		lines = append(lines, fmt.Sprintf("Error processing %s: %s", filepath.Base(f.Input), Describe(f.Err)))
	}

	return notify.Notification{
		Level: notify.LevelError,
		Title: failureTitle(failed),
		Body:  strings.Join(lines, "\n"),
	}
}

func (r *Report) successBody() string {
	done := r.Succeeded()
	switch {
	case len(done) == 1:
		return r.Action.Done(filepath.Base(done[0].Input))
	case len(done) > 1:
		return r.Action.Done(fmt.Sprintf("%d files", len(done)))
	default:
		return "Nothing to do, the selection is already in the requested format."
	}
}

// failureTitle is "ImageMagick Not Found" only when every failure is a missing tool.
func failureTitle(failed []FileResult) string {
	for _, f := range failed {
		if !errors.Is(f.Err, tool.ErrToolNotFound) {
			return "ImageMagick Failed"
		}
	}
	return "ImageMagick Not Found"
}

// Describe renders an error for a user, without wrapping noise.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var execErr *tool.ExecutionError
	switch {
	case errors.Is(err, tool.ErrToolNotFound):
		return "the image tool is not installed, please install ImageMagick"
	case errors.Is(err, tool.ErrTimeout):
		return "the image tool did not finish in time"
	case errors.As(err, &execErr):
		if msg := strings.TrimSpace(execErr.Stderr); msg != "" {
			return msg
		}
		return fmt.Sprintf("exit status %d", execErr.ExitCode)
	default:
		return err.Error()
	}
}
