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

package dispatch

import (
	"context"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/imagetoolkit/pkg/action"
	"github.com/walteh/imagetoolkit/pkg/format"
	"github.com/walteh/imagetoolkit/pkg/host"
	"github.com/walteh/imagetoolkit/pkg/notify"
	"github.com/walteh/imagetoolkit/pkg/outpath"
	"github.com/walteh/imagetoolkit/pkg/probe"
	"github.com/walteh/imagetoolkit/pkg/selection"
	"github.com/walteh/imagetoolkit/pkg/status"
	"github.com/walteh/imagetoolkit/pkg/tool"
	"gitlab.com/tozd/go/errors"
)

// 🔧 MockExecutor is a mock implementation of tool.Executor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Run(ctx context.Context, inv tool.Invocation) (*tool.Result, error) {
	args := m.Called(ctx, inv)
	res, _ := args.Get(0).(*tool.Result)
	return res, args.Error(1)
}

// fakeExecutor copies input to output unless the input is listed in failures
type fakeExecutor struct {
	mu       sync.Mutex
	failures map[string]error
	delays   map[string]time.Duration
	write    func(inv tool.Invocation) error
	calls    []tool.Invocation
}

func (f *fakeExecutor) Run(ctx context.Context, inv tool.Invocation) (*tool.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	err := f.failures[filepath.Base(inv.Input)]
	delay := f.delays[filepath.Base(inv.Input)]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return &tool.Result{ExitCode: 1}, err
	}

	write := f.write
	if write == nil {
		write = copyInput
	}
	if err := write(inv); err != nil {
		return nil, err
	}
	return &tool.Result{ExitCode: 0, ProducedPath: inv.Output}, nil
}

func copyInput(inv tool.Invocation) error {
	data, err := os.ReadFile(inv.Input)
	if err != nil {
		return err
	}
	return os.WriteFile(inv.Output, data, 0644)
}

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func fixture(t *testing.T, names ...string) (string, selection.Selection) {
	t.Helper()
	dir := t.TempDir()
	sel := make(selection.Selection, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("image bytes of "+name), 0644))
		sel = append(sel, path)
	}
	return dir, sel
}

func hashFile(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return sha256.Sum256(data)
}

func newDispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func TestNew(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err, "executor is required")

	_, err = New(Options{Executor: &fakeExecutor{}, Targets: []format.Format{format.HEIC}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrUnsupportedFormat))
}

func TestActions(t *testing.T) {
	ctx := context.Background()
	_, images := fixture(t, "a.jpg", "b.webp")
	_, pngs := fixture(t, "a.png", "b.PNG")
	_, mixed := fixture(t, "a.jpg", "readme.txt")

	d := newDispatcher(t, Options{Executor: &fakeExecutor{}})

	ids := func(actions []action.MenuAction) []string {
		out := []string{}
		for _, a := range actions {
			out = append(out, a.ID())
		}
		return out
	}

	assert.Equal(t,
		[]string{"convert:png", "convert:jpg", "convert:webp", "convert:bmp", "convert:tiff", "convert:gif", "remove-background"},
		ids(d.Actions(ctx, images)), "every action should be offered for a mixed image selection")

	assert.NotContains(t, ids(d.Actions(ctx, pngs)), "convert:png", "converting png to png is not offered")
	assert.Contains(t, ids(d.Actions(ctx, pngs)), "remove-background")

	assert.Empty(t, d.Actions(ctx, mixed), "one non-image file hides every action")
	assert.Empty(t, d.Actions(ctx, selection.Selection{}), "empty selection offers nothing")

	limited := newDispatcher(t, Options{Executor: &fakeExecutor{}, Targets: []format.Format{format.PNG, format.JPG}})
	assert.Equal(t, []string{"convert:png", "convert:jpg", "remove-background"}, ids(limited.Actions(ctx, images)))
}

func TestConvertCreatesSiblingsAndKeepsOriginals(t *testing.T) {
	ctx := context.Background()
	dir, sel := fixture(t, "cat.jpg", "dog.bmp", "bird.gif")

	before := map[string][32]byte{}
	for _, p := range sel {
		before[p] = hashFile(t, p)
	}

	exec := &fakeExecutor{}
	d := newDispatcher(t, Options{Executor: exec})
	report := d.Execute(ctx, action.Convert(format.WebP), sel)

	require.NoError(t, report.Err(), report.Summary())
	for i, name := range []string{"cat.webp", "dog.webp", "bird.webp"} {
		want := filepath.Join(dir, name)
		assert.FileExists(t, want)
		assert.Equal(t, want, report.Files[i].Output())
	}
	for _, p := range sel {
		assert.Equal(t, before[p], hashFile(t, p), "%s must be untouched", p)
	}

	require.Len(t, exec.calls, 3)
	assert.Equal(t, []string{sel[0], filepath.Join(dir, "cat.webp")}, exec.calls[0].Args)
}

func TestPartialFailure(t *testing.T) {
	ctx := context.Background()
	_, sel := fixture(t, "a.jpg", "b.jpg", "c.jpg")

	exec := &fakeExecutor{failures: map[string]error{
		"b.jpg": &tool.ExecutionError{Binary: "magick", ExitCode: 1, Stderr: "improper image header"},
	}}
	d := newDispatcher(t, Options{Executor: exec})
	h := host.NewMemory(sel...)

	report := d.Handle(ctx, h, action.Convert(format.PNG), sel)

	assert.Len(t, report.Succeeded(), 2)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, sel[1], report.Failed()[0].Input)

	notes := h.Notifications()
	require.Len(t, notes, 1, "exactly one notification per batch")
	assert.Equal(t, notify.LevelError, notes[0].Level)
	assert.Contains(t, notes[0].Body, "b.jpg")
	assert.NotContains(t, notes[0].Body, "a.jpg")
	assert.Contains(t, notes[0].Body, "improper image header")
}

func TestToolNotFound(t *testing.T) {
	ctx := context.Background()
	_, sel := fixture(t, "a.jpg", "b.jpg")

	m := &MockExecutor{}
	m.On("Run", mock.Anything, mock.Anything).Return(nil, errors.Errorf("magick: %w", tool.ErrToolNotFound))

	d := newDispatcher(t, Options{Executor: m})
	h := host.NewMemory(sel...)
	report := d.Handle(ctx, h, action.RemoveBackground(), sel)

	assert.Len(t, report.Failed(), 2, "every file fails but each is attempted")
	m.AssertNumberOfCalls(t, "Run", 2)

	notes := h.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "ImageMagick Not Found", notes[0].Title)
}

func TestParallelKeepsSelectionOrder(t *testing.T) {
	ctx := context.Background()
	_, sel := fixture(t, "slow.jpg", "mid.jpg", "fast.jpg", "bad.jpg")

	exec := &fakeExecutor{
		delays: map[string]time.Duration{
			"slow.jpg": 60 * time.Millisecond,
			"mid.jpg":  30 * time.Millisecond,
		},
		failures: map[string]error{"bad.jpg": errors.New("boom")},
	}
	d := newDispatcher(t, Options{Executor: exec, Parallelism: 4})

	report := d.Execute(ctx, action.Convert(format.PNG), sel)

	require.Len(t, report.Files, 4)
	for i, f := range report.Files {
		assert.Equal(t, sel[i], f.Input, "report entry %d should follow selection order", i)
	}
	assert.Equal(t, status.StatusFailed, report.Files[3].Status)
	assert.Len(t, report.Succeeded(), 3)
}

func TestParallelSameStemGetsDistinctOutputs(t *testing.T) {
	ctx := context.Background()
	dir, sel := fixture(t, "cat.jpg", "cat.gif", "cat.bmp")

	d := newDispatcher(t, Options{Executor: &fakeExecutor{}, Parallelism: 3})
	report := d.Execute(ctx, action.Convert(format.PNG), sel)
	require.NoError(t, report.Err())

	outputs := map[string]bool{}
	for _, f := range report.Files {
		outputs[f.Output()] = true
	}
	assert.Len(t, outputs, 3, "each file should get its own output")
	assert.True(t, outputs[filepath.Join(dir, "cat.png")])
	assert.True(t, outputs[filepath.Join(dir, "cat (1).png")])
	assert.True(t, outputs[filepath.Join(dir, "cat (2).png")])
}

func TestSkipsFilesAlreadyInTarget(t *testing.T) {
	ctx := context.Background()
	_, sel := fixture(t, "a.png", "b.jpg")

	exec := &fakeExecutor{}
	d := newDispatcher(t, Options{Executor: exec})
	report := d.Execute(ctx, action.Convert(format.PNG), sel)

	assert.Equal(t, status.StatusSkipped, report.Files[0].Status)
	assert.Equal(t, status.StatusSucceeded, report.Files[1].Status)
	assert.Len(t, exec.calls, 1)
}

func TestConvertTwice(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		policy outpath.Policy
		check  func(t *testing.T, dir string, first, second *status.Report)
	}{
		{
			policy: outpath.PolicyOverwrite,
			check: func(t *testing.T, dir string, first, second *status.Report) {
				require.NoError(t, second.Err())
				assert.Equal(t, first.Files[0].Output(), second.Files[0].Output())
			},
		},
		{
			policy: outpath.PolicyRename,
			check: func(t *testing.T, dir string, first, second *status.Report) {
				require.NoError(t, second.Err())
				assert.Equal(t, filepath.Join(dir, "cat (1).png"), second.Files[0].Output())
				assert.Equal(t, hashFile(t, first.Files[0].Output()), hashFile(t, second.Files[0].Output()))
			},
		},
		{
			policy: outpath.PolicyReject,
			check: func(t *testing.T, dir string, first, second *status.Report) {
				require.Len(t, second.Failed(), 1)
				assert.True(t, errors.Is(second.Failed()[0].Err, outpath.ErrCollision))
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			dir, sel := fixture(t, "cat.jpg")
			d := newDispatcher(t, Options{Executor: &fakeExecutor{}, Resolver: outpath.NewResolver(tt.policy)})

			first := d.Execute(ctx, action.Convert(format.PNG), sel)
			require.NoError(t, first.Err())
			firstHash := hashFile(t, first.Files[0].Output())

			second := d.Execute(ctx, action.Convert(format.PNG), sel)
			tt.check(t, dir, first, second)
			assert.Equal(t, firstHash, hashFile(t, filepath.Join(dir, "cat.png")), "output should be byte identical")
		})
	}
}

func TestRemoveBackgroundTransparencyCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		fill        color.Color
		wantWarning bool
	}{
		{name: "transparent_output", fill: color.NRGBA{}, wantWarning: false},
		{name: "opaque_output", fill: color.NRGBA{R: 10, G: 20, B: 30, A: 255}, wantWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, sel := fixture(t, "logo.jpg")
			exec := &fakeExecutor{write: func(inv tool.Invocation) error {
				writePNG(t, inv.Output, tt.fill)
				return nil
			}}
			d := newDispatcher(t, Options{Executor: exec})

			report := d.Execute(ctx, action.RemoveBackground(), sel)
			require.NoError(t, report.Err())

			out := report.Files[0].Output()
			assert.Equal(t, filepath.Join(dir, "logo-no-bg.png"), out)
			assert.Equal(t, tt.wantWarning, report.Files[0].Warning != "")

			info, err := probe.Inspect(out)
			require.NoError(t, err)
			assert.Equal(t, !tt.wantWarning, info.HasAlpha)

			require.Len(t, exec.calls, 1)
			assert.Equal(t, []string{sel[0], "-fuzz", "20%", "-transparent", "white", out}, exec.calls[0].Args)
		})
	}
}

func TestTransparencyCheckSkipsOpaqueFormats(t *testing.T) {
	ctx := context.Background()
	inspected := []string{}
	d := newDispatcher(t, Options{
		Executor: &fakeExecutor{},
		Inspect: func(path string) (*probe.Info, error) {
			inspected = append(inspected, path)
			return &probe.Info{HasAlpha: true}, nil
		},
	})

	assert.Equal(t, "JPEG cannot store transparency", d.checkTransparency(ctx, "/pics/logo-no-bg.jpg"))
	assert.Equal(t, "BMP cannot store transparency", d.checkTransparency(ctx, "/pics/logo-no-bg.bmp"))
	assert.Empty(t, inspected, "formats without alpha are not decoded")

	assert.Empty(t, d.checkTransparency(ctx, "/pics/logo-no-bg.webp"))
	assert.Equal(t, []string{"/pics/logo-no-bg.webp"}, inspected)
}

func TestRegisterAndClick(t *testing.T) {
	ctx := context.Background()
	dir, sel := fixture(t, "a.jpg", "b.jpg")

	var observed []*status.Report
	d := newDispatcher(t, Options{
		Executor: &fakeExecutor{},
		Observer: func(r *status.Report) { observed = append(observed, r) },
	})
	h := host.NewMemory(sel...)

	actions, err := d.Register(ctx, h)
	require.NoError(t, err)
	assert.Len(t, h.Items(), len(actions))

	require.NoError(t, h.Click(ctx, "convert:gif"))
	assert.FileExists(t, filepath.Join(dir, "a.gif"))
	assert.FileExists(t, filepath.Join(dir, "b.gif"))

	notes := h.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.LevelInfo, notes[0].Level)
	assert.Equal(t, "Converted 2 files to GIF format.", notes[0].Body)
	require.Len(t, observed, 1)
}

func TestRegisterIneligibleSelection(t *testing.T) {
	ctx := context.Background()
	_, sel := fixture(t, "a.jpg", "notes.md")

	d := newDispatcher(t, Options{Executor: &fakeExecutor{}})
	h := host.NewMemory(sel...)

	actions, err := d.Register(ctx, h)
	require.NoError(t, err, "ineligibility is not an error")
	assert.Empty(t, actions)
	assert.Empty(t, h.Items())

	err = h.Click(ctx, "convert:png")
	assert.True(t, errors.Is(err, host.ErrUnknownItem))
}

func TestClickReturnsBatchError(t *testing.T) {
	ctx := context.Background()
	_, sel := fixture(t, "a.jpg")

	exec := &fakeExecutor{failures: map[string]error{"a.jpg": errors.Errorf("magick: %w", tool.ErrTimeout)}}
	d := newDispatcher(t, Options{Executor: exec})
	h := host.NewMemory(sel...)
	_, err := d.Register(ctx, h)
	require.NoError(t, err)

	err = h.Click(ctx, "remove-background")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.jpg")
	require.Len(t, h.Notifications(), 1)
	assert.Contains(t, h.Notifications()[0].Body, "did not finish in time")
}

func TestCancelledBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, sel := fixture(t, "a.jpg", "b.jpg")

	exec := &fakeExecutor{}
	d := newDispatcher(t, Options{Executor: exec})
	report := d.Execute(ctx, action.Convert(format.PNG), sel)

	assert.Len(t, report.Failed(), 2)
	assert.Empty(t, exec.calls, "no process should start after cancellation")
	assert.True(t, errors.Is(report.Failed()[0].Err, context.Canceled))
}

func TestInvalidAction(t *testing.T) {
	_, sel := fixture(t, "a.jpg")
	d := newDispatcher(t, Options{Executor: &fakeExecutor{}})

	report := d.Execute(context.Background(), action.Convert(format.HEIC), sel)
	require.Len(t, report.Failed(), 1)
	assert.True(t, errors.Is(report.Failed()[0].Err, format.ErrUnsupportedFormat))
}
