// SPDX-License-Identifier: EPL-2.0

package offline

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ik5/rtproc/client"
	"github.com/ik5/rtproc/internal/pcm"
)

type shutdowns struct {
	client.NopNotificationHandler

	mu        sync.Mutex
	reasons   []string
	freewheel []bool
}

func (s *shutdowns) Shutdown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func (s *shutdowns) Freewheel(_ *client.Client, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freewheel = append(s.freewheel, on)
}

func waitDone(t *testing.T, a *client.AsyncClient) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("render did not finish")
	}
}

func writeWAV(t *testing.T, path string, rate, channels int, samples []float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := pcm.NewWriter(f, rate, channels, 16)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(samples); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func readWAV(t *testing.T, path string) (pcm.Source, []float32) {
	t.Helper()
	src, err := pcm.Open(path, nil)
	if err != nil {
		t.Fatalf("pcm.Open(%s) error = %v", path, err)
	}
	t.Cleanup(func() { src.Close() })

	var out []float32
	buf := make([]float32, 512)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return src, out
		}
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !errors.Is(err, ErrNoLength) {
		t.Errorf("New(empty) error = %v, want ErrNoLength", err)
	}
	_, err := New(Config{Duration: time.Second, Events: []Event{{Port: 0, Bytes: []byte{0x90}}}})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("New(bad event) error = %v, want ErrInvalidEvent", err)
	}
}

func TestRender_DurationToWAV(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.wav")
	b, err := New(Config{
		SampleRate: 8000,
		BufferSize: 64,
		Output:     out,
		Channels:   1,
		Duration:   100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := client.New("render", b)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	port, err := c.RegisterAudioOut("out")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(port.Name(), "system:playback_1"); err != nil {
		t.Fatal(err)
	}

	h := client.NewClosureProcessHandler(struct{}{}).
		WithProcessFn(func(_ *struct{}, _ *client.Client, ps *client.ProcessScope) client.Control {
			buf := port.Buffer(ps)
			for i := range buf {
				buf[i] = 0.5
			}
			return client.Continue
		})
	n := &shutdowns{}
	a, err := c.Activate(n, h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, a)
	if a.Err() != nil {
		t.Fatalf("Err() = %v", a.Err())
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if b.Rendered() != 800 {
		t.Errorf("Rendered() = %d, want 800", b.Rendered())
	}
	src, samples := readWAV(t, out)
	if src.SampleRate() != 8000 || src.Channels() != 1 {
		t.Errorf("output format = %d Hz x %d", src.SampleRate(), src.Channels())
	}
	if len(samples) != 800 {
		t.Fatalf("output samples = %d, want 800", len(samples))
	}
	if d := samples[100] - 0.5; d > 0.001 || d < -0.001 {
		t.Errorf("sample = %v, want 0.5", samples[100])
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.reasons) != 1 || n.reasons[0] != "render finished" {
		t.Errorf("shutdown reasons = %v", n.reasons)
	}
	if len(n.freewheel) != 2 || !n.freewheel[0] || n.freewheel[1] {
		t.Errorf("freewheel = %v, want [true false]", n.freewheel)
	}
}

func TestRender_InputPassThrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	input := make([]float32, 2*300)
	for i := range 300 {
		input[2*i] = 0.25
		input[2*i+1] = 0.75
	}
	writeWAV(t, in, 8000, 2, input)

	b, err := New(Config{SampleRate: 8000, BufferSize: 128, Input: in, Output: out, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	c, err := client.New("pass", b)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Connect("system:capture_1", "system:playback_1"); err != nil {
		t.Fatal(err)
	}
	a, err := c.Activate(nil, client.NopProcessHandler{})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, a)
	c.Close()

	// 300 frames in blocks of 128: three blocks, the last one padded
	if b.Rendered() != 384 {
		t.Errorf("Rendered() = %d, want 384", b.Rendered())
	}
	_, samples := readWAV(t, out)
	if len(samples) != 384 {
		t.Fatalf("output samples = %d, want 384", len(samples))
	}
	if d := samples[10] - 0.5; d > 0.001 || d < -0.001 {
		t.Errorf("downmixed sample = %v, want 0.5", samples[10])
	}
	if samples[350] != 0 {
		t.Errorf("padding sample = %v, want 0", samples[350])
	}
}

func TestRender_ScheduledEvents(t *testing.T) {
	t.Parallel()

	b, err := New(Config{
		SampleRate: 1000,
		BufferSize: 10,
		Duration:   50 * time.Millisecond,
		Events: []Event{
			{Frame: 25, Port: 1, Bytes: []byte{0x80, 60, 0}},
			{Frame: 3, Port: 1, Bytes: []byte{0x90, 60, 100}},
			{Frame: 500, Port: 1, Bytes: []byte{0xF8}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := client.New("events", b)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	in, _ := c.RegisterMidiIn("in")
	if err := c.Connect("system:midi_capture_1", in.Name()); err != nil {
		t.Fatal(err)
	}

	type hit struct {
		frame  client.Frames
		status byte
	}
	hits := make(chan hit, 8)
	h := client.NewClosureProcessHandler(struct{}{}).
		WithProcessFn(func(_ *struct{}, _ *client.Client, ps *client.ProcessScope) client.Control {
			for _, ev := range in.Events(ps) {
				select {
				case hits <- hit{frame: ps.FrameTime(ev.Time), status: ev.Bytes[0]}:
				default:
				}
			}
			return client.Continue
		})
	a, err := c.Activate(nil, h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, a)
	c.Close()
	close(hits)

	var got []hit
	for x := range hits {
		got = append(got, x)
	}
	want := []hit{{3, 0x90}, {25, 0x80}}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRender_QuitEndsEarly(t *testing.T) {
	t.Parallel()

	b, err := New(Config{BufferSize: 32, Duration: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	c, err := client.New("quit", b)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	h := client.NewClosureProcessHandler(0).
		WithProcessFn(func(n *int, _ *client.Client, _ *client.ProcessScope) client.Control {
			*n++
			if *n == 4 {
				return client.Quit
			}
			return client.Continue
		})
	a, err := c.Activate(nil, h)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, a)

	if a.Cycles() != 4 {
		t.Errorf("Cycles() = %d, want 4", a.Cycles())
	}
	if b.Rendered() != 128 {
		t.Errorf("Rendered() = %d, want 128", b.Rendered())
	}
}

func TestActivate_MissingInput(t *testing.T) {
	t.Parallel()

	b, err := New(Config{Input: filepath.Join(t.TempDir(), "missing.wav")})
	if err != nil {
		t.Fatal(err)
	}
	c, err := client.New("missing", b)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Activate(nil, client.NopProcessHandler{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Activate() error = %v, want ErrNotExist", err)
	}
}
