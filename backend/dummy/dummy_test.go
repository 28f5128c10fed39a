// SPDX-License-Identifier: EPL-2.0

package dummy

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ik5/rtproc/client"
)

func newClient(t *testing.T, b *Backend) *client.Client {
	t.Helper()
	c, err := client.New("dummy_test", b)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	b, err := New(WithSampleRate(44100), WithBufferSize(64))
	if err != nil {
		t.Fatal(err)
	}
	if b.SampleRate() != 44100 || b.BufferSize() != 64 {
		t.Errorf("format = %d Hz / %d frames, want 44100 / 64", b.SampleRate(), b.BufferSize())
	}
	if got := len(b.Ports("system:")); got != 6 {
		t.Errorf("system ports = %d, want 6", got)
	}
}

func TestStep_NotActive(t *testing.T) {
	t.Parallel()

	b, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Step(); !errors.Is(err, client.ErrNotActive) {
		t.Errorf("Step() error = %v, want ErrNotActive", err)
	}
}

func TestStep_PassThrough(t *testing.T) {
	t.Parallel()

	b, err := New(
		WithBufferSize(16),
		WithCapture(func(buf []float32) {
			for i := range buf {
				buf[i] = 0.25
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, b)

	in, err := c.RegisterAudioIn("in")
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.RegisterAudioOut("out")
	if err != nil {
		t.Fatal(err)
	}
	for _, conn := range [][2]string{{"system:capture_1", in.Name()}, {out.Name(), "system:playback_2"}} {
		if err := c.Connect(conn[0], conn[1]); err != nil {
			t.Fatal(err)
		}
	}

	h := client.NewClosureProcessHandler(struct{}{}).
		WithProcessFn(func(_ *struct{}, _ *client.Client, ps *client.ProcessScope) client.Control {
			copy(out.Buffer(ps), in.Buffer(ps))
			return client.Continue
		})
	a, err := c.Activate(nil, h)
	if err != nil {
		t.Fatal(err)
	}

	if ctl, err := b.Step(); ctl != client.Continue || err != nil {
		t.Fatalf("Step() = %v, %v", ctl, err)
	}
	got := b.Playback(2)
	if len(got) != 16 {
		t.Fatalf("playback len = %d, want 16", len(got))
	}
	for i, v := range got {
		if v != 0.25 {
			t.Errorf("playback[%d] = %v, want 0.25", i, v)
		}
	}
	if silent := b.Playback(1); silent[0] != 0 {
		t.Errorf("unconnected playback = %v, want silence", silent[0])
	}
	if a.Cycles() != 1 {
		t.Errorf("Cycles() = %d, want 1", a.Cycles())
	}
}

func TestStep_QuitIsTerminal(t *testing.T) {
	t.Parallel()

	b, err := New()
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, b)

	var calls atomic.Int32
	h := client.NewClosureProcessHandler(0).
		WithProcessFn(func(n *int, _ *client.Client, _ *client.ProcessScope) client.Control {
			calls.Add(1)
			*n++
			if *n == 3 {
				return client.Quit
			}
			return client.Continue
		})
	a, err := c.Activate(nil, h)
	if err != nil {
		t.Fatal(err)
	}

	ran, err := b.StepN(10)
	if err != nil {
		t.Fatal(err)
	}
	if ran != 3 {
		t.Errorf("StepN() ran %d blocks, want 3", ran)
	}
	if ctl, _ := b.Step(); ctl != client.Quit {
		t.Errorf("Step() after quit = %v, want quit", ctl)
	}
	if calls.Load() != 3 {
		t.Errorf("process calls = %d, want 3", calls.Load())
	}

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after quit")
	}
	if a.Err() != nil {
		t.Errorf("Err() = %v, want nil", a.Err())
	}
}

func TestSetBufferSize(t *testing.T) {
	t.Parallel()

	b, err := New(WithBufferSize(32), WithMaxBufferSize(128))
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, b)

	type state struct {
		sizes  []client.Frames
		blocks []client.Frames
	}
	var seen *state
	h := client.NewClosureProcessHandler(state{}).
		WithBufferFn(func(s *state, _ *client.Client, size client.Frames) client.Control {
			s.sizes = append(s.sizes, size)
			seen = s
			return client.Continue
		}).
		WithProcessFn(func(s *state, _ *client.Client, ps *client.ProcessScope) client.Control {
			s.blocks = append(s.blocks, ps.NFrames())
			seen = s
			return client.Continue
		})
	if _, err := c.Activate(nil, h); err != nil {
		t.Fatal(err)
	}

	b.Step()
	if err := b.SetBufferSize(128); err != nil {
		t.Fatal(err)
	}
	b.Step()

	if len(seen.sizes) != 1 || seen.sizes[0] != 128 {
		t.Errorf("buffer size calls = %v, want [128]", seen.sizes)
	}
	if len(seen.blocks) != 2 || seen.blocks[0] != 32 || seen.blocks[1] != 128 {
		t.Errorf("block sizes = %v, want [32 128]", seen.blocks)
	}
	if c.BufferSize() != 128 {
		t.Errorf("BufferSize() = %d, want 128", c.BufferSize())
	}
}

func TestQueueMidi_RoundTrip(t *testing.T) {
	t.Parallel()

	b, err := New(WithBufferSize(32))
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, b)

	in, _ := c.RegisterMidiIn("midi_in")
	out, _ := c.RegisterMidiOut("midi_out")
	for _, conn := range [][2]string{{"system:midi_capture_1", in.Name()}, {out.Name(), "system:midi_playback_1"}} {
		if err := c.Connect(conn[0], conn[1]); err != nil {
			t.Fatal(err)
		}
	}

	h := client.NewClosureProcessHandler(struct{}{}).
		WithProcessFn(func(_ *struct{}, _ *client.Client, ps *client.ProcessScope) client.Control {
			w := out.Writer(ps)
			for _, ev := range in.Events(ps) {
				w.Write(ev)
			}
			return client.Continue
		})
	if _, err := c.Activate(nil, h); err != nil {
		t.Fatal(err)
	}

	if !b.QueueMidi(1, 3, []byte{0x90, 60, 100}) {
		t.Fatal("QueueMidi() = false")
	}
	b.Step()

	evs := b.PlaybackEvents(1)
	if len(evs) != 1 {
		t.Fatalf("playback events = %d, want 1", len(evs))
	}
	if evs[0].Time != 3 || evs[0].Bytes[1] != 60 {
		t.Errorf("event = %+v, want note 60 at 3", evs[0])
	}

	b.Step()
	if got := len(b.PlaybackEvents(1)); got != 0 {
		t.Errorf("next block events = %d, want 0", got)
	}
}

type notes struct {
	client.NopNotificationHandler
	init atomic.Int32
}

func (n *notes) ThreadInit(*client.Client) { n.init.Add(1) }

func TestClock_RunsAndDeactivates(t *testing.T) {
	t.Parallel()

	b, err := New(WithClock(), WithSampleRate(48000), WithBufferSize(48))
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, b)

	if _, err := b.Step(); !errors.Is(err, ErrClocked) {
		t.Errorf("Step() on clocked backend error = %v, want ErrClocked", err)
	}

	n := &notes{}
	a, err := c.Activate(n, client.NopProcessHandler{})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.Cycles() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if a.Cycles() < 5 {
		t.Fatalf("Cycles() = %d after 2s, want >= 5", a.Cycles())
	}

	if err := a.Deactivate(); err != nil {
		t.Fatal(err)
	}
	after := a.Cycles()
	time.Sleep(10 * time.Millisecond)
	if a.Cycles() != after {
		t.Errorf("cycles advanced after Deactivate: %d -> %d", after, a.Cycles())
	}
	if n.init.Load() != 1 {
		t.Errorf("ThreadInit calls = %d, want 1", n.init.Load())
	}
}

func TestClock_QuitStops(t *testing.T) {
	t.Parallel()

	b, err := New(WithClock(), WithBufferSize(16))
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, b)

	h := client.NewClosureProcessHandler(0).
		WithProcessFn(func(n *int, _ *client.Client, _ *client.ProcessScope) client.Control {
			*n++
			if *n >= 2 {
				return client.Quit
			}
			return client.Continue
		})
	a, err := c.Activate(nil, h)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after Quit")
	}
	if a.Cycles() != 2 {
		t.Errorf("Cycles() = %d, want 2", a.Cycles())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
