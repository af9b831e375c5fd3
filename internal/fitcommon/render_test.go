package fitcommon

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-guitar/guitar"
)

func newTestGuitar(t *testing.T) *guitar.Guitar {
	t.Helper()
	g, err := guitar.NewGuitar(48000, 0, nil)
	if err != nil {
		t.Fatalf("NewGuitar: %v", err)
	}
	return g
}

func TestPluckEvents(t *testing.T) {
	ev := PluckEvents([]int{40, 45}, 90, 0.05, 1.0)
	if len(ev) != 4 {
		t.Fatalf("expected 4 events, got %d", len(ev))
	}
	if ev[2].Kind != EventNoteOn || ev[2].Note != 45 || ev[2].At != 0.05 {
		t.Fatalf("unexpected second pluck %+v", ev[2])
	}
	if ev[3].Kind != EventNoteOff || math.Abs(ev[3].At-1.05) > 1e-12 {
		t.Fatalf("unexpected second release %+v", ev[3])
	}
	if held := PluckEvents([]int{40}, 90, 0, -1); len(held) != 1 {
		t.Fatalf("negative release must keep the note held, got %d events", len(held))
	}
}

func TestRenderFixedDuration(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.MaxDuration = 0.25
	out := Render(newTestGuitar(t), PluckEvents([]int{52}, 100, 0, -1), opts)
	if len(out) != 12000 {
		t.Fatalf("expected 12000 frames, got %d", len(out))
	}
	if RMS(out) < 1e-5 {
		t.Fatalf("expected audible output")
	}
}

func TestRenderPlacesEventsOnExactFrames(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.MaxDuration = 0.05
	events := []Event{{At: 0.01, Kind: EventNoteOn, Note: 64, Velocity: 100}}
	out := Render(newTestGuitar(t), events, opts)
	for i := 0; i < 480; i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d before the pluck is %g", i, out[i])
		}
	}
	if RMS(out[480:]) == 0 {
		t.Fatalf("expected sound after the pluck frame")
	}
}

func TestRenderNoteAutoStops(t *testing.T) {
	opts := DefaultRenderOptions()
	opts.DecayDBFS = -60
	opts.MinDuration = 0.2
	opts.MaxDuration = 10
	out, err := RenderNote(nil, 48000, 57, 100, 0.1, opts)
	if err != nil {
		t.Fatalf("RenderNote: %v", err)
	}
	if len(out) < 9600 || len(out) >= 480000 {
		t.Fatalf("auto-stop rendered %d frames", len(out))
	}
	tail := out[len(out)-128:]
	if RMS(tail) >= DBFSToLinear(-60) {
		t.Fatalf("render stopped above threshold: %g", RMS(tail))
	}
}

func TestRenderNoteRejectsBadParams(t *testing.T) {
	p := guitar.NewDefaultParams()
	p.OutputGain = 0
	if _, err := RenderNote(p, 48000, 60, 100, 0.5, DefaultRenderOptions()); err == nil {
		t.Fatalf("expected error for invalid params")
	}
}

func TestWriteAndReadMonoWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "pluck.wav")
	data := []float32{0, 0.5, -0.5, 0.25}
	if err := WriteMonoWAV(path, data, 44100); err != nil {
		t.Fatalf("WriteMonoWAV: %v", err)
	}
	got, sr, err := ReadWAVMono(path)
	if err != nil {
		t.Fatalf("ReadWAVMono: %v", err)
	}
	if sr != 44100 || len(got) != len(data) {
		t.Fatalf("read back sr=%d len=%d", sr, len(got))
	}
	scale := got[1] / 0.5
	if scale <= 0 {
		t.Fatalf("unexpected decoded scale %f", scale)
	}
	for i := range data {
		if math.Abs(got[i]-scale*float64(data[i])) > 2e-3*scale {
			t.Fatalf("sample %d: got %f want %f", i, got[i], scale*float64(data[i]))
		}
	}

	up, err := ReadReference(path, 88200)
	if err != nil {
		t.Fatalf("ReadReference: %v", err)
	}
	if len(up) < 6 {
		t.Fatalf("expected upsampled reference, got %d frames", len(up))
	}
}
