package guitar

import (
	"math"
	"testing"
)

func newTestVoice(t *testing.T, params *Params) *Voice {
	t.Helper()
	v, err := NewVoice(48000, params)
	if err != nil {
		t.Fatalf("NewVoice: %v", err)
	}
	return v
}

func TestMidiNoteToFreq(t *testing.T) {
	tests := []struct {
		note int
		ref  float32
		bend float32
		want float64
	}{
		{69, 440, 0, 440},
		{57, 440, 0, 220},
		{45, 440, 0, 110},
		{69, 432, 0, 432},
		{69, 440, 12, 880},
		{64, 440, -2, 293.665},
	}
	for _, tc := range tests {
		got := float64(midiNoteToFreq(tc.note, tc.ref, tc.bend))
		if math.Abs(got-tc.want) > 0.005*tc.want {
			t.Fatalf("note %d ref %.0f bend %.0f: got %f want %f", tc.note, tc.ref, tc.bend, got, tc.want)
		}
	}
}

func TestNewVoiceRejectsInvalidRate(t *testing.T) {
	if _, err := NewVoice(0, nil); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestVoiceIdleIsSilent(t *testing.T) {
	v := newTestVoice(t, nil)
	buf := make([]float32, 256)
	v.ProcessTo(buf)
	if v.IsActive() || windowRMS(buf) != 0 {
		t.Fatalf("idle voice produced output")
	}
}

func TestVoiceAttackRamp(t *testing.T) {
	v := newTestVoice(t, nil)
	v.NoteOn(57, 1)

	buf := make([]float32, 1)
	v.ProcessTo(buf)
	if want := float32(1.0 / 1200); math.Abs(float64(v.Gain()-want)) > 1e-7 {
		t.Fatalf("gain after one sample: got %g want %g", v.Gain(), want)
	}

	rest := make([]float32, 1300)
	v.ProcessTo(rest)
	if v.Gain() != 1 {
		t.Fatalf("expected full gain after the attack, got %f", v.Gain())
	}
	if rms := windowRMS(rest); rms == 0 {
		t.Fatalf("expected the plucked voice to sound")
	}
}

func TestVoiceReleaseEndsNote(t *testing.T) {
	v := newTestVoice(t, nil)
	v.NoteOn(52, 0.8)
	v.ProcessTo(make([]float32, 4800))
	v.Release()
	if !v.Released() {
		t.Fatalf("expected released state")
	}

	// Release ramp lasts sampleRate/5 samples.
	buf := make([]float32, 10000)
	v.ProcessTo(buf)
	if v.IsActive() {
		t.Fatalf("voice still active after the release ramp, gain %g", v.Gain())
	}
	if v.Gain() != 0 {
		t.Fatalf("expected zero gain after note end, got %g", v.Gain())
	}
}

func TestVoiceFundamentalFollowsNote(t *testing.T) {
	const sr = 48000
	v := newTestVoice(t, nil)
	v.NoteOn(57, 1)
	buf := make([]float32, sr/2)
	v.ProcessTo(buf)
	if peak := findPeakNear(buf, sr, 220, 40); math.Abs(peak-220) > 4 {
		t.Fatalf("expected fundamental near 220 Hz, got %f", peak)
	}
}

func TestVoicePitchBendRetunesString(t *testing.T) {
	v := newTestVoice(t, nil)
	v.NoteOn(57, 1)
	v.SetPitchBend(2)
	bank, ok := v.model.(*ResonatorBank)
	if !ok {
		t.Fatalf("expected the modal string by default, got %T", v.model)
	}
	want := 220 * math.Pow(2, 2.0/12)
	if got := float64(bank.Mode(0).Frequency); math.Abs(got-want) > 0.005*want {
		t.Fatalf("bent fundamental: got %f want %f", got, want)
	}
	wantDelay := float64(v.pickup.position) / want * 48000
	if got := float64(v.pickup.CombDelay()); math.Abs(got-wantDelay) > 0.01*wantDelay {
		t.Fatalf("pickup comb not retuned: got %f want %f", got, wantDelay)
	}
}

func TestVoiceApplySelectsModel(t *testing.T) {
	params := NewDefaultParams()
	params.Model = ModelOscillator
	v := newTestVoice(t, params)
	if _, ok := v.model.(*OscillatorBank); !ok {
		t.Fatalf("expected oscillator model, got %T", v.model)
	}
	params.Model = ModelModal
	v.Apply(params)
	if _, ok := v.model.(*ResonatorBank); !ok {
		t.Fatalf("expected modal model, got %T", v.model)
	}
}

func TestVoiceApplyKeepsRingingNote(t *testing.T) {
	params := NewDefaultParams()
	v := newTestVoice(t, params)
	v.NoteOn(50, 1)
	v.ProcessTo(make([]float32, 2400))

	params.PickupTone = 0.2
	params.Decay = 0.1
	v.Apply(params)
	if !v.IsActive() {
		t.Fatalf("Apply must not stop a sounding voice")
	}
	buf := make([]float32, 512)
	v.ProcessTo(buf)
	if windowRMS(buf) == 0 {
		t.Fatalf("voice went silent after a parameter change")
	}
	if freq, _ := v.pickup.Resonance(); math.Abs(float64(freq)-(1500+2900*0.2)) > 1e-3 {
		t.Fatalf("pickup tone not applied: %f Hz", freq)
	}
}

func TestVoiceRetriggerKeepsActive(t *testing.T) {
	v := newTestVoice(t, nil)
	v.NoteOn(60, 1)
	v.ProcessTo(make([]float32, 2000))
	v.Release()
	v.NoteOn(60, 0.5)
	if v.Released() || !v.IsActive() {
		t.Fatalf("re-pluck must cancel the release")
	}
	if v.Gain() != 0 {
		t.Fatalf("re-pluck must restart the attack, gain %g", v.Gain())
	}
}

func TestVoiceNewNoteRestartsAttack(t *testing.T) {
	v := newTestVoice(t, nil)
	v.NoteOn(57, 1)
	v.ProcessTo(make([]float32, 4000))
	if v.Gain() != 1 {
		t.Fatalf("expected full gain before the second note, got %g", v.Gain())
	}
	v.NoteOn(60, 1)
	if v.Gain() != 0 {
		t.Fatalf("gain must restart at zero on a new note, got %g", v.Gain())
	}
	buf := make([]float32, 1)
	v.ProcessTo(buf)
	if want := float32(1.0 / 1200); math.Abs(float64(v.Gain()-want)) > 1e-7 {
		t.Fatalf("gain after one sample of the new note: got %g want %g", v.Gain(), want)
	}
}
