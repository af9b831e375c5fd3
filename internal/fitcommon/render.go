package fitcommon

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-guitar/guitar"
)

type EventKind int

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventPitchBend
)

// Event is a timed performance gesture. Velocity 0 on a note-on releases,
// as in MIDI.
type Event struct {
	At       float64 // seconds from render start
	Kind     EventKind
	Note     int
	Velocity int
	Bend     int // 14-bit wheel value, centre 8192
}

// RenderOptions controls block size and the auto-stop rule. With DecayDBFS
// at +Inf the render runs for exactly MaxDuration seconds.
type RenderOptions struct {
	BlockSize       int
	DecayDBFS       float64
	DecayHoldBlocks int
	MinDuration     float64
	MaxDuration     float64
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		BlockSize:       128,
		DecayDBFS:       math.Inf(1),
		DecayHoldBlocks: 6,
		MinDuration:     0.5,
		MaxDuration:     2.0,
	}
}

func (o RenderOptions) normalized() RenderOptions {
	if o.BlockSize < 1 {
		o.BlockSize = 128
	}
	if o.DecayHoldBlocks < 1 {
		o.DecayHoldBlocks = 1
	}
	if o.MinDuration < 0 {
		o.MinDuration = 0
	}
	if o.MaxDuration < o.MinDuration {
		o.MaxDuration = o.MinDuration
	}
	return o
}

// PluckEvents plucks notes spaced apart in time and releases each one
// releaseAfter seconds after its own pluck. A negative releaseAfter keeps
// the notes held.
func PluckEvents(notes []int, velocity int, spacing float64, releaseAfter float64) []Event {
	events := make([]Event, 0, 2*len(notes))
	for i, n := range notes {
		at := float64(i) * spacing
		events = append(events, Event{At: at, Kind: EventNoteOn, Note: n, Velocity: velocity})
		if releaseAfter >= 0 {
			events = append(events, Event{At: at + releaseAfter, Kind: EventNoteOff, Note: n})
		}
	}
	return events
}

// Render plays events into g and returns the mono output. Events land on
// their exact frame; blocks are split around them.
func Render(g *guitar.Guitar, events []Event, opts RenderOptions) []float32 {
	opts = opts.normalized()
	sr := float64(g.SampleRate())

	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	frameOf := func(e Event) int {
		if e.At <= 0 {
			return 0
		}
		return int(math.Round(e.At * sr))
	}

	maxFrames := int(sr * opts.MaxDuration)
	if maxFrames < 1 {
		maxFrames = 1
	}
	minFrames := int(sr * opts.MinDuration)
	autoStop := !math.IsInf(opts.DecayDBFS, 1)
	threshold := DBFSToLinear(opts.DecayDBFS)

	out := make([]float32, 0, maxFrames)
	buf := make([]float32, opts.BlockSize)
	next := 0
	below := 0
	for len(out) < maxFrames {
		for next < len(sorted) && frameOf(sorted[next]) <= len(out) {
			Dispatch(g, sorted[next])
			next++
		}

		n := min(opts.BlockSize, maxFrames-len(out))
		if next < len(sorted) {
			n = min(n, frameOf(sorted[next])-len(out))
		}
		block := buf[:n]
		g.ProcessTo(block)
		out = append(out, block...)

		if !autoStop || next < len(sorted) || len(out) < minFrames {
			continue
		}
		if RMS(block) < threshold {
			below++
			if below >= opts.DecayHoldBlocks {
				break
			}
		} else {
			below = 0
		}
	}
	return out
}

// RenderNote plucks a single note on a fresh engine built from params.
func RenderNote(params *guitar.Params, sampleRate int, note int, velocity int, releaseAfter float64, opts RenderOptions) ([]float32, error) {
	g, err := guitar.NewGuitar(sampleRate, 0, params)
	if err != nil {
		return nil, err
	}
	return Render(g, PluckEvents([]int{note}, velocity, 0, releaseAfter), opts), nil
}

// Dispatch applies one event to the engine.
func Dispatch(g *guitar.Guitar, e Event) {
	switch e.Kind {
	case EventNoteOn:
		g.NoteOn(e.Note, e.Velocity)
	case EventNoteOff:
		g.NoteOff(e.Note)
	case EventPitchBend:
		g.PitchBend(e.Bend)
	}
}
