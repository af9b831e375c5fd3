package main

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/internal/fitcommon"
)

const blockFrames = 128

// engineReader renders the guitar as little-endian float32 PCM for oto.
// Input goroutines never touch the engine; their events queue on a channel
// that is drained between blocks.
type engineReader struct {
	g      *guitar.Guitar
	events chan fitcommon.Event
	block  [blockFrames]float32
}

func newEngineReader(g *guitar.Guitar, queue int) *engineReader {
	return &engineReader{g: g, events: make(chan fitcommon.Event, queue)}
}

// Send queues an event without blocking; it reports false when the queue
// is full and the event was dropped.
func (r *engineReader) Send(e fitcommon.Event) bool {
	select {
	case r.events <- e:
		return true
	default:
		return false
	}
}

func (r *engineReader) drain() {
	for {
		select {
		case e := <-r.events:
			fitcommon.Dispatch(r.g, e)
		default:
			return
		}
	}
}

func (r *engineReader) Read(p []byte) (int, error) {
	frames := len(p) / 4
	done := 0
	for done < frames {
		r.drain()
		n := min(blockFrames, frames-done)
		blk := r.block[:n]
		r.g.ProcessTo(blk)
		for i, s := range blk {
			binary.LittleEndian.PutUint32(p[(done+i)*4:], math.Float32bits(s))
		}
		done += n
	}
	return frames * 4, nil
}
