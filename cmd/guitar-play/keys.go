package main

import "github.com/cwbudde/algo-guitar/internal/fitcommon"

// Open strings of a guitar in standard tuning, low to high.
var openStrings = [6]int{40, 45, 50, 55, 59, 64}

const (
	keyQuit      = 'q'
	keyCtrlC     = 0x03
	keyStrum     = ' '
	keyAllOff    = 'x'
	keyBendUp    = '.'
	keyBendDown  = ','
	keyBendReset = '/'
)

var stringKeys = map[byte]int{'a': 0, 's': 1, 'd': 2, 'f': 3, 'g': 4, 'h': 5}

// keyboard turns raw key presses into engine events.
type keyboard struct {
	fret     int
	velocity int
	bend     int
}

func newKeyboard(velocity int) *keyboard {
	return &keyboard{velocity: velocity, bend: 8192}
}

// Handle returns the events for key b and whether the player should quit.
func (k *keyboard) Handle(b byte) ([]fitcommon.Event, bool) {
	switch {
	case b == keyQuit || b == keyCtrlC:
		return nil, true
	case b >= '0' && b <= '9':
		k.fret = int(b - '0')
		return nil, false
	case b == keyStrum:
		notes := make([]int, len(openStrings))
		for i, n := range openStrings {
			notes[i] = n + k.fret
		}
		return fitcommon.PluckEvents(notes, k.velocity, 0, -1), false
	case b == keyAllOff:
		events := make([]fitcommon.Event, 0, len(openStrings)*10)
		for _, n := range openStrings {
			for f := 0; f <= 9; f++ {
				events = append(events, fitcommon.Event{Kind: fitcommon.EventNoteOff, Note: n + f})
			}
		}
		return events, false
	case b == keyBendUp || b == keyBendDown || b == keyBendReset:
		switch b {
		case keyBendUp:
			k.bend = min(k.bend+1024, 16383)
		case keyBendDown:
			k.bend = max(k.bend-1024, 0)
		default:
			k.bend = 8192
		}
		return []fitcommon.Event{{Kind: fitcommon.EventPitchBend, Bend: k.bend}}, false
	}
	if s, ok := stringKeys[b]; ok {
		return []fitcommon.Event{{Kind: fitcommon.EventNoteOn, Note: openStrings[s] + k.fret, Velocity: k.velocity}}, false
	}
	return nil, false
}
