package fitcommon

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadMIDIEvents flattens all tracks of a standard MIDI file into note and
// pitch-bend events on the given channel. A negative channel accepts all.
func ReadMIDIEvents(r io.Reader, channel int) ([]Event, error) {
	var events []Event
	rd := smf.ReadTracksFrom(r).Do(func(ev smf.TrackEvent) {
		msg := midi.Message(ev.Message)
		at := float64(ev.AbsMicroSeconds) / 1e6

		var ch, key, vel uint8
		var rel int16
		var abs uint16
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			if channel < 0 || int(ch) == channel {
				events = append(events, Event{At: at, Kind: EventNoteOn, Note: int(key), Velocity: int(vel)})
			}
		case msg.GetNoteEnd(&ch, &key):
			if channel < 0 || int(ch) == channel {
				events = append(events, Event{At: at, Kind: EventNoteOff, Note: int(key)})
			}
		case msg.GetPitchBend(&ch, &rel, &abs):
			if channel < 0 || int(ch) == channel {
				events = append(events, Event{At: at, Kind: EventPitchBend, Bend: int(abs)})
			}
		}
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	return events, nil
}

// EventsDuration returns the time of the last event.
func EventsDuration(events []Event) float64 {
	var end float64
	for _, e := range events {
		if e.At > end {
			end = e.At
		}
	}
	return end
}
