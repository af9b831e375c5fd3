package main

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-guitar/internal/fitcommon"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// midiInput listens on one rtmidi input port.
type midiInput struct {
	drv  *rtmididrv.Driver
	in   drivers.In
	stop func()
}

func listMIDIInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// openMIDIInput opens the first input whose name contains name
// (case-insensitive) and forwards its messages to send.
func openMIDIInput(name string, send func(fitcommon.Event) bool) (*midiInput, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmidi: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI input %q not found", name)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %s: %w", found.String(), err)
	}
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		if e, ok := eventFromMIDI(msg); ok {
			send(e)
		}
	})
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen %s: %w", found.String(), err)
	}
	return &midiInput{drv: drv, in: found, stop: stop}, nil
}

func (m *midiInput) Name() string {
	return m.in.String()
}

func (m *midiInput) Close() {
	m.stop()
	_ = m.in.Close()
	m.drv.Close()
}

func eventFromMIDI(msg midi.Message) (fitcommon.Event, bool) {
	var ch, key, vel uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return fitcommon.Event{Kind: fitcommon.EventNoteOn, Note: int(key), Velocity: int(vel)}, true
	case msg.GetNoteEnd(&ch, &key):
		return fitcommon.Event{Kind: fitcommon.EventNoteOff, Note: int(key)}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return fitcommon.Event{Kind: fitcommon.EventPitchBend, Bend: int(abs)}, true
	}
	return fitcommon.Event{}, false
}
