package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/preset"
	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"
)

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (default: built-in params)")
	model := flag.String("model", "", "String model override: modal|oscillator")
	velocity := flag.Int("velocity", 100, "Velocity for keyboard plucks")
	bufferMS := flag.Int("buffer-ms", 20, "Audio device buffer in milliseconds")
	midiIn := flag.String("midi-in", "", "MIDI input name (substring match); 'list' prints the available inputs")
	flag.Parse()

	if *midiIn == "list" {
		names, err := listMIDIInputs()
		if err != nil {
			die("list MIDI inputs: %v", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	params := guitar.NewDefaultParams()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("load preset %q: %v", *presetPath, err)
		}
		params = p
	}
	if *model != "" {
		params.Model = strings.ToLower(strings.TrimSpace(*model))
	}

	g, err := guitar.NewGuitar(*sampleRate, 0, params)
	if err != nil {
		die("create guitar: %v", err)
	}
	reader := newEngineReader(g, 256)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(*bufferMS) * time.Millisecond,
	})
	if err != nil {
		die("audio device: %v", err)
	}
	<-ready
	player := ctx.NewPlayer(reader)
	player.Play()
	defer player.Close()

	if *midiIn != "" {
		in, err := openMIDIInput(*midiIn, reader.Send)
		if err != nil {
			die("%v", err)
		}
		defer in.Close()
		fmt.Printf("Listening on MIDI input %s\n", in.Name())
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if *midiIn == "" {
			die("stdin is not a terminal; use -midi-in")
		}
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		die("raw terminal: %v", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Print("a s d f g h: pluck strings   0-9: fret   space: strum   , . /: bend   x: release   q: quit\r\n")
	kb := newKeyboard(*velocity)
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		events, quit := kb.Handle(buf[0])
		if quit {
			return
		}
		for _, e := range events {
			if !reader.Send(e) {
				fmt.Print("event queue full, dropped key\r\n")
			}
		}
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
