//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-guitar/guitar"
	"github.com/cwbudde/algo-guitar/preset"
)

const blockSize = 128

var (
	globalGuitar *guitar.Guitar
	outputBuffer []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmAllNotesOff", js.FuncOf(wasmAllNotesOff))
	js.Global().Set("wasmPitchBend", js.FuncOf(wasmPitchBend))
	js.Global().Set("wasmLoadPreset", js.FuncOf(wasmLoadPreset))
	js.Global().Set("wasmLoadIR", js.FuncOf(wasmLoadIR))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM guitar module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Int()

	g, err := guitar.NewGuitar(sampleRate, 6, guitar.NewDefaultParams())
	if err != nil {
		println("Guitar init failed:", err.Error())
		return nil
	}
	globalGuitar = g
	outputBuffer = make([]float32, blockSize)

	println("Guitar initialized at", sampleRate, "Hz")
	return nil
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalGuitar == nil {
		return nil
	}
	globalGuitar.NoteOn(args[0].Int(), args[1].Int())
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalGuitar == nil {
		return nil
	}
	globalGuitar.NoteOff(args[0].Int())
	return nil
}

func wasmAllNotesOff(this js.Value, args []js.Value) interface{} {
	if globalGuitar != nil {
		globalGuitar.AllNotesOff()
	}
	return nil
}

// wasmPitchBend takes a 14-bit wheel position, 8192 = center.
func wasmPitchBend(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalGuitar == nil {
		return nil
	}
	globalGuitar.PitchBend(args[0].Int())
	return nil
}

// wasmLoadPreset applies a preset JSON string on top of the current params.
// The cabinet path is ignored; use wasmLoadIR.
func wasmLoadPreset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalGuitar == nil {
		return false
	}
	var f preset.File
	if err := json.Unmarshal([]byte(args[0].String()), &f); err != nil {
		println("Preset parse failed:", err.Error())
		return false
	}
	f.CabinetIRWavPath = ""
	p := globalGuitar.Params()
	if err := preset.ApplyFile(p, &f); err != nil {
		println("Preset rejected:", err.Error())
		return false
	}
	if err := globalGuitar.SetParams(p); err != nil {
		println("Preset rejected:", err.Error())
		return false
	}
	return true
}

// wasmLoadIR takes a Float32Array of mono IR samples at the engine rate.
func wasmLoadIR(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalGuitar == nil {
		return false
	}
	arr := args[0]
	n := arr.Get("length").Int()
	if n == 0 {
		println("IR data is empty")
		return false
	}
	ir := make([]float32, n)
	for i := range ir {
		ir[i] = float32(arr.Index(i).Float())
	}
	if err := globalGuitar.SetCabinetIR(ir); err != nil {
		println("IR rejected:", err.Error())
		return false
	}
	println("IR loaded successfully:", n, "samples")
	return true
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalGuitar == nil {
		return 0
	}

	numFrames := args[0].Int()
	if numFrames > blockSize {
		numFrames = blockSize
	}
	if numFrames < 1 {
		return 0
	}
	globalGuitar.ProcessTo(outputBuffer[:numFrames])

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
