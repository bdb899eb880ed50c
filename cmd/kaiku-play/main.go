// Command kaiku-play loads composition files and either plays them through
// the default audio device or renders them offline to .wav/.raw files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/kaikuaudio/kaiku"
	"github.com/kaikuaudio/kaiku/cmd"
	"github.com/kaikuaudio/kaiku/engine"
	"github.com/kaikuaudio/kaiku/entities"
	"github.com/kaikuaudio/kaiku/oto"
	"github.com/kaikuaudio/kaiku/version"
)

var (
	wavOut      = flag.String("wav", "", "Render the compositions to this .wav file instead of playing them.")
	rawOut      = flag.String("raw", "", "Render the compositions to this .raw file (stereo float32) instead of playing them.")
	nullOut     = flag.Bool("null", false, "Render the compositions and discard the audio; useful with the profiling flags.")
	pcm         = flag.Bool("pcm", false, "Convert exported audio to 16-bit signed PCM.")
	sampleRate  = flag.Int("samplerate", int(kaiku.DefaultSampleRate), "Sample rate to render and play at, in Hz.")
	midiInput   = flag.String("midi-input", "", "Open the first MIDI input whose name starts with this prefix and route it into the composition. An empty prefix opens the first input found.")
	listInputs  = flag.Bool("list", false, "List the available MIDI input devices and exit.")
	quiet       = flag.Bool("quiet", false, "Print only errors.")
	versionFlag = flag.Bool("v", false, "Print version and exit.")
	cpuprofile  = flag.String("cpuprofile", "", "Write cpu profile to file.")
	memprofile  = flag.String("memprofile", "", "Write memory profile to file.")

	audioContext *oto.Context
)

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *listInputs {
		listMidiInputs()
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	files := expandArgs(flag.Args())
	if (*wavOut != "" || *rawOut != "") && len(files) > 1 {
		log.Fatalf("cannot render %v compositions into a single output file", len(files))
	}
	exporting := *wavOut != "" || *rawOut != "" || *nullOut
	if !exporting {
		var err error
		audioContext, err = oto.NewContext(kaiku.SampleRate(*sampleRate))
		if err != nil {
			log.Fatalf("could not open the audio device: %v", err)
		}
	}
	var cpuProfileFile *os.File
	if *cpuprofile != "" {
		var err error
		cpuProfileFile, err = os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("could not create cpu profile: %v", err)
		}
		if err := pprof.StartCPUProfile(cpuProfileFile); err != nil {
			log.Fatalf("could not start cpu profile: %v", err)
		}
	}
	retval := 0
	for _, filename := range files {
		if err := process(filename); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", filename, err)
			retval = 1
		}
	}
	if cpuProfileFile != nil {
		pprof.StopCPUProfile()
		cpuProfileFile.Close()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
		f.Close()
	}
	if audioContext != nil {
		audioContext.Close()
	}
	os.Exit(retval)
}

// expandArgs keeps file arguments as they are and expands directory
// arguments into the composition files they contain.
func expandArgs(args []string) []string {
	var files []string
	for _, param := range args {
		info, err := os.Stat(param)
		if err != nil || !info.IsDir() {
			files = append(files, param)
			continue
		}
		for _, pattern := range []string{"*.yml", "*.yaml", "*.json"} {
			matches, _ := filepath.Glob(filepath.Join(param, pattern))
			files = append(files, matches...)
		}
	}
	return files
}

func process(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read file: %v", err)
	}
	comp, err := kaiku.ReadComposition(data)
	if err != nil {
		return err
	}
	project, err := entities.BuildProject(comp, entities.BuiltIn())
	if err != nil {
		return err
	}
	project.UpdateSampleRate(kaiku.SampleRate(*sampleRate))
	if *wavOut != "" || *rawOut != "" || *nullOut {
		return render(displayName(comp, filename), comp, project)
	}
	return play(displayName(comp, filename), project)
}

func displayName(comp *kaiku.Composition, filename string) string {
	if comp.Name != "" {
		return comp.Name
	}
	return filepath.Base(filename)
}

// render performs the whole composition offline and writes the requested
// output files.
func render(name string, comp *kaiku.Composition, project *engine.Project) error {
	if loops(comp) {
		return fmt.Errorf("%v has looping patterns and would render forever; play it live instead", name)
	}
	if !*quiet {
		log.Printf("rendering %v", name)
	}
	buffer := project.Render()
	if !*quiet {
		log.Printf("rendered %v frames (%.1f s)", len(buffer), float64(len(buffer))/float64(*sampleRate))
	}
	if *wavOut != "" {
		wav, err := buffer.Wav(kaiku.SampleRate(*sampleRate), *pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav: %v", err)
		}
		if err := writeFile(*wavOut, wav); err != nil {
			return err
		}
	}
	if *rawOut != "" {
		raw, err := buffer.Raw(*pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw: %v", err)
		}
		if err := writeFile(*rawOut, raw); err != nil {
			return err
		}
	}
	return nil
}

// loops reports whether any pattern in the composition repeats forever, in
// which case an offline render would never finish.
func loops(comp *kaiku.Composition) bool {
	for _, track := range comp.Tracks {
		for _, entity := range track.Entities {
			if entity.Pattern != nil && entity.Pattern.Loop {
				return true
			}
		}
	}
	return false
}

func writeFile(path string, contents []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", path, err)
	}
	if !*quiet {
		log.Printf("wrote %v", path)
	}
	return nil
}

// play performs the composition through the audio device, with live MIDI
// routed in if requested, until it finishes or the user interrupts.
func play(name string, project *engine.Project) error {
	broker := engine.NewBroker()
	queue := engine.NewAudioQueue(engine.DefaultPeriod)
	player := engine.NewPlayer(broker, project, queue)
	go player.Run()
	defer player.Close()
	meter := engine.NewMeter(broker)
	go meter.Run()
	defer meter.Close()

	midiContext := cmd.NewMidiContext(broker)
	defer midiContext.Close()
	takeFirst := isFlagPassed("midi-input") && *midiInput == ""
	input, err := engine.TryOpenMidiInput(midiContext, *midiInput, takeFirst)
	if err != nil {
		return err
	}
	if input != nil {
		defer input.Close()
		if !*quiet {
			log.Printf("listening to MIDI input %v", input)
		}
	}

	playback := audioContext.Play(engine.NewAudioQueueSource(broker, queue))
	defer playback.Close()
	if !*quiet {
		log.Printf("playing %v", name)
	}
	engine.TrySend(broker.ToPlayer, engine.MsgToPlayer{Data: engine.IsPlayingMsg{IsPlaying: true}})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	started := false
	underruns := 0
	var loudness engine.MeterResult
	hasLoudness := false
	for {
		select {
		case <-ctx.Done():
			if !*quiet {
				log.Printf("interrupted")
			}
			return nil
		case msg := <-broker.ToModel:
			if err, ok := msg.Data.(error); ok {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
			if msg.Underruns > underruns {
				underruns = msg.Underruns
				if !*quiet {
					log.Printf("audio underruns: %v", underruns)
				}
			}
			if msg.HasMeterResult {
				loudness = msg.MeterResult
				hasLoudness = true
			}
			if !msg.HasPosition {
				continue
			}
			if msg.Playing {
				started = true
			} else if started {
				// The ring and the device still hold the last bit of
				// audio; let them drain before tearing the stream down.
				tail := time.Duration(queue.Capacity()) * time.Second / time.Duration(*sampleRate)
				time.Sleep(tail + 100*time.Millisecond)
				if hasLoudness && !*quiet {
					peak := max(loudness.Peaks[engine.PeakIntegrated][0], loudness.Peaks[engine.PeakIntegrated][1])
					log.Printf("done; peak %.1f dB", peak)
				}
				return nil
			}
		}
	}
}

func listMidiInputs() {
	midiContext := cmd.NewMidiContext(engine.NewBroker())
	defer midiContext.Close()
	switch midiContext.Support() {
	case engine.MidiSupportNotCompiled:
		fmt.Println("this build has no MIDI support; rebuild with cgo enabled")
		return
	case engine.MidiSupportNoDriver:
		fmt.Println("no MIDI driver available")
		return
	}
	found := false
	for device := range midiContext.Inputs {
		fmt.Println(device)
		found = true
	}
	if !found {
		fmt.Println("no MIDI inputs found")
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Kaiku command line utility for playing and rendering composition files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
