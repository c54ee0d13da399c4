// ABOUTME: Entry point wiring a ChunkPipe, a BackendPort, a FilterChain and a controlsrv into a running Worker
// ABOUTME: Flag parsing and SIGINT/SIGTERM shutdown follow the conventional Go daemon shape
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowcast/audioworker/internal/controlsrv"
	"github.com/flowcast/audioworker/internal/worker"
	"github.com/flowcast/audioworker/pkg/audio"
	"github.com/flowcast/audioworker/pkg/backend"
	"github.com/flowcast/audioworker/pkg/chunksource"
	"github.com/flowcast/audioworker/pkg/filter"
)

var (
	name        = flag.String("name", "", "Output name (default: hostname-output)")
	controlAddr = flag.String("control-addr", ":8928", "controlsrv listen address")
	audioFile   = flag.String("audio", "", "MP3 file to play through this output")
	tags        = flag.Bool("tags", true, "Forward track tags to the backend via SendTag")
	outRate     = flag.Int("out-rate", 0, "Force output sample rate (0 = follow input)")
)

func main() {
	flag.Parse()

	outputName := *name
	if outputName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		outputName = fmt.Sprintf("%s-output", hostname)
	}

	if *audioFile == "" {
		log.Fatal("outputworkerd: -audio is required")
	}

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("outputworkerd: %v", err)
	}
	defer f.Close()

	pipe, inFormat, err := chunksource.FromMP3(f, chunksource.DefaultChunkFrames)
	if err != nil {
		log.Fatalf("outputworkerd: %v", err)
	}

	var configFormat audio.Format
	if *outRate > 0 {
		configFormat.SampleRate = *outRate
	}

	be := backend.NewOto(outputName)
	rg := filter.NewScalarReplayGain()
	otherRG := filter.NewScalarReplayGain()
	convertFilter := filter.NewConvert()
	chain := filter.NewChain(rg, convertFilter)

	w := worker.NewWorker(outputName, be, chain, convertFilter, rg, otherRG,
		worker.WithTags(*tags),
		worker.WithConfigAudioFormat(configFormat),
	)
	go w.Run()

	handle := w.Handle()
	handle.SetPipe(pipe)
	handle.SetInAudioFormat(inFormat)

	log.Printf("outputworkerd %q: enabling and opening against %s", outputName, inFormat)
	handle.Post(worker.CmdEnable)
	handle.Post(worker.CmdOpen)
	handle.SetAllowPlay(true)

	srv := controlsrv.New(handle)
	go func() {
		if err := srv.Start(*controlAddr); err != nil {
			log.Printf("outputworkerd %q: controlsrv stopped: %v", outputName, err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go retryLoop(handle)

	sig := <-sigChan
	log.Printf("outputworkerd %q: received %v, shutting down", outputName, sig)
	srv.Stop()
	handle.Post(worker.CmdKill)
}

// retryLoop polls the fail timer and reissues OPEN once the ten-second
// cooldown has elapsed. It never touches the worker's internals directly —
// reopening after a backend failure is a policy decision left entirely to
// the caller.
func retryLoop(handle *worker.Handle) {
	const cooldown = 10 * time.Second
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ft := handle.FailTimer()
		if ft.IsDefined() && ft.Ready(cooldown) {
			handle.Post(worker.CmdOpen)
		}
	}
}
