// ABOUTME: Entry point for the read-only output monitor TUI
// ABOUTME: Dials a running outputworkerd and drives a bubbletea program off its snapshot stream
package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flowcast/audioworker/internal/controlsrv"
)

var addr = flag.String("addr", "localhost:8928", "controlsrv address of the outputworkerd instance to watch")

func main() {
	flag.Parse()

	client, err := controlsrv.Dial(*addr)
	if err != nil {
		log.Fatalf("outputmonitor: %v", err)
	}
	defer client.Close()

	p := tea.NewProgram(newModel(*addr, client), tea.WithAltScreen())
	go pump(p, client)

	if _, err := p.Run(); err != nil {
		log.Fatalf("outputmonitor: %v", err)
	}
}

// pump relays controlsrv events into bubbletea messages on the program's
// own event loop.
func pump(p *tea.Program, client *controlsrv.Client) {
	for snap := range client.Snapshots {
		p.Send(snapshotMsg(snap))
	}
	if err := client.Err(); err != nil {
		p.Send(disconnectMsg{err: err})
	}
}
