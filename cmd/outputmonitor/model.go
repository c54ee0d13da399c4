// ABOUTME: Bubbletea model for the output monitor TUI
// ABOUTME: Renders the latest snapshot with lipgloss and forwards the four command keys
package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowcast/audioworker/internal/controlsrv"
	"github.com/flowcast/audioworker/internal/worker"
)

type snapshotMsg worker.Snapshot

type disconnectMsg struct{ err error }

type model struct {
	addr     string
	client   *controlsrv.Client
	snap     worker.Snapshot
	got      bool
	err      error
	quitting bool
}

func newModel(addr string, client *controlsrv.Client) model {
	return model{addr: addr, client: client}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "e":
			m.client.Post(worker.CmdEnable)
		case "o":
			m.client.Post(worker.CmdOpen)
		case "c":
			m.client.Post(worker.CmdClose)
		case "p":
			m.client.Post(worker.CmdPause)
		}
	case snapshotMsg:
		m.snap = worker.Snapshot(msg)
		m.got = true
	case disconnectMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Disconnecting...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Output Monitor"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Watching: "))
	b.WriteString(valueStyle.Render(m.addr))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("disconnected: %v", m.err)))
		b.WriteString("\n")
		return b.String()
	}

	if !m.got {
		b.WriteString(valueStyle.Render("waiting for first snapshot..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render("Name: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s [%s]", m.snap.Name, m.snap.ID)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Enabled: "))
	b.WriteString(boolStyle(m.snap.ReallyEnabled, okStyle, warnStyle))
	b.WriteString("   ")

	b.WriteString(headerStyle.Render("Open: "))
	b.WriteString(boolStyle(m.snap.Open, okStyle, warnStyle))
	b.WriteString("   ")

	b.WriteString(headerStyle.Render("Paused: "))
	b.WriteString(boolStyle(m.snap.Pause, okStyle, warnStyle))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("In format: "))
	b.WriteString(valueStyle.Render(m.snap.InAudioFormat.String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Out format: "))
	b.WriteString(valueStyle.Render(m.snap.OutAudioFormat.String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Fail timer: "))
	if m.snap.FailTimerDefined {
		b.WriteString(warnStyle.Render("armed (cooldown pending)"))
	} else {
		b.WriteString(okStyle.Render("clear"))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Pending command: "))
	b.WriteString(valueStyle.Render(m.snap.PendingCommand.String()))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("e enable  o open  c close  p pause  q quit"))
	return b.String()
}

func boolStyle(v bool, ok, warn lipgloss.Style) string {
	if v {
		return ok.Render("yes")
	}
	return warn.Render("no")
}
