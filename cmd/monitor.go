// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/devrunner/pkg/devlink"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

var (
	monitorPollSeconds int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for driving an agent",
	Long: `Full-screen monitor for an agent.

The status panel is refreshed by polling get_status. Commands typed in the
input box are sent to the agent and every response is added to the event log.

Keys:
  enter      send the typed command
  pgup/pgdn  scroll the event log
  ctrl+c     quit`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().IntVar(&monitorPollSeconds, "poll", 2, "Seconds between get_status polls (0 disables)")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	client := devlink.NewClient(conn)
	defer client.Close()

	m := initialMonitorModel(client, connInfo, time.Duration(monitorPollSeconds)*time.Second)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Reader: forward response lines to the program
	go func() {
		for line := range client.Lines() {
			p.Send(responseMsg{line: line, at: time.Now()})
		}
		p.Send(connectionLostMsg{err: client.Err()})
	}()

	_, err = p.Run()
	return err
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

const maxMonitorEvents = 200

// lineSender is the part of the client the model needs
type lineSender interface {
	SendLine(command string) error
}

type eventEntry struct {
	timestamp time.Time
	message   string
	kind      eventKind
}

type eventKind int

const (
	eventInfo eventKind = iota
	eventSent
	eventResponse
	eventError
)

type pendingCommand struct {
	line string
	poll bool // sent by the ticker
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	client   lineSender
	connInfo string
	poll     time.Duration

	// Commands awaiting their single response, oldest first
	pending []pendingCommand

	// Last decoded get_status reply
	status     devlink.Status
	params     devlink.ParameterSet
	haveStatus bool
	lastStatus time.Time
	ready      bool

	// Counters
	sent      int
	responses int
	errors    int

	events []eventEntry

	input    textinput.Model
	eventLog viewport.Model

	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type responseMsg struct {
	line string
	at   time.Time
}

type connectionLostMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(client lineSender, connInfo string, poll time.Duration) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "get_status"
	ti.CharLimit = devlink.MaxCommandLen
	ti.Width = 40
	ti.Prompt = "> "
	ti.Focus()

	vp := viewport.New(76, 10)

	return monitorModel{
		client:   client,
		connInfo: connInfo,
		poll:     poll,
		input:    ti,
		eventLog: vp,
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tickCmd())
}

func (m monitorModel) tickCmd() tea.Cmd {
	if m.poll <= 0 {
		return nil
	}
	return tea.Tick(m.poll, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				m.send(line)
			}
			return m, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.eventLog, cmd = m.eventLog.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case monitorTickMsg:
		// Only poll when the link is idle, so replies stay in order
		if !m.connectionLost && len(m.pending) == 0 {
			m.enqueue(devlink.CmdGetStatus, true)
		}
		cmds = append(cmds, m.tickCmd())

	case responseMsg:
		m.handleResponse(msg)

	case connectionLostMsg:
		m.connectionLost = true
		if msg.err != nil {
			m.addEvent(fmt.Sprintf("Connection lost: %v", msg.err), eventError)
		} else {
			m.addEvent("Connection lost", eventError)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	s.WriteString(titleStyle.Render("Devrunner Monitor"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(m.connInfo))
	if m.connectionLost {
		s.WriteString(" ")
		s.WriteString(errorStyle.Render("DISCONNECTED"))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderStatus(labelStyle, valueStyle, headerStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.eventLog.View()))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("enter: send • pgup/pgdn: scroll • ctrl+c: quit"))

	return s.String()
}

//////////////////////////////////////////////////////////////
// Rendering
//////////////////////////////////////////////////////////////

func (m monitorModel) renderStatus(labelStyle, valueStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder

	row := func(label, value string) {
		s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", label)), valueStyle.Render(value)))
	}

	if !m.haveStatus {
		s.WriteString(headerStyle.Render("waiting for status..."))
		s.WriteString("\n")
	} else {
		row("Status", m.status.String())
		row("Param1", fmt.Sprintf("0x%08X (%s)", m.params.Param1, devlink.HeightName(m.params.Param1)))
		row("Param2", fmt.Sprintf("0x%08X", m.params.Param2))
		row("Param3", fmt.Sprintf("0x%08X", m.params.Param3))
		s.WriteString(headerStyle.Render(fmt.Sprintf("updated %s", m.lastStatus.Format("15:04:05"))))
		s.WriteString("\n")
	}

	ready := "no"
	if m.ready {
		ready = "yes"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("ready: %s  sent: %d  responses: %d  errors: %d  pending: %d",
		ready, m.sent, m.responses, m.errors, len(m.pending))))

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Protocol
//////////////////////////////////////////////////////////////

// send writes a user command and logs it
func (m *monitorModel) send(line string) {
	if m.enqueue(line, false) {
		m.addEvent("> "+line, eventSent)
	}
}

// enqueue writes a command and records it as awaiting a response
func (m *monitorModel) enqueue(line string, poll bool) bool {
	if m.connectionLost {
		m.addEvent("Cannot send command: connection lost", eventError)
		return false
	}
	if err := m.client.SendLine(line); err != nil {
		m.addEvent(fmt.Sprintf("Failed to send command: %v", err), eventError)
		return false
	}
	m.pending = append(m.pending, pendingCommand{line: line, poll: poll})
	m.sent++
	return true
}

func (m *monitorModel) handleResponse(msg responseMsg) {
	// READY is unsolicited and pairs with no command
	if msg.line == devlink.RespReady {
		m.ready = true
		m.pending = m.pending[:0]
		m.addEvent("Agent ready", eventInfo)
		return
	}

	m.responses++
	var cmd pendingCommand
	if len(m.pending) > 0 {
		cmd = m.pending[0]
		m.pending = m.pending[1:]
	}

	if status, params, err := devlink.ParseStatusLine(msg.line); err == nil {
		m.status, m.params = status, params
		m.haveStatus = true
		m.lastStatus = msg.at
		// Polls stay out of the log
		if cmd.poll {
			return
		}
	}

	if strings.HasPrefix(msg.line, devlink.PrefixError) {
		m.errors++
		m.addEvent(msg.line, eventError)
		return
	}
	if msg.line == devlink.RespExitOK {
		m.addEvent(msg.line+" (agent stopped)", eventInfo)
		return
	}
	m.addEvent(msg.line, eventResponse)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *monitorModel) addEvent(message string, kind eventKind) {
	m.events = append(m.events, eventEntry{
		timestamp: time.Now(),
		message:   message,
		kind:      kind,
	})
	if len(m.events) > maxMonitorEvents {
		m.events = m.events[len(m.events)-maxMonitorEvents:]
	}
	m.refreshLog()
}

func (m *monitorModel) refreshLog() {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	sentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	var s strings.Builder
	for _, e := range m.events {
		style := lipgloss.NewStyle()
		switch e.kind {
		case eventSent:
			style = sentStyle
		case eventInfo:
			style = infoStyle
		case eventError:
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(e.timestamp.Format("15:04:05.000")), style.Render(e.message)))
	}

	m.eventLog.SetContent(s.String())
	m.eventLog.GotoBottom()
}

func (m *monitorModel) resize() {
	m.eventLog.Width = m.width - 8
	// Title, status box, labels, input and help take about 14 rows
	h := m.height - 14
	if h < 3 {
		h = 3
	}
	m.eventLog.Height = h
	m.input.Width = m.width - 6
}
