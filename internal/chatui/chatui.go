// Package chatui is the interactive terminal client for the sync engine:
// a conversation list, a message timeline with optimistic send, and a
// notification center, all driven by the engine's state.
package chatui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haggle-app/syncengine/internal/engine"
	"github.com/haggle-app/syncengine/internal/models"
)

const (
	defaultRefreshInterval = 500 * time.Millisecond
	statusTTL              = 4 * time.Second
)

// Config controls chat TUI behavior.
type Config struct {
	RefreshInterval time.Duration
	ShowTimestamps  bool
}

// Run starts the chat TUI against a started engine.
func Run(eng *engine.Engine, cfg Config) error {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}

	program := tea.NewProgram(newModel(eng, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type uiView int

const (
	viewConversations uiView = iota
	viewTimeline
	viewNotifications
)

type tickMsg time.Time

type sendDoneMsg struct {
	err error
}

type retryDoneMsg struct {
	err error
}

type notificationsMsg struct {
	notes []models.Notification
	err   error
}

type actionDoneMsg struct {
	status string
	err    error
}

type model struct {
	eng *engine.Engine
	cfg Config

	view   uiView
	cursor int

	conversations []models.ConversationSummary
	timeline      *engine.Timeline
	entries       []models.TimelineEntry
	notifications []models.Notification
	unread        models.UnreadCounts

	input string

	status      string
	statusIsErr bool
	statusAt    time.Time

	width  int
	height int
}

func newModel(eng *engine.Engine, cfg Config) model {
	return model{
		eng:           eng,
		cfg:           cfg,
		view:          viewConversations,
		conversations: eng.Conversations().Conversations(),
		unread:        eng.Unread().Counts(),
	}
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.conversations = m.eng.Conversations().Conversations()
		m.unread = m.eng.Unread().Counts()
		if m.timeline != nil {
			m.entries = m.timeline.Entries()
		}
		if !m.statusAt.IsZero() && time.Since(m.statusAt) > statusTTL {
			m.status = ""
		}
		return m, m.tick()

	case sendDoneMsg:
		if msg.err != nil {
			m.setStatus("send failed, press ctrl+r to retry", true)
		}
		if m.timeline != nil {
			m.entries = m.timeline.Entries()
		}
		return m, nil

	case retryDoneMsg:
		if msg.err != nil {
			m.setStatus("retry failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("retried", false)
		}
		if m.timeline != nil {
			m.entries = m.timeline.Entries()
		}
		return m, nil

	case notificationsMsg:
		if msg.err != nil {
			m.setStatus("failed to load notifications: "+msg.err.Error(), true)
			return m, nil
		}
		m.notifications = msg.notes
		m.view = viewNotifications
		m.cursor = 0
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setStatus(msg.status+" failed: "+msg.err.Error(), true)
		} else if msg.status != "" {
			m.setStatus(msg.status, false)
		}
		return m, m.loadNotifications()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case viewTimeline:
		return m.handleTimelineKey(msg)
	case viewNotifications:
		return m.handleNotificationsKey(msg)
	default:
		return m.handleConversationsKey(msg)
	}
}

func (m model) handleConversationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.conversations)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.conversations) {
			return m.openTimeline(m.conversations[m.cursor].ID)
		}
	case "n":
		return m, m.loadNotifications()
	case "r":
		m.eng.FocusMessages(context.Background())
		m.setStatus("refreshed", false)
	}
	return m, nil
}

func (m model) handleTimelineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		return m.closeTimeline()
	case "enter":
		content := strings.TrimSpace(m.input)
		if content == "" {
			return m, nil
		}
		m.input = ""
		timeline := m.timeline
		return m, func() tea.Msg {
			_, err := timeline.Send(content)
			return sendDoneMsg{err: err}
		}
	case "ctrl+r":
		return m.retryLastFailed()
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

func (m model) handleNotificationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = viewConversations
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.notifications)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.notifications) {
			id := m.notifications[m.cursor].ID
			eng := m.eng
			return m, func() tea.Msg {
				err := eng.MarkNotificationRead(context.Background(), id)
				return actionDoneMsg{status: "marked read", err: err}
			}
		}
	case "a":
		eng := m.eng
		return m, func() tea.Msg {
			err := eng.MarkAllNotificationsRead(context.Background())
			return actionDoneMsg{status: "all marked read", err: err}
		}
	case "d":
		if m.cursor < len(m.notifications) {
			id := m.notifications[m.cursor].ID
			eng := m.eng
			return m, func() tea.Msg {
				err := eng.DeleteNotification(context.Background(), id)
				return actionDoneMsg{status: "deleted", err: err}
			}
		}
	}
	return m, nil
}

func (m model) openTimeline(conversationID string) (tea.Model, tea.Cmd) {
	timeline, err := m.eng.OpenTimeline(conversationID)
	if err != nil {
		m.setStatus("failed to open conversation: "+err.Error(), true)
		return m, nil
	}
	m.timeline = timeline
	m.entries = timeline.Entries()
	m.view = viewTimeline
	m.input = ""
	return m, nil
}

func (m model) closeTimeline() (tea.Model, tea.Cmd) {
	if m.timeline != nil {
		m.timeline.Close()
		m.timeline = nil
	}
	m.entries = nil
	m.view = viewConversations
	m.eng.FocusMessages(context.Background())
	m.conversations = m.eng.Conversations().Conversations()
	return m, nil
}

func (m model) retryLastFailed() (tea.Model, tea.Cmd) {
	if m.timeline == nil {
		return m, nil
	}
	entries := m.timeline.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Status == models.StatusFailed {
			timeline := m.timeline
			localID := entries[i].LocalID
			return m, func() tea.Msg {
				return retryDoneMsg{err: timeline.Retry(localID)}
			}
		}
	}
	m.setStatus("nothing to retry", false)
	return m, nil
}

func (m model) loadNotifications() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		notes, err := eng.ListNotifications(context.Background())
		return notificationsMsg{notes: notes, err: err}
	}
}

func (m *model) setStatus(status string, isErr bool) {
	m.status = status
	m.statusIsErr = isErr
	m.statusAt = time.Now()
}
