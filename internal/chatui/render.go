package chatui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haggle-app/syncengine/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("161")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")).
			Bold(true)

	ownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	statusOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35"))

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.view {
	case viewTimeline:
		b.WriteString(m.renderTimeline())
	case viewNotifications:
		b.WriteString(m.renderNotifications())
	default:
		b.WriteString(m.renderConversations())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

func (m model) renderHeader() string {
	title := titleStyle.Render("haggle chat")

	unread := m.unread
	badge := ""
	if unread.Total() > 0 {
		badge = " " + badgeStyle.Render(fmt.Sprintf("%d unread (%d msg / %d notif)",
			unread.Total(), unread.Messages, unread.Notifications))
	}

	return title + badge
}

func (m model) renderConversations() string {
	if len(m.conversations) == 0 {
		return dimStyle.Render("  no conversations yet")
	}

	var b strings.Builder
	for i, conv := range m.conversations {
		line := conv.Preview
		if conv.IsImagePreview() {
			line = "[image]"
		}
		if line == "" {
			line = dimStyle.Render("(no messages)")
		}

		other := conv.Other(m.eng.PrincipalID())
		row := fmt.Sprintf("%s  %s", other, line)
		if conv.UnreadCount > 0 {
			row += " " + badgeStyle.Render(fmt.Sprintf("%d", conv.UnreadCount))
		}

		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  enter open · n notifications · r refresh · q quit"))
	return b.String()
}

func (m model) renderTimeline() string {
	var b strings.Builder

	if len(m.entries) == 0 {
		b.WriteString(dimStyle.Render("  no messages yet"))
		b.WriteString("\n")
	}

	for _, entry := range m.entries {
		b.WriteString("  " + m.renderEntry(entry))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputStyle.Render(m.input + "█"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  enter send · ctrl+r retry failed · esc back"))
	return b.String()
}

func (m model) renderEntry(entry models.TimelineEntry) string {
	content := entry.Message.Content
	if entry.Message.IsImage() {
		content = "[image] " + entry.Message.ImageURL()
	}

	sender := entry.Message.SenderID
	own := sender == m.eng.PrincipalID()
	if own {
		sender = "you"
	}

	line := fmt.Sprintf("%s: %s", sender, content)
	if m.cfg.ShowTimestamps && !entry.Message.CreatedAt.IsZero() {
		line = dimStyle.Render(entry.Message.CreatedAt.Local().Format("15:04")) + " " + line
	}

	switch entry.Status {
	case models.StatusPending:
		return pendingStyle.Render(line + " …")
	case models.StatusFailed:
		return failedStyle.Render(line + " ✗ (ctrl+r to retry)")
	default:
		if own {
			return ownStyle.Render(line)
		}
		return line
	}
}

func (m model) renderNotifications() string {
	if len(m.notifications) == 0 {
		return dimStyle.Render("  no notifications")
	}

	var b strings.Builder
	for i, note := range m.notifications {
		row := fmt.Sprintf("[%s] %s", note.Type, note.Title)
		if note.Body != "" {
			row += dimStyle.Render(" · " + note.Body)
		}
		if !note.Read {
			row = badgeStyle.Render("●") + " " + row
		} else {
			row = "  " + row
		}

		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  enter mark read · a mark all · d delete · esc back"))
	return b.String()
}

func (m model) renderStatusBar() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsErr {
		return statusErrStyle.Render("  " + m.status)
	}
	return statusOKStyle.Render("  " + m.status)
}
