package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nocdn/volumes/internal/state"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("volumes", styles.Logo)}

	label := connectionLabel(m.snapshot)
	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● "+label, styles.DangerText))
	case m.snapshot.Loaded:
		parts = append(parts, bg.Render("● "+label, styles.SuccessText))
	default:
		parts = append(parts, bg.Render("○ "+label, styles.WarningText.Bold(true)))
	}

	parts = append(parts,
		bg.Render("Items:", styles.MutedText)+bg.Space()+
			bg.Render(m.countLabel(), styles.Text),
		bg.Render("Search:", styles.MutedText)+bg.Space()+
			bg.Render(string(m.session.SearchMode()), styles.Text),
	)

	if !m.snapshot.LastUpdated.IsZero() && m.width >= LayoutCompactWidth {
		parts = append(parts, bg.Render("Updated "+m.snapshot.LastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// countLabel is the number of rows shown, out of the number of confirmed
// items when a query hides some of them.
func (m Model) countLabel() string {
	shown := 0
	for _, row := range m.rows {
		if !row.IsPending() {
			shown++
		}
	}
	total := len(m.snapshot.Items)
	if strings.TrimSpace(m.input.Value()) == "" || shown >= total {
		return fmt.Sprintf("%d", total)
	}
	return fmt.Sprintf("%d/%d", shown, total)
}

// connectionLabel summarises where the list came from.
func connectionLabel(s state.Snapshot) string {
	switch {
	case s.IsOffline():
		return "OFFLINE " + classifyConnectionError(s.LastError)
	case s.Loaded:
		return "SYNCED"
	case s.Cached:
		return "CACHED"
	case s.LastError != nil:
		return "RETRYING"
	default:
		return "CONNECTING"
	}
}

// classifyConnectionError returns a short description of a connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "(server down)"
	case strings.Contains(msg, "no such host"):
		return "(host not found)"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "(timeout)"
	default:
		return "(error)"
	}
}

// renderInput renders the search / add line.
func (m Model) renderInput() string {
	bg := NewBgStyle(m.theme.Background)
	return bg.FillLine(bg.Space()+m.input.View(), m.width)
}

func (m Model) renderRule() string {
	styles := m.theme.Styles()
	return styles.FaintText.Render(strings.Repeat("─", max(m.width, 0)))
}

// renderFooter renders the command hints, or the latest notice while one
// is showing.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.notice != "" {
		style := styles.MutedText
		if m.noticeErr {
			style = styles.DangerText
		}
		return styles.Footer.Width(m.width).Render(bg.Render(truncate(m.notice, m.width-2), style))
	}

	var hints string
	switch m.mode {
	case modeMenu:
		hints = m.renderHints(bg, styles, [][2]string{{"↑/↓", "Choose"}, {"enter", "Edit"}, {"esc", "Close"}})
	case modeEdit:
		hints = m.renderHints(bg, styles, [][2]string{{"enter", "Save"}, {"esc", "Cancel"}})
	default:
		hints = m.help.View(m.keys)
	}

	theme := bg.Render("ctrl+t", styles.AccentText) + bg.Sep(":") + bg.Render(m.theme.Name, styles.FaintText)
	gap := max(m.width-2-lipgloss.Width(hints)-lipgloss.Width(theme), 2)
	return styles.Footer.Width(m.width).Render(hints + bg.Spaces(gap) + theme)
}

func (m Model) renderHints(bg BgStyle, styles Styles, hints [][2]string) string {
	segments := make([]string, 0, len(hints))
	for _, h := range hints {
		segments = append(segments, bg.Render(h[0], styles.AccentText)+bg.Sep(":")+bg.Render(h[1], styles.MutedText))
	}
	return strings.Join(segments, bg.Spaces(2))
}
