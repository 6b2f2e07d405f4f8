package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/state"
)

// renderList renders the visible rows, the edit menu under its row, and
// blank filler down to the footer.
func (m Model) renderList() string {
	total := max(m.height-chromeHeight, 1)
	h := m.listHeight()
	lines := make([]string, 0, total)

	if len(m.rows) == 0 {
		lines = append(lines, m.renderEmpty())
	}

	end := min(m.offset+h, len(m.rows))
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.cursor.Index()))
		if i == m.cursor.MenuRow() {
			if m.mode == modeEdit {
				lines = append(lines, m.renderEditLine())
			} else {
				lines = append(lines, m.renderMenu()...)
			}
		}
	}

	bg := NewBgStyle(m.theme.Background)
	for len(lines) < total {
		lines = append(lines, bg.FillLine("", m.width))
	}
	return strings.Join(lines[:total], "\n")
}

func (m Model) renderEmpty() string {
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles()

	var msg string
	switch {
	case !m.snapshot.Ready() && m.snapshot.LastError == nil:
		msg = "Loading bookmarks..."
	case !m.snapshot.Ready():
		msg = "Cannot reach the collection server, retrying..."
	case strings.TrimSpace(m.input.Value()) != "":
		msg = "No matches"
	default:
		msg = "No bookmarks yet. Paste a URL above to add one."
	}
	return bg.FillLine(bg.Spaces(2)+bg.Render(msg, styles.MutedText), m.width)
}

// renderRow formats one bookmark as
// "• Title  host.example/  #tag #tag  detail   Mar 9".
// Selected rows use SelectionText for every segment to keep contrast.
func (m Model) renderRow(row state.Row, selected bool) string {
	bgColor := m.theme.Background
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	marker := m.rowMarker(row, styles, bg)
	title, placeholder := rowTitle(row)
	detail, detailStyle := rowDetail(row, m.width >= LayoutWideWidth, styles)

	titleStyle := styles.Text
	if placeholder {
		titleStyle = styles.MutedText.Italic(true)
	}
	urlStyle, tagStyle := styles.MutedText, styles.AccentText

	var tags, date string
	if m.width >= LayoutCompactWidth {
		tags = formatTags(row.Item.Tags)
		date = bookmark.FormatDate(row.Item.CreatedAt)
	}

	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		titleStyle, urlStyle, tagStyle = selText.Bold(true), selText, selText
		if !row.IsPending() || row.Pending.State != bookmark.PendingFailed {
			detailStyle = selText
		}
	}

	// Space left for the segments between the marker and the date.
	avail := m.width - 4 - lipgloss.Width(marker)
	if date != "" {
		avail -= len(date) + 2
	}

	segments := []struct {
		text  string
		style lipgloss.Style
		limit int
	}{
		{title, titleStyle, max(avail/2, 12)},
		{bookmark.DisplayURL(row.Item.URL), urlStyle, 0},
		{tags, tagStyle, 0},
		{detail, detailStyle, 0},
	}

	var parts []string
	remaining := avail
	for _, seg := range segments {
		if seg.text == "" || remaining <= 0 {
			continue
		}
		limit := remaining
		if seg.limit > 0 && seg.limit < limit {
			limit = seg.limit
		}
		text := truncate(seg.text, limit)
		parts = append(parts, bg.Render(text, seg.style))
		remaining -= lipgloss.Width(text) + 2
	}

	left := bg.Space() + marker + bg.Space() + strings.Join(parts, bg.Spaces(2))
	if date == "" {
		return bg.FillLine(left, m.width)
	}
	gap := max(m.width-lipgloss.Width(left)-len(date)-1, 2)
	return bg.FillLine(left+bg.Spaces(gap)+bg.Render(date, styles.FaintText), m.width)
}

// rowMarker renders the glyph in front of a row: a spinner while a
// creation is in flight, a check once acknowledged, ! when it failed.
func (m Model) rowMarker(row state.Row, styles Styles, bg BgStyle) string {
	if !row.IsPending() {
		return bg.Render("•", styles.FaintText)
	}
	st := row.Pending.State
	switch st {
	case bookmark.PendingFailed:
		return bg.Render("!", styles.StateStyle(st.String()).Bold(true))
	case bookmark.PendingConfirmed:
		return bg.Render("✓", styles.StateStyle(st.String()))
	default:
		return m.spinner.View()
	}
}

// rowTitle returns the title to show and whether it is a stand-in for a
// title that has not been resolved yet.
func rowTitle(row state.Row) (string, bool) {
	if row.IsPending() && row.Pending.Title == "" {
		return "Fetching title...", true
	}
	if strings.TrimSpace(row.Item.Title) == "" {
		return bookmark.FallbackTitle, true
	}
	return row.Item.Title, false
}

// rowDetail is the trailing note: creation progress for placeholders, the
// comment for confirmed rows on wide terminals.
func rowDetail(row state.Row, wide bool, styles Styles) (string, lipgloss.Style) {
	if row.IsPending() {
		p := row.Pending
		style := styles.StateStyle(p.State.String())
		switch p.State {
		case bookmark.PendingExtracting:
			return "fetching title", style
		case bookmark.PendingSaving:
			return "saving", style
		case bookmark.PendingConfirmed:
			return "saved", style
		case bookmark.PendingFailed:
			if p.LastError != "" {
				return "failed: " + p.LastError, styles.DangerText
			}
			return "failed", styles.DangerText
		}
	}
	if wide && row.Item.Comment != "" {
		return "// " + row.Item.Comment, styles.FaintText
	}
	return "", styles.FaintText
}

// renderMenu renders the per-item edit menu, one entry per editable field.
func (m Model) renderMenu() []string {
	bg := NewBgStyle(m.theme.SurfaceAlt)
	styles := m.theme.Styles()

	lines := make([]string, 0, len(bookmark.EditableFields))
	for i, field := range bookmark.EditableFields {
		var entry string
		if i == m.cursor.MenuIndex() {
			entry = bg.Render("› "+field.Label(), styles.AccentText.Bold(true))
		} else {
			entry = bg.Spaces(2) + bg.Render(field.Label(), styles.MutedText)
		}
		lines = append(lines, bg.FillLine(bg.Spaces(4)+entry, m.width))
	}
	return lines
}

// renderEditLine renders the field editor under the row being edited.
func (m Model) renderEditLine() string {
	bg := NewBgStyle(m.theme.SurfaceAlt)
	styles := m.theme.Styles()
	label := bg.Render(m.editField.Label()+":", styles.WarningText)
	return bg.FillLine(bg.Spaces(4)+label+bg.Space()+m.editInput.View(), m.width)
}
