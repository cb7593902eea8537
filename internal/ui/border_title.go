package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// Panel renders rows inside a rounded border with the title set into the
// top edge. Rows wider than the panel are cut.
func Panel(width int, title string, rows []string) string {
	if width < 4 {
		width = 4
	}
	inner := width - 2
	var b strings.Builder
	b.WriteString(topBorderWithTitle(width, title, panelBorder))
	b.WriteByte('\n')
	for _, row := range rows {
		row = " " + ansi.Truncate(row, inner-2, "…") + " "
		pad := max(0, inner-lipgloss.Width(row))
		b.WriteString(panelBorder.Left + row + strings.Repeat(" ", pad) + panelBorder.Right)
		b.WriteByte('\n')
	}
	b.WriteString(panelBorder.BottomLeft + repeatToWidth(panelBorder.Bottom, inner) + panelBorder.BottomRight)
	return b.String()
}

func topBorderWithTitle(width int, title string, border lipgloss.Border) string {
	if width <= 0 {
		return ""
	}

	left, right, h := border.TopLeft, border.TopRight, border.Top
	fillW := width - lipgloss.Width(left) - lipgloss.Width(right)
	if fillW <= 0 {
		return left + right
	}
	title = strings.TrimSpace(title)
	maxTitleW := fillW - lipgloss.Width(h) - 2
	if title == "" || maxTitleW <= 0 {
		return left + repeatToWidth(h, fillW) + right
	}

	block := h + " " + panelTitleStyle.Render(cutPlain(title, maxTitleW)) + " "
	if lipgloss.Width(block) > fillW {
		// Hard cut: the border must never end in an ellipsis.
		block = ansi.Truncate(block, fillW, "")
	}
	return left + block + repeatToWidth(h, fillW-lipgloss.Width(block)) + right
}

func repeatToWidth(s string, width int) string {
	if width <= 0 || s == "" {
		return ""
	}
	cellW := lipgloss.Width(s)
	if cellW <= 0 {
		return ""
	}
	return cutPlain(strings.Repeat(s, width/cellW+1), width)
}

func cutPlain(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "")
}
