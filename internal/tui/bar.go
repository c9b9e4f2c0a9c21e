package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/newsdesk/internal/config"
)

// categoryBar is the row of news categories above the breaking list.
type categoryBar struct {
	categories []string
	cursor     int
}

func newCategoryBar(active string) categoryBar {
	c := categoryBar{categories: config.Categories()}
	c.set(active)
	return c
}

func (c *categoryBar) current() string {
	return c.categories[c.cursor]
}

func (c *categoryBar) set(category string) bool {
	for i, cat := range c.categories {
		if strings.EqualFold(cat, category) {
			c.cursor = i
			return true
		}
	}
	return false
}

// move shifts the selection by delta, wrapping at both ends.
func (c *categoryBar) move(delta int) {
	n := len(c.categories)
	c.cursor = ((c.cursor+delta)%n + n) % n
}

// pick selects the category numbered n, counting from one.
func (c *categoryBar) pick(n int) bool {
	if n < 1 || n > len(c.categories) {
		return false
	}
	c.cursor = n - 1
	return true
}

func (c *categoryBar) render(width int) string {
	labels := make([]string, len(c.categories))
	for i, cat := range c.categories {
		labels[i] = fmt.Sprintf("%d %s", i+1, config.CategoryLabel(cat))
	}
	return renderTabRow(labels, c.cursor, width)
}

func renderTabRow(labels []string, active, width int) string {
	sep := tabSeparatorStyle.Render(" · ")

	// Build row with · separators, stopping when we'd exceed width
	var row string
	for i, label := range labels {
		style := tabInactiveStyle
		if i == active {
			style = tabActiveStyle
		}
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += style.Render(label)
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}

func renderStatusBar(left, hints string, width int) string {
	right := " " + hints + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

// flagEmoji turns a two-letter country code into its regional-indicator
// flag. Anything else yields "".
func flagEmoji(code string) string {
	if len(code) != 2 {
		return ""
	}
	code = strings.ToUpper(code)
	var b strings.Builder
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}
