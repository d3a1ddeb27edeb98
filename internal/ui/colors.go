package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
)

// Theme selects a [Palette].
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme maps a stored value to a [Theme], defaulting to dark.
func ParseTheme(value string) Theme {
	if strings.EqualFold(strings.TrimSpace(value), string(ThemeLight)) {
		return ThemeLight
	}
	return ThemeDark
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// LoadTheme reads the persisted theme, falling back to def when nothing is stored.
func LoadTheme(storage models.Storage, def Theme) Theme {
	if storage == nil {
		return def
	}
	value, ok, err := storage.Get(models.ThemeKey)
	if err != nil || !ok {
		return def
	}
	return ParseTheme(value)
}

// SaveTheme persists t under [models.ThemeKey].
func SaveTheme(storage models.Storage, t Theme) error {
	if storage == nil {
		return nil
	}
	return storage.Set(models.ThemeKey, string(t))
}

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	info   lipgloss.Style
	help   lipgloss.Style
	muted  lipgloss.Style
}

// NewPalette returns the stylesheet for theme.
func NewPalette(theme Theme) *Palette {
	if theme == ThemeLight {
		return newPalette("#5B3CC4", "#047857", "#B91C1C", "#B45309", "#1D4ED8", "#6B7280")
	}
	return newPalette("#7D56F4", "#10B981", "#EF4444", "#F59E0B", "#60A5FA", "#626262")
}

func newPalette(t, s, e, w, i, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		info:   NewStyle(i),
		help:   NewEm(h),
		muted:  NewStyle(h),
	}
}

// Toast renders a notification line in the color of its kind.
func (p *Palette) Toast(kind gateway.NoticeKind, message string) string {
	switch kind {
	case gateway.NoticeError:
		return p.err.Render("✗ " + message)
	case gateway.NoticeWarning:
		return p.warn.Render("! " + message)
	case gateway.NoticeSuccess:
		return p.ok.Render("✓ " + message)
	default:
		return p.info.Render("• " + message)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
