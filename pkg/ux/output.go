// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux styles microbench terminal output.
//
// Styled output is used only when the destination is a terminal and
// NO_COLOR is unset. Table rows are never padded or truncated here; they
// keep the fixed widths the report package gives them.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorSlate       = lipgloss.Color("#2C4A54")
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// Styles holds the reusable styles.
var Styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// Icon is a status marker.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Printer writes plain or styled lines to one destination.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter returns a Printer for w. Output is styled when w is a terminal
// and NO_COLOR is unset.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styled: IsTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// NewPlainPrinter returns a Printer that never styles.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Styled reports whether the printer emits ANSI styling.
func (p *Printer) Styled() bool {
	return p.styled
}

func (p *Printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

// Title prints a section title.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.render(Styles.Title, text))
}

// Success prints text after a check mark.
func (p *Printer) Success(text string) {
	p.status(IconSuccess, Styles.Success, text)
}

// Warning prints text after a warning sign.
func (p *Printer) Warning(text string) {
	p.status(IconWarning, Styles.Warning, text)
}

// Error prints text after a cross.
func (p *Printer) Error(text string) {
	p.status(IconError, Styles.Error, text)
}

// Bullet prints one list item with an optional muted description.
func (p *Printer) Bullet(item, description string) {
	line := string(IconBullet) + " " + item
	if description != "" {
		line += "  " + p.render(Styles.Muted, description)
	}
	fmt.Fprintln(p.w, line)
}

func (p *Printer) status(icon Icon, style lipgloss.Style, text string) {
	if !p.styled {
		fmt.Fprintf(p.w, "%s %s\n", icon, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", style.Render(string(icon)), style.Render(text))
}

// Table returns a line sink that joins columns with a space. The first
// line is styled as a header and rule lines are muted.
func (p *Printer) Table() func(columns ...string) {
	row := 0
	return func(columns ...string) {
		line := strings.Join(columns, " ")
		switch {
		case row == 0:
			line = p.render(Styles.Header, line)
		case isRule(line):
			line = p.render(Styles.Muted, line)
		}
		row++
		fmt.Fprintln(p.w, line)
	}
}

func isRule(line string) bool {
	return strings.Trim(line, "- ") == "" && strings.Contains(line, "-")
}
