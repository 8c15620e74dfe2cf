/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sony-level/tfpanel/internal/logbuf"
)

var (
	primaryColor   = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}
	secondaryColor = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	successColor   = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	warningColor   = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	errorColor     = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}

	commandStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(secondaryColor)
	headerStyle  = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Underline(true)
)

// styleLine colours console marker lines; command output passes through unchanged
func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "$ "):
		return commandStyle.Render(line)
	case strings.HasPrefix(line, "✅"):
		return successStyle.Render(line)
	case strings.HasPrefix(line, "❌"):
		return errorStyle.Render(line)
	case strings.HasPrefix(line, "⛔"), strings.HasPrefix(line, "⚠️"):
		return warningStyle.Render(line)
	case strings.HasPrefix(line, "📄"), strings.HasPrefix(line, "🗂️"),
		strings.HasPrefix(line, "Created workspace directory:"),
		strings.HasPrefix(line, "Using existing workspace:"):
		return mutedStyle.Render(line)
	default:
		return line
	}
}

// consolePrinter writes new console lines to a terminal as they arrive
type consolePrinter struct {
	out   io.Writer
	buf   *logbuf.Buffer
	epoch int
	next  uint64
}

// newConsolePrinter starts after the lines already in buf
func newConsolePrinter(out io.Writer, buf *logbuf.Buffer) *consolePrinter {
	chunk := buf.Since(-1, 0)
	return &consolePrinter{out: out, buf: buf, epoch: chunk.Epoch, next: chunk.Next}
}

// flush prints everything appended since the last call
func (p *consolePrinter) flush() {
	chunk := p.buf.Since(p.epoch, p.next)
	p.epoch, p.next = chunk.Epoch, chunk.Next
	for _, line := range chunk.Lines {
		fmt.Fprintln(p.out, styleLine(line))
	}
}

// follow prints lines as they arrive until done is closed
func (p *consolePrinter) follow(done <-chan struct{}) {
	changes, unsubscribe := p.buf.Subscribe()
	defer unsubscribe()

	for {
		p.flush()
		select {
		case <-changes:
		case <-done:
			p.flush()
			return
		}
	}
}
