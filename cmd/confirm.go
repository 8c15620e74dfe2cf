/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}).
	Bold(true).
	Padding(0, 2)

// confirmApply asks before terraform changes real infrastructure.
// Anything but an explicit yes, including a closed stdin, declines.
func confirmApply(in io.Reader, out io.Writer, workspace, command string) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, bannerStyle.Render("APPLY CHANGES"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Workspace: %s\n", workspace)
	fmt.Fprintf(out, "  Command:   %s\n", command)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  terraform will create, change or destroy resources without a further prompt.")
	fmt.Fprint(out, "  Continue? [y/N]: ")

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, mutedStyle.Render("  -> No answer, aborting"))
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		fmt.Fprintln(out, mutedStyle.Render("  -> Aborted by user"))
		return false
	}
}
