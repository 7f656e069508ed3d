package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zpdzap/berth/internal/service"
)

func (m model) View() string {
	if m.quitting || m.next != nil {
		return ""
	}

	var b strings.Builder

	title := "berth"
	stats := statsStyle.Render(m.summary())
	gap := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-4)
	b.WriteString(headerStyle.Width(m.width).Render(title + strings.Repeat(" ", gap) + stats))
	b.WriteString("\n")

	if len(m.services) == 0 {
		b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
		b.WriteString("\n")
		b.WriteString(emptyStyle.Render("No services found under the base directory."))
		b.WriteString("\n\n")
	} else {
		for i, svc := range m.services {
			b.WriteString(m.renderService(i, svc))
			b.WriteString("\n")
		}
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	switch {
	case m.commanding:
		b.WriteString(hotkeysStyle.Render("[enter] execute  [esc] cancel"))
	case m.confirmStop:
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Stop %s? Press x again to confirm, any other key to cancel", m.confirmStopName)))
	default:
		b.WriteString(hotkeysStyle.Render("[↑↓] select  [enter] shell  [l]ogs  [s]tart  [x] stop  [r]estart  [?] help"))
	}
	b.WriteString("\n")

	m.renderStatusAndInput(&b)

	if m.showHelp {
		return m.renderHelpOverlay(b.String())
	}
	return b.String()
}

// summary counts services with at least one running container.
func (m model) summary() string {
	if !m.polled {
		return fmt.Sprintf("%d services", len(m.services))
	}
	up := 0
	for _, svc := range m.services {
		if m.running[svc.Name] > 0 {
			up++
		}
	}
	return fmt.Sprintf("%d/%d up", up, len(m.services))
}

func (m model) renderService(index int, svc service.Service) string {
	cursor := "  "
	nStyle := nameStyle
	if index == m.cursor {
		cursor = "▸ "
		nStyle = selectedNameStyle
	}

	icon, iStyle := m.serviceIcon(svc.Name)
	parts := []string{fmt.Sprintf("  %s%s %s", cursor, iStyle.Render(icon), nStyle.Render(svc.Name))}

	switch {
	case m.busy[svc.Name] != "":
		parts = append(parts, statusOther.Render(strings.ToLower(progressVerbs[m.busy[svc.Name]])+"..."))
	case m.statusErr[svc.Name] != nil:
		parts = append(parts, statusStopped.Render("status unavailable"))
	case m.polled:
		parts = append(parts, countStyle.Render(fmt.Sprintf("%d running", m.running[svc.Name])))
	}

	if names := m.composed[svc.Name]; len(names) > 0 {
		parts = append(parts, composeStyle.Render(strings.Join(names, " ")))
	}

	return strings.Join(parts, "  ")
}

// serviceIcon returns the status icon and style for a service.
func (m model) serviceIcon(name string) (string, lipgloss.Style) {
	switch {
	case m.busy[name] != "":
		return "◍", statusOther
	case !m.polled:
		return "◌", statusOther
	case m.statusErr[name] != nil:
		return "✗", statusStopped
	case m.running[name] > 0:
		return "●", statusRunning
	default:
		return "○", statusStopped
	}
}

func (m model) renderStatusAndInput(b *strings.Builder) {
	if m.message != "" {
		if m.isError {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(messageStyle.Render(m.message))
		}
		b.WriteString("\n")
	}
	if m.commanding {
		b.WriteString("  ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
}

func (m model) renderHelpOverlay(base string) string {
	help := strings.Join([]string{
		helpHeaderStyle.Render("Navigation"),
		helpKeyStyle.Render("  ↑/k  ↓/j") + helpDescStyle.Render("   Select service"),
		helpKeyStyle.Render("  Enter") + helpDescStyle.Render("       Shell into a running container"),
		helpKeyStyle.Render("  l") + helpDescStyle.Render("           Follow logs (Ctrl-C returns)"),
		"",
		helpHeaderStyle.Render("Actions"),
		helpKeyStyle.Render("  s") + helpDescStyle.Render("           Start selected service"),
		helpKeyStyle.Render("  x") + helpDescStyle.Render("           Stop selected service"),
		helpKeyStyle.Render("  r") + helpDescStyle.Render("           Restart selected service"),
		"",
		helpHeaderStyle.Render("Commands"),
		helpKeyStyle.Render("  /") + helpDescStyle.Render("           Open command bar"),
		helpDescStyle.Render("  /start /stop /restart <service>"),
		helpDescStyle.Render("  /shell /logs <service>"),
		"",
		helpKeyStyle.Render("  q") + helpDescStyle.Render("  quit") + "     " + helpKeyStyle.Render("?") + helpDescStyle.Render("  close this help"),
	}, "\n")

	modal := helpStyle.Render(help)

	// Center the modal over the base view
	xOffset := max(0, (m.width-lipgloss.Width(modal))/2)
	yOffset := max(0, (m.height-lipgloss.Height(modal))/2)

	baseLines := strings.Split(base, "\n")
	for len(baseLines) < yOffset+lipgloss.Height(modal) {
		baseLines = append(baseLines, "")
	}
	for i, line := range strings.Split(modal, "\n") {
		row := yOffset + i
		baseLines[row] = strings.Repeat(" ", xOffset) + line +
			strings.Repeat(" ", max(0, m.width-xOffset-lipgloss.Width(line)))
	}

	return strings.Join(baseLines, "\n")
}
