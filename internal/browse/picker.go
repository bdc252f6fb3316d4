package browse

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/slekota/jobwatch/internal/config"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

type pickerModel struct {
	searches []config.SearchConfig
	cursor   int
	chosen   int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.searches)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Pick a search to browse")

	for i, search := range m.searches {
		line := fmt.Sprintf("%s  (%s, %s)", search.Label, search.Kind, search.Mode)
		if i == m.cursor {
			s += "\n" + pickerSelectedStyle.Render("> "+line)
		} else {
			s += "\n" + pickerItemStyle.Render(line)
		}
	}

	s += "\n" + pickerHintStyle.Render("↑/↓ move · enter select · q quit")
	return s + "\n"
}

// pickSearch shows an interactive picker and returns the chosen search, or
// ok=false when the user quit. A single configured search is returned
// directly without a prompt.
func pickSearch(searches []config.SearchConfig) (config.SearchConfig, bool, error) {
	if len(searches) == 1 {
		return searches[0], true, nil
	}

	m := pickerModel{searches: searches, chosen: -1}
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return config.SearchConfig{}, false, fmt.Errorf("running picker: %w", err)
	}

	final := out.(pickerModel)
	if final.chosen < 0 {
		return config.SearchConfig{}, false, nil
	}
	return searches[final.chosen], true, nil
}
