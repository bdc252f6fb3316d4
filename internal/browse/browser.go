// Package browse renders the current listings of one tracked search in an
// interactive terminal view. It is read-only: nothing here touches stored
// state, so browsing never suppresses a future notification.
package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/slekota/jobwatch/internal/config"
	"github.com/slekota/jobwatch/internal/model"
)

// Lines per listing in the list view (title + subtitle + blank separator).
const listingItemHeight = 3

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))
)

// Loader fetches the current listings for a search.
type Loader func(ctx context.Context, search config.SearchConfig) ([]model.Listing, error)

type browserModel struct {
	search   config.SearchConfig
	listings []model.Listing
	view     viewport.Model
	cursor   int
	width    int
	height   int
	ready    bool
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view = viewport.New(msg.Width-2, msg.Height-5)
		m.view.SetContent(m.renderListings())
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.listings)-1 {
				m.cursor++
			}
		case "o", "enter":
			if len(m.listings) > 0 {
				openURL(m.listings[m.cursor].URL)
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}

		m.view.SetContent(m.renderListings())
		m.ensureCursorVisible()
	}

	return m, nil
}

func (m browserModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := headerStyle.Render(fmt.Sprintf("%s — %d listings", m.search.Label, len(m.listings)))
	status := statusBarStyle.Width(m.width).Render("↑/↓ move · o open · q quit")
	return header + "\n" + borderStyle.Render(m.view.View()) + "\n" + status
}

func (m browserModel) renderListings() string {
	if len(m.listings) == 0 {
		return subtitleStyle.Render("no listings found")
	}

	var b strings.Builder
	for i, l := range m.listings {
		subtitle := fmt.Sprintf("%s · %s", l.Location, l.ID)
		if i == m.cursor {
			b.WriteString(selectedTitleStyle.Render(" "+l.Title+" ") + "\n")
			b.WriteString(selectedSubtitleStyle.Render(" "+subtitle+" ") + "\n\n")
		} else {
			b.WriteString(titleStyle.Render(l.Title) + "\n")
			b.WriteString(subtitleStyle.Render(subtitle) + "\n\n")
		}
	}
	return b.String()
}

func (m *browserModel) ensureCursorVisible() {
	top := m.cursor * listingItemHeight
	bottom := top + listingItemHeight
	if top < m.view.YOffset {
		m.view.SetYOffset(top)
	} else if bottom > m.view.YOffset+m.view.Height {
		m.view.SetYOffset(bottom - m.view.Height)
	}
}

// Run picks a search (interactively when several are configured), loads its
// current listings, and opens the browser view.
func Run(ctx context.Context, searches []config.SearchConfig, load Loader) error {
	enabled := make([]config.SearchConfig, 0, len(searches))
	for _, s := range searches {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		return fmt.Errorf("no enabled searches to browse")
	}

	search, ok, err := pickSearch(enabled)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	listings, err := load(ctx, search)
	if err != nil {
		return err
	}

	m := browserModel{search: search, listings: listings}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

// openURL opens the URL in the OS default browser. Errors are ignored; the
// URL is still visible in the view.
func openURL(url string) {
	if url == "" {
		return
	}
	switch runtime.GOOS {
	case "darwin":
		exec.Command("open", url).Start()
	case "windows":
		exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		exec.Command("xdg-open", url).Start()
	}
}
