// Package tui is the terminal frontend: an item list with an add/edit form
// beside a live activity feed, refreshed on a fixed interval.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"itemcrud/internal/activity"
	"itemcrud/internal/client"
	"itemcrud/internal/item"
)

// User-facing error messages. Failures are not distinguished by kind.
const (
	errFetchItems    = "Failed to fetch items"
	errFetchActivity = "Failed to fetch activity log"
	errSaveItem      = "Failed to save item"
	errDeleteItem    = "Failed to delete item"
	errAddComment    = "Failed to add comment"
	errFormRequired  = "Name and Description are required"
	errCommentText   = "Comment text is required"
)

const requestTimeout = 10 * time.Second

// API is the part of the item API the frontend uses.
type API interface {
	ListItems(ctx context.Context) ([]item.Item, error)
	CreateItem(ctx context.Context, in client.ItemInput) (*item.Item, error)
	UpdateItem(ctx context.Context, id string, in client.ItemInput) (*item.Item, error)
	DeleteItem(ctx context.Context, id string) error
	AddComment(ctx context.Context, id, user, text string) (*item.Comment, error)
	ListActivity(ctx context.Context) ([]activity.Entry, error)
}

// ViewMode represents the current TUI view.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewForm
	ViewComment
	ViewConfirmDelete
)

// Form field indexes.
const (
	fieldName = iota
	fieldDescription
	fieldTags
)

// Comment field indexes.
const (
	fieldCommentUser = iota
	fieldCommentText
)

// Model is the main bubbletea model.
type Model struct {
	api      API
	interval time.Duration
	viewMode ViewMode

	items    []item.Item
	activity []activity.Entry // most recent first
	selected int

	// Form state. editingID is empty when adding.
	formInputs []textinput.Model
	focusIndex int
	editingID  string

	err    string
	status string

	width  int
	height int
}

// Messages produced by commands.
type (
	itemsLoadedMsg struct {
		items []item.Item
		err   error
	}
	activityLoadedMsg struct {
		entries []activity.Entry
		err     error
	}
	tickMsg      time.Time
	savedMsg     struct{ err error }
	deletedMsg   struct{ err error }
	commentedMsg struct{ err error }
)

// New creates a model that polls api every interval.
func New(api API, interval time.Duration) Model {
	return Model{
		api:      api,
		interval: interval,
		viewMode: ViewList,
		width:    100,
		height:   30,
	}
}

// Init loads items and activity and starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchItems(), m.fetchActivity(), m.tick())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchActivity(), m.fetchItems(), m.tick())

	case itemsLoadedMsg:
		if msg.err != nil {
			m.err = errFetchItems
			return m, nil
		}
		m.items = msg.items
		m.clampSelection()
		return m, nil

	case activityLoadedMsg:
		if msg.err != nil {
			m.err = errFetchActivity
			return m, nil
		}
		m.activity = newestFirst(msg.entries)
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = errSaveItem
			return m, nil
		}
		m.resetForm()
		m.status = "Saved"
		return m, tea.Batch(m.fetchItems(), m.fetchActivity())

	case deletedMsg:
		m.viewMode = ViewList
		if msg.err != nil {
			m.err = errDeleteItem
			return m, nil
		}
		m.status = "Deleted"
		return m, tea.Batch(m.fetchItems(), m.fetchActivity())

	case commentedMsg:
		if msg.err != nil {
			m.err = errAddComment
			return m, nil
		}
		m.resetForm()
		m.status = "Comment added"
		return m, m.fetchItems()
	}
	return m, nil
}

// View renders the current screen.
func (m Model) View() string {
	var left string
	switch m.viewMode {
	case ViewForm, ViewComment:
		left = m.renderFormView()
	case ViewConfirmDelete:
		left = m.renderConfirmDeleteView()
	default:
		left = m.renderListView()
	}

	half := m.width/2 - 2
	if half < 30 {
		half = 30
	}
	left = lipgloss.NewStyle().Width(half).Render(left)
	right := m.renderActivityView(half)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewForm, ViewComment:
		return m.handleFormKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	default:
		return m.handleListKeys(msg)
	}
}

func (m Model) selectedItem() (item.Item, bool) {
	if m.selected < 0 || m.selected >= len(m.items) {
		return item.Item{}, false
	}
	return m.items[m.selected], true
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.items) {
		m.selected = len(m.items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// newestFirst returns entries in reverse order without touching the input.
func newestFirst(entries []activity.Entry) []activity.Entry {
	out := make([]activity.Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// Commands

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchItems() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		items, err := api.ListItems(ctx)
		return itemsLoadedMsg{items: items, err: err}
	}
}

func (m Model) fetchActivity() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		entries, err := api.ListActivity(ctx)
		return activityLoadedMsg{entries: entries, err: err}
	}
}

func (m Model) saveItem(id string, in client.ItemInput) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var err error
		if id == "" {
			_, err = api.CreateItem(ctx, in)
		} else {
			_, err = api.UpdateItem(ctx, id, in)
		}
		return savedMsg{err: err}
	}
}

func (m Model) deleteItem(id string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deletedMsg{err: api.DeleteItem(ctx, id)}
	}
}

func (m Model) addComment(id, user, text string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := api.AddComment(ctx, id, user, text)
		return commentedMsg{err: err}
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
