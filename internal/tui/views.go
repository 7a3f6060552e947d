package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"itemcrud/internal/client"
	"itemcrud/internal/item"
)

// List view

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Items"))
	s.WriteString("\n")

	if len(m.items) == 0 {
		s.WriteString(dimStyle.Render("No items yet."))
		s.WriteString("\n")
	}
	for i, it := range m.items {
		if i == m.selected {
			s.WriteString(selectedStyle.Render("> " + it.Name))
		} else {
			s.WriteString("  " + it.Name)
		}
		if len(it.Comments) > 0 {
			s.WriteString(dimStyle.Render(fmt.Sprintf("  (%d comments)", len(it.Comments))))
		}
		s.WriteString("\n")
		if it.Description != nil && *it.Description != "" {
			s.WriteString(dimStyle.Render("    " + *it.Description))
			s.WriteString("\n")
		}
		if len(it.Tags) > 0 {
			s.WriteString(dimStyle.Render("    #" + strings.Join(it.Tags, " #")))
			s.WriteString("\n")
		}
	}

	s.WriteString(m.renderMessages())
	s.WriteString(helpStyle.Render("n: new • e: edit • d: delete • c: comment • r: refresh • q: quit"))
	return s.String()
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.items)-1 {
			m.selected++
		}
	case "r":
		m.err = ""
		return m, tea.Batch(m.fetchItems(), m.fetchActivity())
	case "n":
		m.clearMessages()
		m.editingID = ""
		m.initItemForm("", "", "")
		m.viewMode = ViewForm
	case "e", "enter":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		m.clearMessages()
		m.editingID = it.ID
		desc := ""
		if it.Description != nil {
			desc = *it.Description
		}
		m.initItemForm(it.Name, desc, strings.Join(it.Tags, ", "))
		m.viewMode = ViewForm
	case "d":
		if _, ok := m.selectedItem(); ok {
			m.clearMessages()
			m.viewMode = ViewConfirmDelete
		}
	case "c":
		it, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		m.clearMessages()
		m.editingID = it.ID
		m.initCommentForm()
		m.viewMode = ViewComment
	}
	return m, nil
}

// Form view

func (m Model) renderFormView() string {
	var s strings.Builder

	switch {
	case m.viewMode == ViewComment:
		name := ""
		if it, ok := m.itemByID(m.editingID); ok {
			name = it.Name
		}
		s.WriteString(titleStyle.Render("Comment on " + name))
	case m.editingID != "":
		s.WriteString(titleStyle.Render("Edit Item"))
	default:
		s.WriteString(titleStyle.Render("Add Item"))
	}
	s.WriteString("\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	s.WriteString(m.renderMessages())
	s.WriteString(helpStyle.Render("Tab: next field • Enter: save • Esc: cancel"))
	return s.String()
}

func (m Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.resetForm()
		m.clearMessages()
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex - 1 + len(m.formInputs)) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		m.clearMessages()
		if m.viewMode == ViewComment {
			return m.submitComment()
		}
		return m.submitItem()
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m Model) submitItem() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.formInputs[fieldName].Value())
	desc := strings.TrimSpace(m.formInputs[fieldDescription].Value())
	if name == "" || desc == "" {
		m.err = errFormRequired
		return m, nil
	}
	in := client.ItemInput{
		Name:        name,
		Description: desc,
		Tags:        parseTags(m.formInputs[fieldTags].Value()),
	}
	// Updates replace the whole item, so send back what the form cannot edit.
	if it, ok := m.itemByID(m.editingID); ok {
		details := it.Details
		in.Details = &details
		in.Reviews = it.Reviews
		in.Comments = it.Comments
	}
	return m, m.saveItem(m.editingID, in)
}

// itemByID looks up a loaded item. The list may have been refreshed since
// the form opened, so the selection index is not reliable.
func (m Model) itemByID(id string) (item.Item, bool) {
	if id == "" {
		return item.Item{}, false
	}
	for _, it := range m.items {
		if it.ID == id {
			return it, true
		}
	}
	return item.Item{}, false
}

func (m Model) submitComment() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.formInputs[fieldCommentText].Value())
	if text == "" {
		m.err = errCommentText
		return m, nil
	}
	user := strings.TrimSpace(m.formInputs[fieldCommentUser].Value())
	return m, m.addComment(m.editingID, user, text)
}

func (m *Model) initItemForm(name, desc, tags string) {
	inputs := make([]textinput.Model, 3)

	inputs[fieldName] = textinput.New()
	inputs[fieldName].Placeholder = "Name"
	inputs[fieldName].CharLimit = 200
	inputs[fieldName].SetValue(name)

	inputs[fieldDescription] = textinput.New()
	inputs[fieldDescription].Placeholder = "Description"
	inputs[fieldDescription].CharLimit = 1000
	inputs[fieldDescription].SetValue(desc)

	inputs[fieldTags] = textinput.New()
	inputs[fieldTags].Placeholder = "Tags (comma separated)"
	inputs[fieldTags].CharLimit = 500
	inputs[fieldTags].SetValue(tags)

	m.formInputs = inputs
	m.focusIndex = fieldName
	m.updateFormFocus()
}

func (m *Model) initCommentForm() {
	inputs := make([]textinput.Model, 2)

	inputs[fieldCommentUser] = textinput.New()
	inputs[fieldCommentUser].Placeholder = "Your name (optional)"
	inputs[fieldCommentUser].CharLimit = 100

	inputs[fieldCommentText] = textinput.New()
	inputs[fieldCommentText].Placeholder = "Comment"
	inputs[fieldCommentText].CharLimit = 1000

	m.formInputs = inputs
	m.focusIndex = fieldCommentText
	m.updateFormFocus()
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

func (m *Model) resetForm() {
	m.formInputs = nil
	m.focusIndex = 0
	m.editingID = ""
	m.viewMode = ViewList
}

// Delete confirmation

func (m Model) renderConfirmDeleteView() string {
	it, _ := m.selectedItem()
	var s strings.Builder
	s.WriteString(titleStyle.Render("Delete Item"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Delete %q? This cannot be undone.\n", it.Name))
	s.WriteString(helpStyle.Render("y: delete • n/Esc: cancel"))
	return s.String()
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		it, ok := m.selectedItem()
		if !ok {
			m.viewMode = ViewList
			return m, nil
		}
		return m, m.deleteItem(it.ID)
	case "n", "N", "esc":
		m.viewMode = ViewList
	}
	return m, nil
}

// Activity log

func (m Model) renderActivityView(width int) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("CRUD Activity Log"))
	s.WriteString("\n")

	var body strings.Builder
	if len(m.activity) == 0 {
		body.WriteString("No activity yet.")
	}
	// Leave room for the title, border and help line.
	limit := (m.height - 6) / 4
	if limit < 1 {
		limit = 1
	}
	for i, e := range m.activity {
		if i >= limit {
			body.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(m.activity)-limit)))
			break
		}
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(selectedStyle.Render(string(e.Action)))
		body.WriteString(" - " + formatTimestamp(e.Timestamp) + "\n")
		if e.Item != nil {
			body.WriteString("Name: " + e.Item.Name + "\n")
			desc := ""
			if e.Item.Description != nil {
				desc = *e.Item.Description
			}
			body.WriteString("Description: " + desc + "\n")
		}
	}

	s.WriteString(logBoxStyle.Width(width).Render(strings.TrimRight(body.String(), "\n")))
	return s.String()
}

// formatTimestamp renders an RFC 3339 timestamp in local time, or the raw
// string when it does not parse.
func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Helpers

func (m Model) renderMessages() string {
	var s strings.Builder
	if m.err != "" {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(m.err))
		s.WriteString("\n")
	} else if m.status != "" {
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	return s.String()
}

func (m *Model) clearMessages() {
	m.err = ""
	m.status = ""
}

// parseTags splits a comma-separated list, dropping blanks.
func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
