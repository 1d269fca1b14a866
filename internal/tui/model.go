// Package tui is the terminal front end: a document picker, the page stack
// viewer with mouse selection and annotations, in-document search, and the
// chat panel with citation highlights.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/askpdf/askpdf/internal/backend"
	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/viewer"
	"github.com/askpdf/askpdf/internal/viewstate"
)

// Config wires runtime dependencies into the TUI program.
type Config struct {
	Loader *backend.Loader
	Client *backend.Client
	States *viewstate.Store

	// LocalPDF, when set, opens this file directly through the local
	// geometry fallback instead of showing the picker.
	LocalPDF string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search in document…"
	searchInput.CharLimit = 120
	searchInput.Width = 50

	composer := textinput.New()
	composer.Placeholder = "Ask about this document…"
	composer.CharLimit = 400
	composer.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return &model{
		config:      config,
		stage:       stagePicker,
		session:     viewer.NewSession(),
		searchInput: searchInput,
		composer:    composer,
		spinner:     spin,
		viewport:    vp,
		infoMessage: "Loading your documents…",
	}
}

type stage int

const (
	stagePicker stage = iota
	stageLoading
	stageDisplay
	stageSearch
	stageChat
)

const headerHeight = 1

// matchScrollPad is the viewport margin inside which a match still counts
// as visible, so cycling nearby matches does not jitter the scroll.
const matchScrollPad = 2

type chatMessage struct {
	role       string
	text       string
	references []docmodel.ReferenceRequest
}

type model struct {
	config Config
	stage  stage

	searchInput textinput.Model
	composer    textinput.Model
	spinner     spinner.Model
	viewport    viewport.Model

	session *viewer.Session

	documents []docmodel.Document
	docCursor int

	// openingDocID guards against a slow load finishing after the user
	// has already moved on to another document.
	openingDocID string

	chat        []chatMessage
	chatPending bool

	pendingSync  bool
	syncInFlight bool
	dragActive   bool

	viewportDirty bool
	infoMessage   string
	errorMessage  string
	width         int
	height        int
}

type documentsMsg struct {
	documents []docmodel.Document
	err       error
}

type documentOpenedMsg struct {
	docID string
	data  *backend.DocumentData
	err   error
}

type annotationsSavedMsg struct {
	docID string
	err   error
}

type answerMsg struct {
	docID  string
	answer *backend.Answer
	err    error
}

func (m *model) Init() tea.Cmd {
	if m.config.LocalPDF != "" {
		m.stage = stageLoading
		m.openingDocID = m.config.LocalPDF
		m.infoMessage = "Extracting text from " + m.config.LocalPDF + "…"
		return tea.Batch(m.spinner.Tick, openLocalCmd(m.config.LocalPDF))
	}
	return tea.Batch(m.spinner.Tick, loadDocumentsCmd(m.config.Loader))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.stage == stageLoading || m.stage == stagePicker && len(m.documents) == 0 || m.chatPending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		height := msg.Height - headerHeight - 3
		if height < 5 {
			height = 5
		}
		m.viewport.Height = height
		m.markDirty()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case documentsMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			m.infoMessage = "Press r to retry."
			return m, nil
		}
		m.documents = msg.documents
		m.errorMessage = ""
		if len(m.documents) == 0 {
			m.infoMessage = "No documents yet. Upload one from the web app, then press r."
		} else {
			m.infoMessage = "Pick a document with ↑/↓ and Enter."
		}
		return m, nil

	case documentOpenedMsg:
		if msg.docID != m.openingDocID {
			return m, nil
		}
		if msg.err != nil {
			m.stage = stagePicker
			m.errorMessage = msg.err.Error()
			m.infoMessage = "Opening failed. Pick another document or press r."
			return m, nil
		}
		m.openDocument(msg.docID, msg.data)
		return m, nil

	case annotationsSavedMsg:
		m.syncInFlight = false
		if msg.docID != m.session.DocID {
			return m, nil
		}
		if msg.err != nil {
			// Best effort: the local state stays authoritative.
			m.errorMessage = fmt.Sprintf("annotation sync failed: %v", msg.err)
			return m, nil
		}
		m.errorMessage = ""
		if m.pendingSync {
			return m, m.syncAnnotations()
		}
		return m, nil

	case answerMsg:
		if msg.docID != m.session.DocID {
			return m, nil
		}
		m.chatPending = false
		if msg.err != nil {
			m.chat = append(m.chat, chatMessage{role: "error", text: msg.err.Error()})
		} else {
			m.chat = append(m.chat, chatMessage{
				role:       "assistant",
				text:       msg.answer.Text,
				references: msg.answer.References,
			})
		}
		m.markDirty()
		return m, nil
	}
	return m, nil
}

func (m *model) openDocument(docID string, data *backend.DocumentData) {
	m.session.Open(docID, data.Result, data.Annotations)
	m.stage = stageDisplay
	m.chat = nil
	m.chatPending = false
	m.pendingSync = false
	m.viewport.SetYOffset(0)
	m.errorMessage = ""
	m.infoMessage = "Drag to select words. / searches, ? shows keys."
	m.restoreViewState(docID)
	m.markDirty()
}

func (m *model) restoreViewState(docID string) {
	if m.config.States == nil {
		return
	}
	st, ok, err := m.config.States.Load(docID)
	if err != nil || !ok {
		return
	}
	if st.Zoom > 0 {
		m.session.Surface.SetZoom(st.Zoom)
	}
	m.viewport.SetYOffset(st.ScrollOffset)
}

func (m *model) saveViewState() {
	if m.config.States == nil || m.session.DocID == "" {
		return
	}
	page, _ := m.session.Surface.PageAtOrNearest(m.viewport.YOffset)
	m.config.States.Save(m.session.DocID, viewstate.State{
		Zoom:         m.session.Surface.Zoom(),
		ScrollOffset: m.viewport.YOffset,
		Page:         page,
	})
}

func (m *model) quit() tea.Cmd {
	m.saveViewState()
	if m.config.States != nil {
		if err := m.config.States.Flush(); err != nil {
			logf("flush view state: %v", err)
		}
	}
	if m.config.Loader != nil {
		m.config.Loader.CancelAll()
	}
	return tea.Quit
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stagePicker:
		return m.handlePickerKey(key)
	case stageLoading:
		return m, nil
	case stageDisplay:
		return m.handleDisplayKey(key)
	case stageSearch:
		return m.handleSearchKey(key)
	case stageChat:
		return m.handleChatKey(key)
	}
	return m, nil
}

func (m *model) handlePickerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "q":
		return m, m.quit()
	case "up", "k":
		if m.docCursor > 0 {
			m.docCursor--
		}
	case "down", "j":
		if m.docCursor < len(m.documents)-1 {
			m.docCursor++
		}
	case "r":
		m.infoMessage = "Refreshing document list…"
		return m, tea.Batch(m.spinner.Tick, loadDocumentsCmd(m.config.Loader))
	case "enter":
		if m.docCursor >= len(m.documents) {
			return m, nil
		}
		doc := m.documents[m.docCursor]
		if doc.Status != "" && doc.Status != "ready" {
			m.infoMessage = fmt.Sprintf("%s is still %s.", doc.Name, doc.Status)
			return m, nil
		}
		m.stage = stageLoading
		m.openingDocID = doc.ID
		m.errorMessage = ""
		m.infoMessage = "Opening " + doc.Name + "…"
		return m, tea.Batch(m.spinner.Tick, openDocumentCmd(m.config.Loader, doc.ID))
	}
	return m, nil
}

func (m *model) handleDisplayKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		if m.session.HasSelection() {
			m.session.PointerDown(-1, -1)
			m.markDirty()
			return m, nil
		}
		if m.session.Search.Query() != "" {
			m.session.ClearSearch()
			m.infoMessage = "Search cleared."
			m.markDirty()
			return m, nil
		}
		return m, m.closeDocument()
	case "q":
		return m, m.quit()
	case "h":
		return m, m.annotateSelection(docmodel.ModeHighlight, viewer.ColorYellow)
	case "b":
		return m, m.annotateSelection(docmodel.ModeHighlight, viewer.ColorBlue)
	case "p":
		return m, m.annotateSelection(docmodel.ModeHighlight, viewer.ColorPink)
	case "u":
		return m, m.annotateSelection(docmodel.ModeUnderline, viewer.ColorBlue)
	case "d":
		if !m.session.HasSelection() {
			return m, nil
		}
		needSync := m.session.RemoveAnnotations()
		m.infoMessage = "Annotations removed."
		m.markDirty()
		if needSync {
			return m, m.requestSync()
		}
		return m, nil
	case "y":
		if !m.session.HasSelection() {
			return m, nil
		}
		if err := m.session.CopySelection(); err != nil {
			m.errorMessage = fmt.Sprintf("clipboard: %v", err)
		} else {
			m.infoMessage = "Selection copied."
		}
		return m, nil
	case "a":
		if !m.session.HasSelection() {
			return m, nil
		}
		quote := m.session.SelectedText()
		m.composer.SetValue("\"" + strings.ReplaceAll(quote, "\n", " ") + "\" ")
		m.composer.Focus()
		m.stage = stageChat
		return m, nil
	case "c":
		m.composer.Focus()
		m.stage = stageChat
		return m, nil
	case "/":
		m.stage = stageSearch
		m.searchInput.SetValue(m.session.Search.Query())
		m.searchInput.Focus()
		return m, nil
	case "n":
		m.session.NextMatch()
		m.scrollToActiveMatch()
		m.markDirty()
		return m, nil
	case "N":
		m.session.PrevMatch()
		m.scrollToActiveMatch()
		m.markDirty()
		return m, nil
	case "+", "=":
		if m.session.Surface.ZoomIn() {
			m.infoMessage = fmt.Sprintf("Zoom %.0f%%", m.session.Surface.Zoom()*100)
			m.saveViewState()
			m.markDirty()
		}
		return m, nil
	case "-":
		if m.session.Surface.ZoomOut() {
			m.infoMessage = fmt.Sprintf("Zoom %.0f%%", m.session.Surface.Zoom()*100)
			m.saveViewState()
			m.markDirty()
		}
		return m, nil
	case "g":
		m.viewport.SetYOffset(0)
		m.saveViewState()
		return m, nil
	case "G":
		m.viewport.SetYOffset(m.session.Surface.TotalHeight())
		m.saveViewState()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	m.saveViewState()
	return m, cmd
}

func (m *model) handleSearchKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.stage = stageDisplay
		m.searchInput.Blur()
		return m, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.searchInput.Value())
		m.stage = stageDisplay
		m.searchInput.Blur()
		if query == "" {
			m.session.ClearSearch()
			m.infoMessage = "Search cleared."
		} else if m.session.ApplySearch(query) {
			m.infoMessage = fmt.Sprintf("%d matches. n/N to cycle.", len(m.session.Search.Matches()))
			m.scrollToActiveMatch()
		} else {
			m.infoMessage = fmt.Sprintf("No matches for %q.", query)
		}
		m.markDirty()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(key)
	return m, cmd
}

func (m *model) handleChatKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.stage = stageDisplay
		m.composer.Blur()
		m.markDirty()
		return m, nil
	case tea.KeyEnter:
		question := strings.TrimSpace(m.composer.Value())
		if question == "" {
			return m, nil
		}
		if m.config.Client == nil {
			m.infoMessage = "Chat needs a configured backend."
			m.stage = stageDisplay
			return m, nil
		}
		m.composer.SetValue("")
		m.chat = append(m.chat, chatMessage{role: "user", text: question})
		m.chatPending = true
		return m, tea.Batch(m.spinner.Tick, askCmd(m.config.Client, m.session.DocID, question))
	}
	// Digits activate a citation from the latest assistant answer.
	if len(key.String()) == 1 && key.String() >= "1" && key.String() <= "9" {
		if refs := m.latestReferences(); refs != nil {
			idx := int(key.String()[0] - '1')
			if idx < len(refs) {
				m.session.ShowReferences(refs[idx])
				m.stage = stageDisplay
				m.composer.Blur()
				m.scrollToReference(refs[idx])
				m.infoMessage = "Citation highlighted. Click anywhere to dismiss."
				m.markDirty()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return m, cmd
}

func (m *model) latestReferences() []docmodel.ReferenceRequest {
	for i := len(m.chat) - 1; i >= 0; i-- {
		if m.chat[i].role == "assistant" && len(m.chat[i].references) > 0 {
			return m.chat[i].references
		}
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.stage != stageDisplay {
		return m, nil
	}
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.saveViewState()
		return m, cmd
	}

	x, row, inside := m.contentPosition(msg.X, msg.Y)
	switch msg.Type {
	case tea.MouseLeft:
		if !inside {
			return m, nil
		}
		if m.session.PointerDown(x, row) {
			m.dragActive = true
		} else if m.dragActive {
			// Subsequent MouseLeft events during a drag are motion.
			m.session.PointerMove(x, row)
		}
		m.markDirty()
	case tea.MouseMotion:
		if m.dragActive && inside {
			m.session.PointerMove(x, row)
			m.markDirty()
		}
	case tea.MouseRelease:
		if m.dragActive {
			m.dragActive = false
			if m.session.PointerUp(x, row) {
				m.infoMessage = "h/b/p highlight, u underline, d delete, y copy, a ask"
			}
			m.markDirty()
		}
	}
	return m, nil
}

// contentPosition maps terminal coordinates to stacked-view coordinates.
func (m *model) contentPosition(x, y int) (int, int, bool) {
	row := y - headerHeight + m.viewport.YOffset
	if y < headerHeight || y >= headerHeight+m.viewport.Height {
		return 0, 0, false
	}
	return x, row, true
}

func (m *model) annotateSelection(mode docmodel.Mode, color string) tea.Cmd {
	if !m.session.HasSelection() {
		return nil
	}
	needSync := m.session.Annotate(mode, color)
	if mode == docmodel.ModeUnderline {
		m.infoMessage = "Underlined."
	} else {
		m.infoMessage = "Highlighted."
	}
	m.markDirty()
	if needSync {
		return m.requestSync()
	}
	return nil
}

// requestSync schedules a full-map write-back. Only one PUT runs at a
// time; a change arriving mid-flight marks the state dirty and the next
// save fires when the current one lands.
func (m *model) requestSync() tea.Cmd {
	if m.syncInFlight {
		m.pendingSync = true
		return nil
	}
	return m.syncAnnotations()
}

func (m *model) syncAnnotations() tea.Cmd {
	m.syncInFlight = true
	m.pendingSync = false
	return saveAnnotationsCmd(m.config.Loader, m.session.DocID, m.session.Store.Snapshot())
}

func (m *model) closeDocument() tea.Cmd {
	m.saveViewState()
	m.session.Close()
	m.openingDocID = ""
	m.stage = stagePicker
	m.infoMessage = "Pick a document with ↑/↓ and Enter."
	if m.config.LocalPDF != "" {
		return m.quit()
	}
	return nil
}

// scrollToActiveMatch centers the active match only when it sits outside
// the padded viewport window.
func (m *model) scrollToActiveMatch() {
	row, ok := m.session.ActiveMatchRow()
	if !ok {
		return
	}
	top := m.viewport.YOffset
	if row >= top+matchScrollPad && row < top+m.viewport.Height-matchScrollPad {
		return
	}
	m.centerOnRow(row)
}

func (m *model) scrollToReference(req docmodel.ReferenceRequest) {
	for page, indices := range req.Pages {
		if len(indices) == 0 {
			continue
		}
		rect, ok := m.session.Index().Rect(page, indices[0])
		if !ok {
			continue
		}
		meta, ok := m.session.Surface.Meta(page)
		if !ok {
			continue
		}
		offset, _ := m.session.Surface.Offset(page)
		m.centerOnRow(offset + int(rect.Top*float64(meta.Height)))
		return
	}
}

func (m *model) centerOnRow(row int) {
	target := row - m.viewport.Height/2
	if target < 0 {
		target = 0
	}
	m.viewport.SetYOffset(target)
	m.saveViewState()
}

func (m *model) markDirty() {
	m.viewportDirty = true
}
