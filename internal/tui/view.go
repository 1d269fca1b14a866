package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/reflow/wordwrap"

	"github.com/askpdf/askpdf/internal/docmodel"
	"github.com/askpdf/askpdf/internal/geometry"
	"github.com/askpdf/askpdf/internal/overlay"
	"github.com/askpdf/askpdf/internal/viewer"
)

func (m *model) View() string {
	switch m.stage {
	case stagePicker:
		return m.viewPicker()
	case stageLoading:
		return m.viewLoading()
	case stageDisplay:
		return m.viewDisplay()
	case stageSearch:
		return m.viewSearch()
	case stageChat:
		return m.viewChat()
	}
	return ""
}

func (m *model) viewPicker() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" askpdf "))
	b.WriteString("\n\n")
	b.WriteString(sectionHeaderStyle.Render("Your documents"))
	b.WriteRune('\n')
	if len(m.documents) == 0 {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), m.infoMessage)))
		b.WriteRune('\n')
	}
	for i, doc := range m.documents {
		cursor := "  "
		if i == m.docCursor {
			cursor = "> "
		}
		row := fmt.Sprintf("%s%s", cursor, doc.Name)
		status := doc.Status
		if status == "" {
			status = "ready"
		}
		row += helperStyle.Render(fmt.Sprintf("  %d pages, %s", doc.PageCount, status))
		if i == m.docCursor {
			row = pickerCursorStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	if m.errorMessage != "" {
		b.WriteString(errorStyle.Render(m.errorMessage))
		b.WriteRune('\n')
	}
	b.WriteString(helperStyle.Render(m.infoMessage))
	return b.String()
}

func (m *model) viewLoading() string {
	return fmt.Sprintf("%s\n\n%s %s", headerStyle.Render(" askpdf "), m.spinner.View(), m.infoMessage)
}

func (m *model) viewDisplay() string {
	m.refreshViewportIfDirty()
	parts := []string{m.headerLine(), m.viewport.View()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	parts = append(parts, helperStyle.Render(m.infoMessage))
	if m.session.HasSelection() {
		parts = append(parts, m.actionBar())
	}
	return strings.Join(parts, "\n")
}

func (m *model) headerLine() string {
	name := m.session.DocID
	for _, doc := range m.documents {
		if doc.ID == m.session.DocID {
			name = doc.Name
			break
		}
	}
	left := fmt.Sprintf(" askpdf  %s", name)
	right := fmt.Sprintf("%.0f%% ", m.session.Surface.Zoom()*100)
	if _, pos, ok := m.session.Search.Active(); ok {
		right = fmt.Sprintf("match %d/%d  %s", pos+1, len(m.session.Search.Matches()), right)
	}
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return headerStyle.Render(left + strings.Repeat(" ", pad) + right)
}

func (m *model) actionBar() string {
	actions := []string{
		keyStyle.Render("h") + " highlight",
		keyStyle.Render("b") + " blue",
		keyStyle.Render("p") + " pink",
		keyStyle.Render("u") + " underline",
		keyStyle.Render("d") + " delete",
		keyStyle.Render("y") + " copy",
		keyStyle.Render("a") + " ask",
	}
	return actionBarStyle.Render(strings.Join(actions, "  "))
}

func (m *model) viewSearch() string {
	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n\n")
	b.WriteString(sectionHeaderStyle.Render("Search document"))
	b.WriteRune('\n')
	b.WriteString(m.searchInput.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Enter to search, Esc to cancel."))
	return b.String()
}

func (m *model) viewChat() string {
	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n\n")
	b.WriteString(sectionHeaderStyle.Render("Ask this document"))
	b.WriteRune('\n')
	wrap := m.width - 4
	if wrap < 30 {
		wrap = 30
	}
	for _, msg := range m.chat {
		switch msg.role {
		case "user":
			b.WriteString(chatUserStyle.Render("you ") + wordwrap.String(msg.text, wrap))
		case "assistant":
			b.WriteString(chatAssistantStyle.Render("doc ") + wordwrap.String(msg.text, wrap))
			for i := range msg.references {
				b.WriteRune('\n')
				b.WriteString(helperStyle.Render(fmt.Sprintf("  [%d] show citation", i+1)))
			}
		default:
			b.WriteString(errorStyle.Render(wordwrap.String(msg.text, wrap)))
		}
		b.WriteString("\n\n")
	}
	if m.chatPending {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s thinking…", m.spinner.View())))
		b.WriteString("\n\n")
	}
	b.WriteString(m.composer.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Enter to send, digits jump to citations, Esc returns to the document."))
	return b.String()
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewportDirty = false
	m.viewport.SetContent(renderStack(m.session))
}

// renderStack draws every page raster with its overlay spans applied,
// separated by blank gap rows, matching the row layout the surface manager
// reports so pointer math and rendering agree.
func renderStack(s *viewer.Session) string {
	pages := s.Surface.Pages()
	if len(pages) == 0 {
		return ""
	}
	var lines []string
	for i, page := range pages {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderPage(s, page)...)
	}
	return strings.Join(lines, "\n")
}

func renderPage(s *viewer.Session, page int) []string {
	meta, ok := s.Surface.Meta(page)
	if !ok {
		return nil
	}
	raster := s.Surface.Raster(page)
	placed := s.Scene.PageSpans(page)

	// Cell style grid: index 0 is the bare page, later spans overwrite.
	styles := []lipgloss.Style{pageStyle}
	grid := make([][]int, meta.Height)
	for i := range grid {
		grid[i] = make([]int, meta.Width)
	}
	for _, ps := range placed {
		styles = append(styles, styleForSpan(ps))
		id := len(styles) - 1
		r0, r1, c0, c1 := spanCells(ps.Span, meta)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				grid[r][c] = id
			}
		}
	}

	lines := make([]string, len(raster))
	for row, text := range raster {
		runes := []rune(text)
		var b strings.Builder
		start := 0
		for col := 1; col <= len(runes); col++ {
			if col == len(runes) || grid[row][col] != grid[row][start] {
				b.WriteString(styles[grid[row][start]].Render(string(runes[start:col])))
				start = col
			}
		}
		lines[row] = b.String()
	}
	return lines
}

// spanCells converts a normalized span to a clamped cell rectangle. A span
// always covers at least one row and one column so thin lines stay visible.
func spanCells(span overlay.Span, meta geometry.PageMeta) (r0, r1, c0, c1 int) {
	r0 = int(span.Top * float64(meta.Height))
	r1 = int((span.Top + span.Height) * float64(meta.Height))
	c0 = int(span.Left * float64(meta.Width))
	c1 = int(span.Right() * float64(meta.Width))
	if r1 > r0 {
		r1--
	}
	if c1 > c0 {
		c1--
	}
	r0, r1 = clamp(r0, meta.Height), clamp(r1, meta.Height)
	c0, c1 = clamp(c0, meta.Width), clamp(c1, meta.Width)
	return r0, r1, c0, c1
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

func styleForSpan(ps overlay.PlacedSpan) lipgloss.Style {
	switch ps.Layer {
	case overlay.LayerAnnotation:
		if ps.Span.Style.Mode == docmodel.ModeUnderline {
			return pageStyle.Copy().Underline(true).Foreground(lipgloss.Color(underlineColor(ps.Span.Style.Color)))
		}
		return pageStyle.Copy().Background(highlightFill(ps.Span.Style.Color))
	case overlay.LayerReference:
		return pageStyle.Copy().Background(referenceFill)
	case overlay.LayerSearch:
		if ps.Span.Style.Color == viewer.StyleActiveMatch {
			return pageStyle.Copy().Background(searchActiveFill)
		}
		return pageStyle.Copy().Background(searchFill)
	case overlay.LayerSelection:
		return pageStyle.Copy().Background(selectionFill)
	}
	return pageStyle
}

const pageBgHex = "#fbfaf4"

// highlightFill blends the annotation color at 35% opacity over the page
// background, matching how a translucent marker reads on paper.
func highlightFill(hex string) lipgloss.Color {
	ink, err := colorful.Hex(hex)
	if err != nil {
		ink, _ = colorful.Hex(viewer.ColorYellow)
	}
	page, _ := colorful.Hex(pageBgHex)
	return lipgloss.Color(ink.BlendRgb(page, 0.65).Hex())
}

func underlineColor(hex string) string {
	if _, err := colorful.Hex(hex); err != nil {
		return viewer.ColorBlue
	}
	return hex
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pickerCursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8ecae6"))
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	actionBarStyle     = lipgloss.NewStyle().Padding(0, 1)
	chatUserStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd166"))
	chatAssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8ecae6"))

	pageStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#26241f")).Background(lipgloss.Color(pageBgHex))
	selectionFill    = lipgloss.Color("#b5d4f5")
	referenceFill    = lipgloss.Color("#c4ecc8")
	searchFill       = lipgloss.Color("#f2e2a0")
	searchActiveFill = lipgloss.Color("#f5b86b")
)
