package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mcampolo/reeldeck/internal/library"
	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/repositories"
	"github.com/mcampolo/reeldeck/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	ArrangeView
	SaveView
	ResultView
)

// itemRowHeight is the number of terminal rows one list entry occupies with
// the default delegate (two content lines plus one spacing line).
const itemRowHeight = 3

// listTopOffset is the rows consumed by the list title and its margin before
// the first item row.
const listTopOffset = 2

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	engine   *tasks.LibraryEngine
	reels    *repositories.ReelRepository
	resolver *library.Resolver
	folder   string
	title    string

	width  int
	height int

	sourceList list.Model
	targetList list.Model
	focused    library.Collection

	dragPath string
	dragFrom library.Collection

	progressChan chan tasks.ProgressUpdate
	doneChan     <-chan error
	progress     tasks.ProgressUpdate
	reconciling  bool

	saved  *models.Reel
	status string
	err    error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// The reel repository may be nil, in which case saving is disabled.
func NewModel(ctx context.Context, engine *tasks.LibraryEngine, reels *repositories.ReelRepository, folder, title string) *Model {
	return &Model{
		ctx:      ctx,
		view:     LoadingView,
		engine:   engine,
		reels:    reels,
		resolver: library.NewResolver(),
		folder:   folder,
		title:    title,
		focused:  library.Source,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the folder load; verification follows in the background.
func (m *Model) Init() tea.Cmd {
	return m.loadFolder()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ArrangeView:
			return m.handleArrangeKeys(msg)
		case SaveView:
			return m.handleSaveKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		default:
			if msg.String() == "q" || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		}
		return m, nil

	case tea.MouseMsg:
		if m.view == ArrangeView {
			return m.handleMouse(msg)
		}
		return m, nil

	case catalogLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.view = ArrangeView
		m.reconciling = true
		m.rebuildLists()
		return m, tea.Batch(m.waitForProgress(), m.waitForDone())

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		// Verdicts and durations land in the catalog as they resolve;
		// rebuild so rows upgrade in place.
		m.rebuildLists()
		return m, m.waitForProgress()

	case reconcileDoneMsg:
		m.reconciling = false
		if msg.err != nil {
			m.status = styles.warning.Render(fmt.Sprintf("verification incomplete: %v", msg.err))
		}
		m.rebuildLists()
		return m, nil

	case reelSavedMsg:
		m.saved = msg.reel
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.error.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return styles.title.Render(fmt.Sprintf("Loading %s...", m.folder))
	case ArrangeView:
		return m.renderArrange()
	case SaveView:
		return m.renderSave()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleArrangeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.panel):
		if m.focused == library.Source {
			m.focused = library.Target
		} else {
			m.focused = library.Source
		}
		return m, nil

	case key.Matches(msg, m.keys.enter):
		return m.moveAcross()

	case key.Matches(msg, m.keys.moveUp):
		return m.reorder(-1)

	case key.Matches(msg, m.keys.moveDn):
		return m.reorder(1)

	case key.Matches(msg, m.keys.drop):
		return m.removeSelected()

	case key.Matches(msg, m.keys.save):
		if m.reels == nil {
			m.status = styles.warning.Render("saving is disabled (no database)")
			return m, nil
		}
		if len(m.engine.Panels().Target()) == 0 {
			m.status = styles.warning.Render("nothing selected to save")
			return m, nil
		}
		m.view = SaveView
		return m, nil
	}

	var cmd tea.Cmd
	if m.focused == library.Source {
		m.sourceList, cmd = m.sourceList.Update(msg)
	} else {
		m.targetList, cmd = m.targetList.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleSaveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = ArrangeView
		return m, nil
	case "y":
		return m, m.saveReel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = ArrangeView
		m.saved = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

// handleMouse implements drag and drop: press picks up the item under the
// pointer, release resolves the drop against the panel layout.
func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		pointer := library.Point{X: msg.X, Y: msg.Y}
		for _, target := range m.dropTargets() {
			if target.Container() || !target.Bounds.Contains(pointer) {
				continue
			}
			if path, ok := m.pathAt(target.Collection, target.Index); ok {
				m.dragPath = path
				m.dragFrom = target.Collection
				m.focused = target.Collection
			}
			break
		}
		return m, nil

	case tea.MouseActionRelease:
		if m.dragPath == "" {
			return m, nil
		}
		path := m.dragPath
		m.dragPath = ""

		drag := library.Rect{X: msg.X, Y: msg.Y, W: 1, H: 1}
		err := m.resolver.Drop(m.engine.Panels(), m.engine.Catalog(), path, drag, m.dropTargets())
		if err != nil {
			m.status = styles.error.Render(err.Error())
		} else {
			m.status = ""
		}
		m.rebuildLists()
		return m, nil
	}

	return m, nil
}

// moveAcross sends the selected record to the opposite panel, appended at the
// end. Moves into the selects panel go through the compatibility gate.
func (m *Model) moveAcross() (tea.Model, tea.Cmd) {
	path, ok := m.selectedPath()
	if !ok {
		return m, nil
	}

	dest := library.Target
	if m.focused == library.Target {
		dest = library.Source
	}

	if err := library.Transfer(m.engine.Panels(), m.engine.Catalog(), path, dest, -1); err != nil {
		m.status = styles.error.Render(err.Error())
		return m, nil
	}

	m.status = ""
	m.rebuildLists()
	return m, nil
}

// reorder permutes the selected record within the focused panel.
func (m *Model) reorder(delta int) (tea.Model, tea.Cmd) {
	path, ok := m.selectedPath()
	if !ok {
		return m, nil
	}

	_, index, found := m.engine.Panels().Holds(path)
	if !found {
		return m, nil
	}

	next := index + delta
	if next < 0 {
		return m, nil
	}

	if err := m.engine.Panels().Move(path, m.focused, next); err != nil {
		m.status = styles.error.Render(err.Error())
		return m, nil
	}

	m.rebuildLists()
	m.selectPath(path)
	return m, nil
}

// removeSelected drops the record from both the panel and the catalog.
func (m *Model) removeSelected() (tea.Model, tea.Cmd) {
	path, ok := m.selectedPath()
	if !ok {
		return m, nil
	}

	m.engine.DeleteRecord(path)
	m.rebuildLists()
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == ArrangeView {
		if m.focused == library.Source {
			m.sourceList, cmd = m.sourceList.Update(msg)
		} else {
			m.targetList, cmd = m.targetList.Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) loadFolder() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	return func() tea.Msg {
		records, done, err := m.engine.LoadAndReconcile(m.ctx, m.folder, false, m.progressChan)
		m.doneChan = done
		return catalogLoadedMsg{records: records, err: err}
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) waitForDone() tea.Cmd {
	return func() tea.Msg {
		err := <-m.doneChan
		close(m.progressChan)
		return reconcileDoneMsg{err: err}
	}
}

func (m *Model) saveReel() tea.Cmd {
	reel := models.NewReel(m.title, m.folder)

	items := make([]models.ReelItem, 0)
	for i, path := range m.engine.Panels().Target() {
		if rec, ok := m.engine.Catalog().Get(path); ok {
			items = append(items, models.ItemFromRecord(&rec, i))
		}
	}
	reel.SetItems(items)

	return func() tea.Msg {
		if err := m.reels.Create(reel); err != nil {
			return reelSavedMsg{err: err}
		}
		return reelSavedMsg{reel: reel}
	}
}

// rebuildLists regenerates both panel lists from the engine state, keeping
// each list's cursor on the record it pointed at.
func (m *Model) rebuildLists() {
	sourceSelected, _ := m.pathAt(library.Source, m.sourceList.Index())
	targetSelected, _ := m.pathAt(library.Target, m.targetList.Index())

	m.sourceList = m.buildList(library.Source, "Your Videos")
	m.targetList = m.buildList(library.Target, "Selects")
	m.resizeLists()

	m.selectPathIn(&m.sourceList, library.Source, sourceSelected)
	m.selectPathIn(&m.targetList, library.Target, targetSelected)
}

func (m *Model) buildList(c library.Collection, title string) list.Model {
	paths := m.panelPaths(c)
	items := make([]list.Item, 0, len(paths))
	for _, path := range paths {
		if rec, ok := m.engine.Catalog().Get(path); ok {
			items = append(items, videoItem{record: rec})
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return l
}

func (m *Model) panelPaths(c library.Collection) []string {
	if c == library.Source {
		return m.engine.Panels().Source()
	}
	return m.engine.Panels().Target()
}

func (m *Model) selectedPath() (string, bool) {
	if m.focused == library.Source {
		return m.pathAt(library.Source, m.sourceList.Index())
	}
	return m.pathAt(library.Target, m.targetList.Index())
}

func (m *Model) pathAt(c library.Collection, index int) (string, bool) {
	paths := m.panelPaths(c)
	if index < 0 || index >= len(paths) {
		return "", false
	}
	return paths[index], true
}

func (m *Model) selectPath(path string) {
	c, _, ok := m.engine.Panels().Holds(path)
	if !ok {
		return
	}
	if c == library.Source {
		m.selectPathIn(&m.sourceList, c, path)
	} else {
		m.selectPathIn(&m.targetList, c, path)
	}
}

func (m *Model) selectPathIn(l *list.Model, c library.Collection, path string) {
	if path == "" {
		return
	}
	for i, p := range m.panelPaths(c) {
		if p == path {
			l.Select(i)
			return
		}
	}
}

func (m *Model) resizeLists() {
	if m.width == 0 {
		return
	}
	w, h := m.panelSize()
	m.sourceList.SetSize(w, h)
	m.targetList.SetSize(w, h)
}

func (m *Model) panelSize() (int, int) {
	// Two bordered panels side by side; borders and padding cost 4 columns each.
	w := m.width/2 - 4
	h := m.height - 6
	if w < 10 {
		w = 10
	}
	if h < 5 {
		h = 5
	}
	return w, h
}

// dropTargets lays out the droppable regions matching the rendered panels:
// one container rect per panel plus one rect per visible item row.
func (m *Model) dropTargets() []library.DropTarget {
	w, h := m.panelSize()
	panelW := w + 4
	panelH := h + 2

	targets := []library.DropTarget{
		{Collection: library.Source, Index: -1, Bounds: library.Rect{X: 0, Y: 0, W: panelW, H: panelH}},
		{Collection: library.Target, Index: -1, Bounds: library.Rect{X: panelW, Y: 0, W: panelW, H: panelH}},
	}

	targets = append(targets, m.itemTargets(&m.sourceList, library.Source, 2)...)
	targets = append(targets, m.itemTargets(&m.targetList, library.Target, panelW+2)...)
	return targets
}

func (m *Model) itemTargets(l *list.Model, c library.Collection, x int) []library.DropTarget {
	w, _ := m.panelSize()
	count := len(m.panelPaths(c))

	start, end := l.Paginator.GetSliceBounds(count)

	targets := make([]library.DropTarget, 0, end-start)
	for i := start; i < end; i++ {
		row := listTopOffset + 1 + (i-start)*itemRowHeight
		targets = append(targets, library.DropTarget{
			Collection: c,
			Index:      i,
			Bounds:     library.Rect{X: x, Y: row, W: w, H: itemRowHeight - 1},
		})
	}
	return targets
}

func (m *Model) renderArrange() string {
	source := panelBorder.Render(m.sourceList.View())
	target := panelBorder.Render(m.targetList.View())
	if m.focused == library.Source {
		source = panelBorderFocused.Render(m.sourceList.View())
	} else {
		target = panelBorderFocused.Render(m.targetList.View())
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top, source, target)

	status := m.status
	if status == "" && m.reconciling {
		status = styles.help.Render(m.progressLine())
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.panel, m.keys.save, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", panels, status, helpView)
}

func (m *Model) progressLine() string {
	if m.progress.Total > 0 {
		return fmt.Sprintf("%s (%d/%d) %s", m.progress.Phase, m.progress.Step, m.progress.Total, m.progress.Message)
	}
	return m.progress.Message
}

func (m *Model) renderSave() string {
	selects := m.engine.Panels().Target()
	title := styles.title.Render(fmt.Sprintf("Save '%s' with %d videos?", m.title, len(selects)))

	var lines string
	for i, path := range selects {
		if rec, ok := m.engine.Catalog().Get(path); ok {
			lines += fmt.Sprintf("%d. %s [%s]\n", i+1, rec.Name, rec.FormattedDuration())
		}
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, lines, helpView)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.error.Render(fmt.Sprintf("Save failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.saved == nil {
		return styles.error.Render("No result available\n\nPress r to go back, q to quit")
	}

	title := styles.success.Render("✓ Reel Saved!")
	info := fmt.Sprintf("\nTitle: %s\nVideos: %d\nReel ID: %s", m.saved.Title(), len(m.saved.Items()), m.saved.ID())

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
