package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	menuHeight      = 6
	inspectorHeight = 6
	tickInterval    = 50 * time.Millisecond

	// relationHitRadius is how close to an indicator a press must land,
	// in screen units.
	relationHitRadius = cellHeight
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5F00AF")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)
)

type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Cancel    key.Binding
	Select    key.Binding
	Next      key.Binding
	PanUp     key.Binding
	PanDown   key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ZoomReset key.Binding
	Center    key.Binding
	Relate    key.Binding
	Remove    key.Binding
	Inspect   key.Binding
	Highlight key.Binding
	Clear     key.Binding
	Hide      key.Binding
	ShowAll   key.Binding
	Undo      key.Binding
	Redo      key.Binding
	Yank      key.Binding
	ExportPNG key.Binding
	ExportTXT key.Binding
	Reload    key.Binding
	Paste     key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next service")),
	PanUp:     key.NewBinding(key.WithKeys("up", "shift+up"), key.WithHelp("↑", "pan up")),
	PanDown:   key.NewBinding(key.WithKeys("down", "shift+down"), key.WithHelp("↓", "pan down")),
	PanLeft:   key.NewBinding(key.WithKeys("left", "shift+left"), key.WithHelp("←", "pan left")),
	PanRight:  key.NewBinding(key.WithKeys("right", "shift+right"), key.WithHelp("→", "pan right")),
	ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
	ZoomReset: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "zoom 100%")),
	Center:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "center")),
	Relate:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "add relation")),
	Remove:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove relation")),
	Inspect:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "inspect endpoint")),
	Highlight: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "highlight")),
	Clear:     key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "unhighlight")),
	Hide:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hide")),
	ShowAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "show all")),
	Undo:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
	Redo:      key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "redo")),
	Yank:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank")),
	ExportPNG: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "export png")),
	ExportTXT: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "export txt")),
	Reload:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload")),
	Paste:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "drop from clipboard")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Relate, k.Cancel, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Select, k.Cancel, k.Relate, k.Remove, k.Inspect},
		{k.PanUp, k.PanDown, k.PanLeft, k.PanRight, k.ZoomIn, k.ZoomOut, k.ZoomReset, k.Center},
		{k.Highlight, k.Clear, k.Hide, k.ShowAll, k.Undo, k.Redo},
		{k.Yank, k.Paste, k.ExportPNG, k.ExportTXT, k.Reload, k.Help, k.Quit},
	}
}

type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	app    *app
	topo   *Topology
	logger *slog.Logger
	ctx    context.Context
	watch  bool

	width        int
	height       int
	canvasHeight int
	sized        bool
	mode         Mode
	keys         keyMap
	help         help.Model
	menu         list.Model
	menuKey      string

	fileInput     textinput.Model
	fileOp        FileOperation
	confirmAction ConfirmAction
	confirmTarget string
	target        string

	pressBox   *BoundingBox
	lastScreen Point
	mouse      Point
	panning    bool

	message    string
	messageErr bool
	seen       int
}

func newModel(ctx context.Context, a *app, watch bool) model {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	menu := list.New(nil, delegate, 0, menuHeight)
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.SetShowHelp(false)

	ti := textinput.New()
	ti.Placeholder = "topology"
	ti.CharLimit = 200
	ti.Width = 40

	m := model{
		app:       a,
		topo:      a.topo,
		logger:    a.logger.With("module", "tui"),
		ctx:       ctx,
		watch:     watch && a.path != "",
		keys:      keys,
		help:      help.New(),
		menu:      menu,
		fileInput: ti,
		seen:      len(a.store.Notifications()),
	}
	a.topo.Update()
	return m
}

func (m model) Init() tea.Cmd {
	if m.watch {
		return watchModel(m.ctx, m.app.path)
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		if !m.sized {
			m.sized = true
			m.topo.Bus().Fire(EventPanToCenter)
		}

	case tickMsg:
		if m.pressBox != nil {
			m.topo.Services.ServiceAddRelTick(time.Time(msg))
			cmds = append(cmds, tickCmd())
		}

	case modelChangedMsg:
		m.logger.Debug("model file changed", "cause", msg.cause)
		if m.app.changedOnDisk() {
			if err := m.app.reload(); err != nil {
				m.setMessage(fmt.Sprintf("Reload failed: %v", err), true)
			}
		}
		cmds = append(cmds, watchModel(m.ctx, m.app.path))

	case watchErrMsg:
		m.logger.Error("watch model", "err", msg.err)
		m.setMessage(fmt.Sprintf("Watching stopped: %v", msg.err), true)

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg, time.Now()))

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	}

	m.syncNotifications()
	m.syncMode()
	m.layout()
	return m, tea.Batch(cmds...)
}

func (m *model) setMessage(s string, isErr bool) {
	m.message = s
	m.messageErr = isErr
}

// syncNotifications shows the newest store notification once.
func (m *model) syncNotifications() {
	ns := m.app.store.Notifications()
	if len(ns) <= m.seen {
		return
	}
	n := ns[len(ns)-1]
	msg := n.Title
	if n.Message != "" && n.Message != n.Title {
		msg += ": " + n.Message
	}
	m.setMessage(msg, n.Level == LevelError)
	m.seen = len(ns)
}

// syncMode derives the mode from the topology unless a prompt is open.
func (m *model) syncMode() {
	if m.mode == ModeFileInput || m.mode == ModeConfirm {
		return
	}
	r := m.topo.Relations
	switch {
	case r.AmbiguousMenu() != nil:
		menu := r.AmbiguousMenu()
		labels := menu.Labels()
		items := make([]list.Item, len(labels))
		for i, l := range labels {
			items[i] = menuItem{title: l, desc: menu.Endpoints[i][0].Type}
		}
		m.setMenu("ambiguous:"+menu.Target.ID, "Choose a relation", items)
		m.mode = ModeAmbiguousMenu
	case r.RelationMenu() != nil:
		menu := r.RelationMenu()
		items := make([]list.Item, len(menu.Items))
		for i, it := range menu.Items {
			items[i] = menuItem{title: it.String(), desc: it.Interface}
		}
		m.setMenu("relation:"+menu.CompositeID, "Relations", items)
		m.mode = ModeRelationMenu
	case r.StartService() != nil:
		m.mode = ModeBuildingRelation
	case m.app.router.Current().Inspector != nil:
		m.mode = ModeInspector
	default:
		m.mode = ModeNormal
	}
	if m.mode != ModeBuildingRelation {
		m.target = ""
	}
}

// setMenu replaces the menu items, keeping the cursor when the same menu
// is rebuilt.
func (m *model) setMenu(menuKey, title string, items []list.Item) {
	index := 0
	if menuKey == m.menuKey {
		index = m.menu.Index()
	}
	m.menuKey = menuKey
	m.menu.Title = title
	m.menu.SetItems(items)
	if index >= len(items) {
		index = len(items) - 1
	}
	if index >= 0 {
		m.menu.Select(index)
	}
}

func (m *model) footerHeight() int {
	footer := 2
	switch m.mode {
	case ModeAmbiguousMenu, ModeRelationMenu:
		footer += menuHeight
	case ModeInspector:
		footer += inspectorHeight
	case ModeFileInput, ModeConfirm, ModeBuildingRelation:
		footer++
	}
	if m.help.ShowAll {
		footer += len(m.keys.FullHelp()[1]) - 1
	}
	return footer
}

// layout gives the canvas every row the footer does not use and tells the
// topology its new size.
func (m *model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - m.footerHeight()
	if h < 1 {
		h = 1
	}
	size := Point{X: float64(m.width) * cellWidth, Y: float64(h) * cellHeight}
	if h != m.canvasHeight || size != m.topo.Size() {
		m.canvasHeight = h
		m.topo.SetSize(size.X, size.Y)
	}
	m.menu.SetSize(m.width, menuHeight)
}

func (m *model) handleMouse(msg tea.MouseMsg, now time.Time) tea.Cmd {
	t := m.topo
	screen := cellToScreen(msg.X, msg.Y)
	inCanvas := msg.Y < m.canvasHeight

	switch {
	case msg.Button == tea.MouseButtonWheelUp && inCanvas:
		t.Bus().Fire(EventZoomIn)

	case msg.Button == tea.MouseButtonWheelDown && inCanvas:
		t.Bus().Fire(EventZoomOut)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inCanvas:
		m.lastScreen = screen
		if box := t.BoxAt(screen); box != nil {
			m.pressBox = box
			t.Services.DragStart(box, now)
			t.Services.ServiceAddRelMouseDown(box, t.Transform().Invert(screen), now)
			return tickCmd()
		}
		if c := t.Relations.RelationAt(t.Transform().Invert(screen), relationHitRadius/t.Scale()); c != nil {
			t.Relations.RelationClick(c)
			return nil
		}
		m.panning = true
		t.Services.BackgroundClicked()

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight && inCanvas:
		if box := t.BoxAt(screen); box != nil && t.Services.allowBuildRelation(box) {
			t.Relations.AddRelationStart(box)
		}

	case msg.Action == tea.MouseActionMotion:
		m.mouse = screen
		switch {
		case m.pressBox != nil:
			cursor := t.Transform().Invert(screen)
			t.Services.ServiceAddRelMouseMove(cursor, now)
			if screen != m.lastScreen {
				delta := screen.Sub(m.lastScreen).Mul(1 / t.Scale())
				t.Services.Drag(m.pressBox, delta, cursor, now)
				m.lastScreen = screen
			}
			t.Services.Hover(t.BoxAt(screen))
		case m.panning:
			delta := screen.Sub(m.lastScreen)
			t.Bus().Publish(Event{Kind: EventRescale, Scale: t.Scale(), Translate: t.Translate().Add(delta)})
			m.lastScreen = screen
		default:
			t.Services.Hover(t.BoxAt(screen))
		}

	case msg.Action == tea.MouseActionRelease:
		if box := m.pressBox; box != nil {
			m.pressBox = nil
			t.Services.ServiceAddRelMouseUp(now)
			t.Services.DragEnd(box, now)
			t.Services.ServiceClick(box, screen)
		}
		m.panning = false
	}
	return nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Paste {
		m.handlePaste(string(msg.Runes))
		return nil
	}

	switch m.mode {
	case ModeFileInput:
		return m.handleFileInputKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	}

	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	switch m.mode {
	case ModeAmbiguousMenu, ModeRelationMenu:
		if cmd, handled := m.handleMenuKey(msg); handled {
			return cmd
		}
	case ModeBuildingRelation:
		if m.handleBuildKey(msg) {
			return nil
		}
	}

	t := m.topo
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.app.config.Confirmations {
			m.confirm(ConfirmQuit, "")
			return nil
		}
		return tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		t.Services.CanvasClick()

	case key.Matches(msg, m.keys.Next):
		m.inspectNext()

	case key.Matches(msg, m.keys.PanUp, m.keys.PanDown, m.keys.PanLeft, m.keys.PanRight):
		m.handlePan(msg.String())

	case key.Matches(msg, m.keys.ZoomIn):
		t.Bus().Fire(EventZoomIn)
	case key.Matches(msg, m.keys.ZoomOut):
		t.Bus().Fire(EventZoomOut)
	case key.Matches(msg, m.keys.ZoomReset):
		t.Bus().Publish(Event{Kind: EventRescale, Scale: 1, Translate: t.Translate()})
	case key.Matches(msg, m.keys.Center):
		t.Bus().Fire(EventPanToCenter)

	case key.Matches(msg, m.keys.Relate):
		m.relateInspected()

	case key.Matches(msg, m.keys.Highlight):
		if id := m.inspectedID(); id != "" {
			t.Bus().Publish(Event{Kind: EventHighlight, ServiceNames: []string{id}, Visible: true})
		}
	case key.Matches(msg, m.keys.Clear):
		t.Bus().Fire(EventUnhighlight)
	case key.Matches(msg, m.keys.Hide):
		if id := m.inspectedID(); id != "" {
			t.Bus().Publish(Event{Kind: EventHide, ServiceNames: []string{id}})
		}
	case key.Matches(msg, m.keys.ShowAll):
		t.Bus().Fire(EventShow)

	case key.Matches(msg, m.keys.Undo):
		if !m.app.history.Undo(t) {
			m.setMessage("Nothing to undo", false)
		}
	case key.Matches(msg, m.keys.Redo):
		if !m.app.history.Redo(t) {
			m.setMessage("Nothing to redo", false)
		}

	case key.Matches(msg, m.keys.Yank):
		m.yank(m.app.describeApplication(m.inspectedID()))
	case key.Matches(msg, m.keys.Paste):
		text, err := readClipboardText()
		if err != nil {
			m.setMessage(fmt.Sprintf("Clipboard: %v", err), true)
			return nil
		}
		m.handlePaste(text)

	case key.Matches(msg, m.keys.ExportPNG):
		m.startFileInput(FileOpSavePNG)
		return textinput.Blink
	case key.Matches(msg, m.keys.ExportTXT):
		m.startFileInput(FileOpSaveVisualTXT)
		return textinput.Blink

	case key.Matches(msg, m.keys.Reload):
		if err := m.app.reload(); err != nil {
			m.setMessage(fmt.Sprintf("Reload failed: %v", err), true)
		} else if m.app.path != "" {
			m.setMessage("Reloaded "+filepath.Base(m.app.path), false)
		}
	}
	return nil
}

func (m *model) handleMenuKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	t := m.topo
	r := t.Relations
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.mode == ModeAmbiguousMenu {
			r.CancelAmbiguous()
		} else {
			r.CloseRelationMenu()
		}
		return nil, true

	case key.Matches(msg, m.keys.Select):
		if m.mode == ModeAmbiguousMenu {
			if err := r.SelectAmbiguous(m.menu.Index()); err != nil {
				m.setMessage(err.Error(), true)
			}
			return nil, true
		}
		return nil, true

	case m.mode == ModeRelationMenu && key.Matches(msg, m.keys.Remove):
		id := m.selectedRelationID()
		if id == "" {
			return nil, true
		}
		if m.app.config.Confirmations {
			m.confirm(ConfirmRemoveRelation, id)
		} else {
			r.RelationRemoveClick(id)
		}
		return nil, true

	case m.mode == ModeRelationMenu && key.Matches(msg, m.keys.Inspect):
		if rel := m.app.store.Relation(m.selectedRelationID()); rel != nil {
			r.CloseRelationMenu()
			r.InspectRelationClick(rel.Endpoints[0].String())
		}
		return nil, true

	case m.mode == ModeRelationMenu && key.Matches(msg, m.keys.Yank):
		if it, ok := m.menu.SelectedItem().(menuItem); ok {
			m.yank(it.title)
		}
		return nil, true

	case key.Matches(msg, m.keys.PanUp, m.keys.PanDown):
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return cmd, true
	}
	return nil, false
}

func (m *model) selectedRelationID() string {
	menu := m.topo.Relations.RelationMenu()
	if menu == nil {
		return ""
	}
	i := m.menu.Index()
	if i < 0 || i >= len(menu.Items) {
		return ""
	}
	return menu.Items[i].RelationID
}

// handleBuildKey lets tab and enter pick the relation target without a
// mouse.
func (m *model) handleBuildKey(msg tea.KeyMsg) bool {
	t := m.topo
	switch {
	case key.Matches(msg, m.keys.Next):
		var ids []string
		for _, b := range t.SortedBoxes() {
			if b.Selectable && b != t.Relations.StartService() {
				ids = append(ids, b.ID)
			}
		}
		m.target = nextID(ids, m.target)
		if box := t.Box(m.target); box != nil {
			t.Services.Hover(box)
			t.Bus().Publish(Event{Kind: EventPanToPoint, Point: box.Center()})
		}
		return true
	case key.Matches(msg, m.keys.Select):
		if box := t.Box(m.target); box != nil {
			t.Relations.AmbiguousAddRelationCheck(box)
		}
		return true
	}
	return false
}

func nextID(ids []string, current string) string {
	if len(ids) == 0 {
		return ""
	}
	i := sort.SearchStrings(ids, current)
	if i < len(ids) && ids[i] == current {
		i++
	}
	return ids[i%len(ids)]
}

func (m *model) inspectedID() string {
	if in := m.app.router.Current().Inspector; in != nil {
		return in.ID
	}
	return ""
}

// inspectNext moves the inspector to the next service by id.
func (m *model) inspectNext() {
	t := m.topo
	var ids []string
	for _, b := range t.SortedBoxes() {
		if !b.Hide {
			ids = append(ids, b.ID)
		}
	}
	id := nextID(ids, m.inspectedID())
	if id == "" {
		return
	}
	m.app.router.ChangeState(StateChange{Inspector: &InspectorState{ID: id}})
	if box := t.Box(id); box != nil {
		t.Services.RaiseToTop(box)
		t.Bus().Publish(Event{Kind: EventPanToPoint, Point: box.Center()})
	}
}

func (m *model) relateInspected() {
	t := m.topo
	box := t.Box(m.inspectedID())
	if box == nil {
		m.setMessage("Select a service first (tab)", true)
		return
	}
	if !t.Services.allowBuildRelation(box) {
		m.setMessage("Charm metadata for "+box.Name+" is not loaded", true)
		return
	}
	t.Relations.AddRelationStart(box)
}

func (m *model) yank(text string) {
	if text == "" {
		m.setMessage("Nothing to yank", false)
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.setMessage(fmt.Sprintf("Clipboard: %v", err), true)
		return
	}
	m.setMessage("Copied to clipboard", false)
}

// handlePaste treats pasted text as a drop at the pointer: JSON is a
// catalog token, anything else is a list of dropped file paths.
func (m *model) handlePaste(text string) {
	text = strings.TrimSpace(cleanClipboardText(text))
	if text == "" {
		return
	}
	payload := DropPayload{Screen: m.mouse}
	if strings.HasPrefix(text, "{") {
		payload.Text = text
		m.topo.Services.HandleDrop(payload)
		return
	}
	for _, line := range strings.Split(text, "\n") {
		p := unquotePath(line)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			m.setMessage(fmt.Sprintf("Cannot drop %s: %v", p, err), true)
			return
		}
		payload.Files = append(payload.Files, DropFileFromPath(p))
	}
	if len(payload.Files) > 0 {
		m.logger.Info("files dropped", "count", len(payload.Files))
		m.topo.Services.HandleDrop(payload)
	}
}

// unquotePath undoes the quoting terminals apply to dropped paths.
func unquotePath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "file://")
	return strings.ReplaceAll(s, "\\ ", " ")
}

func (m *model) startFileInput(op FileOperation) {
	m.mode = ModeFileInput
	m.fileOp = op
	m.fileInput.SetValue("")
	m.fileInput.Focus()
}

func (m *model) fileExtension() string {
	if m.fileOp == FileOpSavePNG {
		return ".png"
	}
	return ".txt"
}

func (m *model) handleFileInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.fileInput.Blur()
		m.mode = ModeNormal
		return nil
	case tea.KeyEnter:
		m.fileInput.Blur()
		m.mode = ModeNormal
		name := strings.TrimSpace(m.fileInput.Value())
		if name == "" {
			name = m.fileInput.Placeholder
		}
		if !strings.HasSuffix(strings.ToLower(name), m.fileExtension()) {
			name += m.fileExtension()
		}
		path := m.app.config.GetSavePath(name)
		if _, err := os.Stat(path); err == nil && m.app.config.Confirmations {
			m.confirm(ConfirmOverwriteFile, path)
			return nil
		}
		m.export(path)
		return nil
	}
	var cmd tea.Cmd
	m.fileInput, cmd = m.fileInput.Update(msg)
	return cmd
}

func (m *model) export(path string) {
	var err error
	switch m.fileOp {
	case FileOpSavePNG:
		err = ExportToPNG(m.topo, path)
	case FileOpSaveVisualTXT:
		err = ExportVisualTXT(m.topo, path, m.width, m.canvasHeight)
	}
	if err != nil {
		m.logger.Error("export", "path", path, "err", err)
		m.setMessage(fmt.Sprintf("Export failed: %v", err), true)
		return
	}
	m.setMessage("Exported to "+path, false)
}

func (m *model) confirm(action ConfirmAction, target string) {
	m.mode = ModeConfirm
	m.confirmAction = action
	m.confirmTarget = target
}

func (m *model) confirmPrompt() string {
	switch m.confirmAction {
	case ConfirmQuit:
		return "Quit topoterm? (y/n)"
	case ConfirmRemoveRelation:
		return "Remove relation " + m.confirmTarget + "? (y/n)"
	case ConfirmOverwriteFile:
		return "Overwrite " + m.confirmTarget + "? (y/n)"
	}
	return "Are you sure? (y/n)"
}

func (m *model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		switch m.confirmAction {
		case ConfirmQuit:
			return tea.Quit
		case ConfirmRemoveRelation:
			m.topo.Relations.RelationRemoveClick(m.confirmTarget)
		case ConfirmOverwriteFile:
			m.export(m.confirmTarget)
		}
	case "n", "N", "esc":
		m.mode = ModeNormal
	case "ctrl+c":
		return tea.Quit
	}
	return nil
}

func (m model) modeString() string {
	switch m.mode {
	case ModeNormal:
		return "NORMAL"
	case ModeBuildingRelation:
		return "RELATE"
	case ModeAmbiguousMenu:
		return "CHOOSE"
	case ModeRelationMenu:
		return "RELATIONS"
	case ModeInspector:
		return "INSPECT"
	case ModeFileInput:
		return "FILE"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

func (m model) inspectorView() string {
	in := m.app.router.Current().Inspector
	if in == nil {
		return ""
	}
	var text string
	switch {
	case in.LocalType == "update":
		text = "Local charm " + filepath.Base(in.LocalFile) + " matches a deployed charm: upgrade"
	case in.LocalType != "":
		text = "Local charm " + filepath.Base(in.LocalFile) + ": new deploy"
	default:
		text = m.app.describeApplication(in.ID)
	}
	lines := strings.Split(text, "\n")
	if len(lines) > inspectorHeight {
		lines = append(lines[:inspectorHeight-1], "  …")
	}
	for len(lines) < inspectorHeight {
		lines = append(lines, "")
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m model) statusLine() string {
	status := statusStyle.Render(fmt.Sprintf("%s  %.0f%%", m.modeString(), m.topo.Scale()*100))
	if m.message == "" {
		return status
	}
	if m.messageErr {
		return status + " " + errorStyle.Render(m.message)
	}
	return status + " " + successStyle.Render(m.message)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(Render(m.topo, m.width, m.canvasHeight).Styled())
	b.WriteString("\n")

	switch m.mode {
	case ModeAmbiguousMenu, ModeRelationMenu:
		b.WriteString(m.menu.View())
		b.WriteString("\n")
	case ModeInspector:
		b.WriteString(m.inspectorView())
		b.WriteString("\n")
	case ModeBuildingRelation:
		target := "none"
		if box := m.topo.Box(m.target); box != nil {
			target = box.DisplayName
		} else if d := m.topo.Relations.DropService(); d != nil {
			target = d.DisplayName
		}
		b.WriteString(promptStyle.Render("Relate from " + m.topo.Relations.StartService().DisplayName + " to " + target))
		b.WriteString("\n")
	case ModeFileInput:
		label := "Export PNG as: "
		if m.fileOp == FileOpSaveVisualTXT {
			label = "Export TXT as: "
		}
		b.WriteString(promptStyle.Render(label) + m.fileInput.View())
		b.WriteString("\n")
	case ModeConfirm:
		b.WriteString(promptStyle.Render(m.confirmPrompt()))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// runTUI runs the program until the user quits.
func runTUI(ctx context.Context, a *app, watch bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(
		newModel(ctx, a, watch),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
