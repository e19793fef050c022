package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// A terminal cell covers cellWidth x cellHeight screen units, the same
// character cell used by the PNG export.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

// cellToScreen returns the screen point at the middle of a cell.
func cellToScreen(col, row int) Point {
	return Point{X: (float64(col) + 0.5) * cellWidth, Y: (float64(row) + 0.5) * cellHeight}
}

func screenToCell(p Point) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

// Frame is one rendered rune grid. Each cell carries the class that styles
// it; an empty class is plain.
type Frame struct {
	runes   [][]rune
	classes [][]string
}

func newFrame(width, height int) *Frame {
	if height < 1 {
		height = 1
	}
	if width < 1 {
		width = 1
	}
	f := &Frame{
		runes:   make([][]rune, height),
		classes: make([][]string, height),
	}
	for i := range f.runes {
		f.runes[i] = make([]rune, width)
		f.classes[i] = make([]string, width)
		for j := range f.runes[i] {
			f.runes[i][j] = ' '
		}
	}
	return f
}

func (f *Frame) Width() int  { return len(f.runes[0]) }
func (f *Frame) Height() int { return len(f.runes) }

func (f *Frame) valid(x, y int) bool {
	return y >= 0 && y < len(f.runes) && x >= 0 && x < len(f.runes[y])
}

func (f *Frame) set(x, y int, r rune, class string) {
	if f.valid(x, y) {
		f.runes[y][x] = r
		f.classes[y][x] = class
	}
}

// At returns the rune in a cell, or a space outside the frame.
func (f *Frame) At(x, y int) rune {
	if !f.valid(x, y) {
		return ' '
	}
	return f.runes[y][x]
}

func (f *Frame) ClassAt(x, y int) string {
	if !f.valid(x, y) {
		return ""
	}
	return f.classes[y][x]
}

func (f *Frame) text(x, y int, s string, class string) {
	for i, r := range []rune(s) {
		f.set(x+i, y, r, class)
	}
}

// Lines returns the frame as plain text.
func (f *Frame) Lines() []string {
	out := make([]string, len(f.runes))
	for i, row := range f.runes {
		out[i] = string(row)
	}
	return out
}

var (
	classStyles = map[string]lipgloss.Style{
		string(ClassRunning):     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		string(ClassPending):     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		string(ClassError):       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		string(ClassUncommitted): lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
		string(ClassSubordinate): lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF")),
		"relation-healthy":       lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")),
		"relation-pending":       lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAA00")),
		"relation-error":         lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		"relation-subordinate":   lipgloss.NewStyle().Foreground(lipgloss.Color("#AA00AA")),
		"dragline":               lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		"faded":                  lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
		"highlight":              lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#FF00FF")),
		"menu":                   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF")).Bold(true),
	}
)

// Styled renders the frame with lipgloss, one style run at a time.
func (f *Frame) Styled() string {
	var b strings.Builder
	for i, row := range f.runes {
		if i > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && f.classes[i][j] == f.classes[i][start] {
				continue
			}
			run := string(row[start:j])
			if style, ok := classStyles[f.classes[i][start]]; ok {
				run = style.Render(run)
			}
			b.WriteString(run)
			start = j
		}
	}
	return b.String()
}

// indicatorGlyphs mark the midpoint of a relation line by status.
var indicatorGlyphs = map[RelationStatus]rune{
	StatusHealthy:     '●',
	StatusPending:     '◌',
	StatusError:       '✖',
	StatusSubordinate: '◆',
}

// Render draws the topology into a width x height grid: relations first so
// boxes sit on top of them, then the dragline, then boxes in z-order.
func Render(t *Topology, width, height int) *Frame {
	f := newFrame(width, height)
	tr := t.Transform()

	for _, c := range t.Relations.Relations() {
		g := t.Relations.Geometry(c.CompositeID)
		if g == nil || g.Hidden {
			continue
		}
		class := "relation-" + string(c.AggregatedStatus())
		if g.Faded {
			class = "faded"
		}
		a, b := tr.Apply(g.Knobs[0]), tr.Apply(g.Knobs[1])
		f.drawLine(a, b, class)
		ax, ay := screenToCell(a)
		bx, by := screenToCell(b)
		f.set(ax, ay, 'o', class)
		f.set(bx, by, 'o', class)
		ix, iy := screenToCell(tr.Apply(g.Indicator))
		f.set(ix, iy, indicatorGlyphs[c.AggregatedStatus()], class)
	}

	if d := t.Relations.Dragline(); d != nil {
		a, b := tr.Apply(d.From), tr.Apply(d.To)
		f.drawLine(a, b, "dragline")
		ix, iy := screenToCell(tr.Apply(d.Indicator))
		f.set(ix, iy, '◎', "dragline")
	}

	for _, id := range t.Services.ZOrder() {
		box := t.Box(id)
		if box == nil || box.Hide || !box.Placed() {
			continue
		}
		f.drawBox(t, box, tr)
	}

	if menu := t.Relations.RelationMenu(); menu != nil {
		x, y := screenToCell(menu.Position)
		f.set(x, y, '▼', "menu")
	}
	if menu := t.Relations.AmbiguousMenu(); menu != nil {
		x, y := screenToCell(menu.Position)
		f.set(x, y, '?', "menu")
	}
	return f
}

// drawLine rasterizes a straight segment between two screen points.
func (f *Frame) drawLine(from, to Point, class string) {
	x0, y0 := screenToCell(from)
	x1, y1 := screenToCell(to)
	if x0 == x1 && y0 == y1 {
		return
	}
	glyph := lineGlyph(to.X-from.X, to.Y-from.Y)

	from, to, ok := f.clip(from, to)
	if !ok {
		return
	}
	x0, y0 = screenToCell(from)
	x1, y1 = screenToCell(to)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		f.set(x0, y0, glyph, class)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// clip cuts the segment to the frame's screen area (Liang-Barsky). It
// reports false when nothing of the segment is visible.
func (f *Frame) clip(from, to Point) (Point, Point, bool) {
	maxX := float64(f.Width())*cellWidth - 1e-6
	maxY := float64(f.Height())*cellHeight - 1e-6
	dx, dy := to.X-from.X, to.Y-from.Y
	t0, t1 := 0.0, 1.0
	for _, edge := range [4][2]float64{
		{-dx, from.X},
		{dx, maxX - from.X},
		{-dy, from.Y},
		{dy, maxY - from.Y},
	} {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return from, to, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return from, to, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return from, to, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return Point{X: from.X + t0*dx, Y: from.Y + t0*dy},
		Point{X: from.X + t1*dx, Y: from.Y + t1*dy}, true
}

// lineGlyph picks the glyph for a segment by its angle in screen space.
func lineGlyph(dx, dy float64) rune {
	angle := math.Abs(math.Atan2(dy, dx)) * 180 / math.Pi
	if angle > 90 {
		angle = 180 - angle
	}
	switch {
	case angle < 22.5:
		return '─'
	case angle > 67.5:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	}
	return '╱'
}

func (f *Frame) drawBox(t *Topology, box *BoundingBox, tr Transform) {
	tl := tr.Apply(box.Position())
	br := tr.Apply(Point{X: box.X + box.W, Y: box.Y + box.H})
	boxX, boxY := screenToCell(tl)
	endX, endY := screenToCell(br)
	if endX-boxX < 2 {
		endX = boxX + 2
	}
	if endY-boxY < 2 {
		endY = boxY + 2
	}

	class := string(box.Class)
	switch {
	case box.Fade:
		class = "faded"
	case box.Highlighted:
		class = "highlight"
	}

	var corners [4]rune
	var horizontal, vertical rune
	switch {
	case box.Highlighted || box == t.Relations.DropService():
		corners = [4]rune{'#', '#', '#', '#'}
		horizontal, vertical = '#', '#'
	case box.Subordinate:
		corners = [4]rune{'╭', '╮', '╰', '╯'}
		horizontal, vertical = '┄', '┆'
	default:
		corners = [4]rune{'╭', '╮', '╰', '╯'}
		horizontal, vertical = '─', '│'
	}

	for y := boxY; y <= endY; y++ {
		for x := boxX; x <= endX; x++ {
			switch {
			case y == boxY && x == boxX:
				f.set(x, y, corners[0], class)
			case y == boxY && x == endX:
				f.set(x, y, corners[1], class)
			case y == endY && x == boxX:
				f.set(x, y, corners[2], class)
			case y == endY && x == endX:
				f.set(x, y, corners[3], class)
			case y == boxY || y == endY:
				f.set(x, y, horizontal, class)
			case x == boxX || x == endX:
				f.set(x, y, vertical, class)
			default:
				f.set(x, y, ' ', class)
			}
		}
	}

	maxWidth := endX - boxX - 1
	lines := []string{TruncateServiceName(box)}
	if box.Subordinate {
		n := len(t.Relations.SubordinateRelationsForService(box))
		lines = append(lines, strconv.Itoa(n)+" rel")
	} else {
		lines = append(lines, strconv.Itoa(box.UnitCount)+" units")
	}
	midY := boxY + (endY-boxY)/2
	for i, line := range lines {
		y := midY + i
		if y >= endY {
			break
		}
		runes := []rune(line)
		if len(runes) > maxWidth {
			runes = runes[:maxWidth]
		}
		x := boxX + 1 + (maxWidth-len(runes))/2
		f.text(x, y, string(runes), class)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
