package main

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

var ErrNothingToExport = errors.New("nothing to export")

// exportColors maps node classes and relation statuses to PNG colours.
var exportColors = map[string]color.RGBA{
	string(ClassRunning):     {0x38, 0xb4, 0x4a, 0xff},
	string(ClassPending):     {0xef, 0xb7, 0x3e, 0xff},
	string(ClassError):       {0xdf, 0x38, 0x2c, 0xff},
	string(ClassUncommitted): {0x19, 0xb6, 0xee, 0xff},
	string(ClassSubordinate): {0x77, 0x21, 0x6f, 0xff},
	"relation-healthy":       {0x38, 0xb4, 0x4a, 0xff},
	"relation-pending":       {0xef, 0xb7, 0x3e, 0xff},
	"relation-error":         {0xdf, 0x38, 0x2c, 0xff},
	"relation-subordinate":   {0x77, 0x21, 0x6f, 0xff},
	"faded":                  {0xcc, 0xcc, 0xcc, 0xff},
}

func exportColor(class string, faded bool) color.Color {
	if faded {
		return exportColors["faded"]
	}
	if c, ok := exportColors[class]; ok {
		return c
	}
	return color.Black
}

// ExportToPNG draws every visible box and relation in logical units, so the
// image does not depend on the current zoom.
func ExportToPNG(t *Topology, filename string) error {
	var boxes []*BoundingBox
	for _, id := range t.Services.ZOrder() {
		if b := t.Box(id); b != nil && b.Placed() && !b.Hide {
			boxes = append(boxes, b)
		}
	}
	if len(boxes) == 0 {
		return ErrNothingToExport
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range boxes {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.W)
		maxY = math.Max(maxY, b.Y+b.H)
	}

	// Two character cells of padding on every side.
	padding := 2.0
	minX -= padding * cellWidth
	minY -= padding * cellHeight
	maxX += padding * cellWidth
	maxY += padding * cellHeight

	dc := gg.NewContext(int(math.Ceil(maxX-minX)), int(math.Ceil(maxY-minY)))
	dc.SetColor(color.White)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	face := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	dc.SetFontFace(face)

	origin := Point{X: minX, Y: minY}
	for _, c := range t.Relations.Relations() {
		g := t.Relations.Geometry(c.CompositeID)
		if g == nil || g.Hidden {
			continue
		}
		drawRelationPNG(dc, c, g, origin)
	}
	for _, b := range boxes {
		drawBoxPNG(dc, b, origin)
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("save %s: %w", filename, err)
	}
	return nil
}

func drawRelationPNG(dc *gg.Context, c *RelationCollection, g *RelationGeometry, origin Point) {
	status := c.AggregatedStatus()
	col := exportColor("relation-"+string(status), g.Faded)
	a := g.Knobs[0].Sub(origin)
	b := g.Knobs[1].Sub(origin)

	dc.SetColor(col)
	dc.SetLineWidth(2)
	if status == StatusPending {
		dc.SetDash(6, 4)
	}
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()
	dc.SetDash()

	for _, k := range []Point{a, b} {
		dc.DrawCircle(k.X, k.Y, 3)
		dc.Fill()
	}

	ind := g.Indicator.Sub(origin)
	dc.SetColor(color.White)
	dc.DrawCircle(ind.X, ind.Y, 8)
	dc.Fill()
	dc.SetColor(col)
	dc.SetLineWidth(2)
	dc.DrawCircle(ind.X, ind.Y, 8)
	dc.Stroke()
	if status == StatusError {
		dc.DrawLine(ind.X-4, ind.Y-4, ind.X+4, ind.Y+4)
		dc.DrawLine(ind.X-4, ind.Y+4, ind.X+4, ind.Y-4)
		dc.Stroke()
	}
}

// drawBoxPNG draws a node as the circle its hit test uses, with the
// truncated name and unit count under the centre.
func drawBoxPNG(dc *gg.Context, b *BoundingBox, origin Point) {
	p := b.Position().Sub(origin)
	r := b.W / 2
	cx, cy := p.X+r, p.Y+r

	dc.SetColor(color.White)
	dc.DrawCircle(cx, cy, r)
	dc.Fill()

	dc.SetColor(exportColor(string(b.Class), b.Fade))
	dc.SetLineWidth(3)
	if b.Pending {
		dc.SetDash(8, 6)
	}
	dc.DrawCircle(cx, cy, r-2)
	dc.Stroke()
	dc.SetDash()

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(TruncateServiceName(b), cx, cy, 0.5, 0.5)
	if !b.Subordinate {
		dc.DrawStringAnchored(fmt.Sprintf("%d units", b.UnitCount), cx, cy+cellHeight, 0.5, 0.5)
	}
}

// ExportVisualTXT writes the rune-grid render of the current view.
func ExportVisualTXT(t *Topology, filename string, width, height int) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	defer file.Close()

	if width < 1 {
		width = 80
	}
	if height < 1 {
		height = 24
	}

	for _, line := range Render(t, width, height).Lines() {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return fmt.Errorf("write %s: %w", filename, err)
		}
	}
	return nil
}
