package main

import (
	"fmt"
	"math"
)

type Point struct {
	X, Y float64
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Mul(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Margins are fractions of the box size trimmed from each side of the
// artwork. They shift connector points but never the stored position.
type Margins struct {
	Top, Right, Bottom, Left float64
}

var (
	serviceMargins     = Margins{Top: 0.01, Right: 0.01, Bottom: 0.01, Left: 0.01}
	subordinateMargins = Margins{Top: 0.05, Right: 0.084848, Bottom: 0.1, Left: 0.084848}
)

// Transform is the translate+scale applied to the scene root.
type Transform struct {
	Translate Point
	Scale     float64
}

func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

func (t Transform) Apply(p Point) Point {
	return p.Mul(t.Scale).Add(t.Translate)
}

func (t Transform) Invert(p Point) Point {
	return p.Sub(t.Translate).Mul(1 / t.Scale)
}

func (t Transform) String() string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.Translate.X, t.Translate.Y, t.Scale)
}

type Connector struct {
	Name  string
	Point Point
}

// BoundingBox is the rendered geometry of one application node.
type BoundingBox struct {
	ID          string
	X, Y        float64
	W, H        float64
	PX, PY      float64
	Subordinate bool
	InDrag      DragState
	ModelName   string

	Name        string
	DisplayName string
	Charm       string
	Icon        string
	UnitCount   int
	Pending     bool
	Deleted     bool
	Highlighted bool
	Fade        bool
	Hide        bool
	Selectable  bool
	Annotations Annotations
	Class       ServiceClass

	model       *Application
	placed      bool
	margins     Margins
	snapToPoles bool
}

func NewBoundingBox(ctx BoxContext, app *Application) *BoundingBox {
	b := &BoundingBox{}
	if ctx != nil {
		b.snapToPoles = ctx.SnapToPoles()
	}
	b.SetModel(app)
	if ctx != nil {
		b.margins = ctx.Margins(b.Subordinate)
	} else {
		b.margins = serviceMargins
	}
	return b
}

// SetModel copies the entity's current attributes onto the box. Position
// and drag state are left alone.
func (b *BoundingBox) SetModel(app *Application) {
	b.model = app
	if app == nil {
		return
	}
	b.ID = app.ID
	b.ModelName = "service"
	b.Name = app.Name
	b.DisplayName = app.DisplayName
	b.Charm = app.Charm
	b.Icon = app.Icon
	b.UnitCount = len(app.Units)
	b.Subordinate = app.Subordinate
	b.Pending = app.Pending
	b.Deleted = app.Deleted
	b.Highlighted = app.Highlighted
	b.Fade = app.Fade
	b.Hide = app.Hide
	b.Annotations = app.Annotations.Clone()
	if b.Subordinate {
		b.W, b.H = subordinateSize, subordinateSize
	} else {
		b.W, b.H = serviceSize, serviceSize
	}
}

func (b *BoundingBox) Model() *Application {
	return b.model
}

// SetPos updates position and size together, capturing the previous
// position first.
func (b *BoundingBox) SetPos(x, y, w, h float64) {
	b.MoveTo(x, y)
	b.W = w
	b.H = h
}

func (b *BoundingBox) MoveTo(x, y float64) {
	b.PX, b.PY = b.X, b.Y
	b.X, b.Y = x, y
	b.placed = true
}

func (b *BoundingBox) Placed() bool {
	return b.placed
}

func (b *BoundingBox) Position() Point {
	return Point{X: b.X, Y: b.Y}
}

func (b *BoundingBox) Moved() bool {
	return b.X != b.PX || b.Y != b.PY
}

func (b *BoundingBox) RelativeCenter() Point {
	m := b.margins
	return Point{
		X: b.W/2 + (m.Left*b.W/2 - m.Right*b.W/2),
		Y: b.H/2 - (m.Bottom*b.H/2 - m.Top*b.H/2),
	}
}

func (b *BoundingBox) Center() Point {
	return b.RelativeCenter().Add(b.Position())
}

// Connectors lists the attachment points in a fixed order: a single center
// point, or top, right, bottom, left when snapping to poles.
func (b *BoundingBox) Connectors() []Connector {
	if !b.snapToPoles {
		return []Connector{{Name: "center", Point: Point{X: b.X + b.W/2, Y: b.Y + b.H/2}}}
	}
	m := b.margins
	midY := b.Y + b.H/2 - (m.Bottom*b.H/2 - m.Top*b.H/2)
	return []Connector{
		{Name: "top", Point: Point{X: b.X + b.W/2, Y: b.Y + m.Top*b.H}},
		{Name: "right", Point: Point{X: b.X + b.W - m.Right*b.W, Y: midY}},
		{Name: "bottom", Point: Point{X: b.X + b.W/2, Y: b.Y + b.H - m.Bottom*b.H}},
		{Name: "left", Point: Point{X: b.X + m.Left*b.W, Y: midY}},
	}
}

func (b *BoundingBox) NearestConnector(p Point) Point {
	var result Point
	shortest := math.Inf(1)
	for _, c := range b.Connectors() {
		if d := c.Point.Dist(p); d < shortest {
			shortest = d
			result = c.Point
		}
	}
	return result
}

func (b *BoundingBox) NearestConnectorTo(other *BoundingBox) Point {
	return b.NearestConnector(other.Center())
}

// ConnectorPair returns the closest pair of connectors, mine first. The
// first pair found wins a tie.
func (b *BoundingBox) ConnectorPair(other *BoundingBox) [2]Point {
	var result [2]Point
	shortest := math.Inf(1)
	for _, mine := range b.Connectors() {
		for _, theirs := range other.Connectors() {
			if d := mine.Point.Dist(theirs.Point); d < shortest {
				shortest = d
				result = [2]Point{mine.Point, theirs.Point}
			}
		}
	}
	return result
}

// ContainsPoint treats the node as a circle of radius w/2; the artwork is
// circular so w is used on both axes.
func (b *BoundingBox) ContainsPoint(p Point, t Transform) bool {
	q := t.Invert(p)
	r := b.W / 2
	dx := q.X - (b.X + r)
	dy := q.Y - (b.Y + r)
	return dx*dx+dy*dy <= r*r
}

func (b *BoundingBox) TranslateStr() string {
	return fmt.Sprintf("translate(%g,%g)", b.X, b.Y)
}
