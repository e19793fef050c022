package main

import "log/slog"

// PanZoom owns zoom and pan. Every change to scale or translate goes
// through Rescale.
type PanZoom struct {
	topo    *Topology
	minZoom float64
	maxZoom float64
	logger  *slog.Logger
}

func NewPanZoom(t *Topology, minZoom, maxZoom float64) *PanZoom {
	pz := &PanZoom{
		topo:    t,
		minZoom: minZoom,
		maxZoom: maxZoom,
		logger:  t.logger.With("module", "panzoom"),
	}
	t.bus.Subscribe(EventZoomIn, func(Event) { pz.ZoomIn() })
	t.bus.Subscribe(EventZoomOut, func(Event) { pz.ZoomOut() })
	t.bus.Subscribe(EventRescale, func(ev Event) { pz.Rescale(ev.Scale, ev.Translate) })
	t.bus.Subscribe(EventPanToPoint, func(ev Event) { pz.PanToPoint(ev.Point, ev.Center) })
	t.bus.Subscribe(EventResized, func(ev Event) { pz.Resized(ev.Point) })
	t.bus.Subscribe(EventRendered, func(Event) { pz.Rendered() })
	return pz
}

func (pz *PanZoom) MinZoom() float64 { return pz.minZoom }
func (pz *PanZoom) MaxZoom() float64 { return pz.maxZoom }

// clamp maps [minZoom, maxZoom] onto itself, pinning values outside it.
func (pz *PanZoom) clamp(s float64) float64 {
	if s < pz.minZoom {
		return pz.minZoom
	}
	if s > pz.maxZoom {
		return pz.maxZoom
	}
	return s
}

func (pz *PanZoom) ZoomIn() {
	pz.fireZoom(zoomStep)
}

func (pz *PanZoom) ZoomOut() {
	pz.fireZoom(-zoomStep)
}

// fireZoom keeps the canvas midpoint fixed while scaling.
func (pz *PanZoom) fireZoom(step float64) {
	current := pz.topo.Scale()
	next := pz.clamp(current + step)
	delta := next - current
	size := pz.topo.Size()
	tr := pz.topo.Translate()
	tr.X -= size.X / 2 * delta
	tr.Y -= size.Y / 2 * delta
	pz.Rescale(next, tr)
}

func (pz *PanZoom) Rescale(scale float64, translate Point) {
	scale = pz.clamp(scale)
	pz.topo.SetScale(scale)
	pz.topo.SetTranslate(translate)
	pz.topo.Scene().Transform = Transform{Translate: translate, Scale: scale}
	pz.logger.Debug("rescale", "scale", scale, "x", translate.X, "y", translate.Y)
}

// PanToPoint either centers the point or nudges translate just enough to
// bring it back on screen with a margin. A visible point is left alone.
func (pz *PanZoom) PanToPoint(p Point, center bool) {
	scale := pz.topo.Scale()
	tr := pz.topo.Translate()
	size := pz.topo.Size()
	next := tr

	if center {
		next = Point{
			X: -p.X*scale + size.X/2,
			Y: -p.Y*scale + size.Y/2,
		}
	} else {
		circle := panCircleSize * scale
		next.X = nudge(p.X*scale+tr.X, tr.X, size.X, circle)
		next.Y = nudge(p.Y*scale+tr.Y, tr.Y, size.Y, circle)
	}

	if next != tr {
		pz.Rescale(scale, next)
	}
}

func nudge(rendered, offset, extent, circle float64) float64 {
	switch {
	case rendered < 0:
		return (offset - rendered) + panMargin
	case rendered > extent-circle:
		return offset + (extent - (rendered + circle)) - panMargin
	}
	return offset
}

func (pz *PanZoom) Resized(size Point) {
	pz.logger.Debug("resized", "width", size.X, "height", size.Y)
	pz.Rescale(pz.topo.Scale(), pz.topo.Translate())
}

// Rendered reapplies the current transform so a rerender keeps the zoom.
func (pz *PanZoom) Rendered() {
	pz.Rescale(pz.topo.Scale(), pz.topo.Translate())
}
