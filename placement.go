package main

import "math"

// placeNewBoxes positions boxes that have neither a position nor a saved
// one. Boxes with saved positions are placed from their annotations.
func (s *ServiceModule) placeNewBoxes() {
	t := s.topo
	boxes := t.SortedBoxes()

	var fresh []*BoundingBox
	for _, b := range boxes {
		if b.Placed() {
			continue
		}
		x, okx := b.Annotations.Get(annotationX)
		y, oky := b.Annotations.Get(annotationY)
		if okx && oky {
			b.MoveTo(x, y)
			continue
		}
		if okx {
			continue
		}
		fresh = append(fresh, b)
	}
	if len(fresh) == 0 {
		return
	}

	if len(fresh) == 1 && fresh[0].Pending {
		p := t.ServicePointOutside()
		b := fresh[0]
		b.MoveTo(p.X, p.Y)
		s.logger.Debug("placed ghost outside", "id", b.ID, "x", p.X, "y", p.Y)
		t.bus.Publish(Event{Kind: EventPanToPoint, Point: b.Center(), Center: true})
		s.AnnotateBoxPosition(b)
		return
	}

	// Existing vertices are taken before the pack gives the new boxes a
	// position of their own.
	existing := BoxVertices(t.boxes)

	values := make([]float64, len(fresh))
	for i, b := range fresh {
		values[i] = math.Max(float64(b.UnitCount), 1)
	}
	points := PackLayout(values, t.Size(), packPadding, packRadius)
	for i, b := range fresh {
		b.MoveTo(points[i].X, points[i].Y)
	}

	if len(fresh) < len(boxes) {
		var placed []Point
		for _, b := range fresh {
			vertices := append(append([]Point{}, existing...), placed...)
			p := PointOutside(vertices, servicePadding)
			b.MoveTo(p.X, p.Y)
			placed = append(placed, b.Center())
		}
	}

	for _, b := range fresh {
		s.AnnotateBoxPosition(b)
	}
	s.logger.Debug("packed new services", "count", len(fresh), "total", len(boxes))
}
