package main

// BoxContext is the render module that owns a set of boxes.
type BoxContext interface {
	Margins(subordinate bool) Margins
	SnapToPoles() bool
}

// IconResolver maps a charm reference to an icon path.
type IconResolver interface {
	IconPath(charmID string) (string, bool)
}

// ToBoundingBoxes syncs existing with the visible entities and returns it.
// Boxes for entities that stay visible are updated in place so position and
// drag state survive; boxes for vanished entities are dropped.
func ToBoundingBoxes(ctx BoxContext, entities []*Application, existing map[string]*BoundingBox, icons IconResolver) map[string]*BoundingBox {
	if existing == nil {
		existing = make(map[string]*BoundingBox, len(entities))
	}

	visible := make(map[string]bool, len(entities))
	for _, e := range entities {
		visible[e.ID] = true
	}
	for id := range existing {
		if !visible[id] {
			delete(existing, id)
		}
	}

	for _, e := range entities {
		if e.Icon == "" && e.Charm != "" && icons != nil {
			if path, ok := icons.IconPath(e.Charm); ok {
				e.Icon = path
			}
		}
		if box, ok := existing[e.ID]; ok {
			box.SetModel(e)
			if ctx != nil {
				box.margins = ctx.Margins(box.Subordinate)
			}
			continue
		}
		existing[e.ID] = NewBoundingBox(ctx, e)
	}
	return existing
}
