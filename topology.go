package main

import (
	"log/slog"
	"math"
	"sort"
	"time"
)

// Scene is the rendered scene root. Only its transform is mutated, and
// only by PanZoom.Rescale.
type Scene struct {
	Transform Transform
}

func (s *Scene) TransformString() string {
	return s.Transform.String()
}

type TopologyOptions struct {
	Store    *Store
	Env      Env
	Router   Router
	Importer Importer
	Deployer Deployer
	Config   *Config
	Logger   *slog.Logger
	Now      func() time.Time
}

// Topology owns the shared view state and the event bus. The engines read
// and write that state only through its accessors.
type Topology struct {
	store    *Store
	env      Env
	router   Router
	importer Importer
	deployer Deployer
	config   *Config
	logger   *slog.Logger
	now      func() time.Time

	bus              *Bus
	boxes            map[string]*BoundingBox
	scale            float64
	translate        Point
	buildingRelation bool
	size             Point
	vis              *Scene

	PanZoom   *PanZoom
	Services  *ServiceModule
	Relations *RelationModule
}

func NewTopology(opts TopologyOptions) *Topology {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	t := &Topology{
		store:    opts.Store,
		env:      opts.Env,
		router:   opts.Router,
		importer: opts.Importer,
		deployer: opts.Deployer,
		config:   opts.Config,
		logger:   opts.Logger,
		now:      opts.Now,
		bus:      NewBus(),
		boxes:    make(map[string]*BoundingBox),
		scale:    1,
		size:     Point{X: defaultCanvasWidth, Y: defaultCanvasHeight},
		vis:      &Scene{Transform: IdentityTransform()},
	}
	t.PanZoom = NewPanZoom(t, opts.Config.MinZoom, opts.Config.MaxZoom)
	t.Relations = NewRelationModule(t)
	t.Services = NewServiceModule(t)
	t.bus.Subscribe(EventClearState, func(Event) {
		t.Services.ClearState()
		t.Relations.ClearState()
	})
	t.bus.Subscribe(EventRerender, func(Event) { t.Update() })
	return t
}

func (t *Topology) Bus() *Bus              { return t.bus }
func (t *Topology) Store() *Store          { return t.store }
func (t *Topology) Logger() *slog.Logger   { return t.logger }
func (t *Topology) Scene() *Scene          { return t.vis }
func (t *Topology) Size() Point            { return t.size }
func (t *Topology) Now() time.Time         { return t.now() }
func (t *Topology) Scale() float64         { return t.scale }
func (t *Topology) SetScale(s float64)     { t.scale = s }
func (t *Topology) Translate() Point       { return t.translate }
func (t *Topology) SetTranslate(p Point)   { t.translate = p }
func (t *Topology) BuildingRelation() bool { return t.buildingRelation }

func (t *Topology) SetBuildingRelation(v bool) {
	t.buildingRelation = v
}

func (t *Topology) Transform() Transform {
	return Transform{Translate: t.translate, Scale: t.scale}
}

// SetSize records the canvas size in screen units and lets PanZoom react.
func (t *Topology) SetSize(w, h float64) {
	t.size = Point{X: w, Y: h}
	t.bus.Publish(Event{Kind: EventResized, Point: t.size})
}

func (t *Topology) Margins(subordinate bool) Margins {
	if subordinate {
		return subordinateMargins
	}
	return serviceMargins
}

func (t *Topology) SnapToPoles() bool {
	return t.config.SnapToPoles
}

func (t *Topology) IconPath(charmID string) (string, bool) {
	c := t.store.Charm(charmID)
	if c == nil {
		return "", false
	}
	if c.Icon != "" {
		return c.Icon, true
	}
	return "icons/" + c.Name + ".svg", true
}

func (t *Topology) Boxes() map[string]*BoundingBox {
	return t.boxes
}

func (t *Topology) Box(id string) *BoundingBox {
	return t.boxes[id]
}

// SortedBoxes returns the boxes ordered by id.
func (t *Topology) SortedBoxes() []*BoundingBox {
	out := make([]*BoundingBox, 0, len(t.boxes))
	for _, b := range t.boxes {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Topology) ServiceForBox(b *BoundingBox) *Application {
	if b == nil {
		return nil
	}
	if m := b.Model(); m != nil {
		return m
	}
	return t.store.Application(b.ID)
}

// BoxAt returns the topmost visible box containing the screen point.
func (t *Topology) BoxAt(screen Point) *BoundingBox {
	order := t.Services.ZOrder()
	tr := t.Transform()
	for i := len(order) - 1; i >= 0; i-- {
		b := t.boxes[order[i]]
		if b == nil || b.Hide || !b.Placed() {
			continue
		}
		if b.ContainsPoint(screen, tr) {
			return b
		}
	}
	return nil
}

// Update runs one render pass: registry diff, nodes, then edges.
func (t *Topology) Update() {
	t.boxes = ToBoundingBoxes(t, t.store.VisibleApplications(), t.boxes, t)
	t.Services.Update()
	t.Relations.Update()
	t.bus.Fire(EventRendered)
}

// ServicePointOutside finds a free point to the right of every placed box
// plus the extra vertices.
func (t *Topology) ServicePointOutside(include ...Point) Point {
	vertices := BoxVertices(t.boxes)
	vertices = append(vertices, include...)
	return PointOutside(vertices, servicePadding)
}

// BoxVertices returns the centers of all placed boxes ordered by id.
func BoxVertices(boxes map[string]*BoundingBox) []Point {
	ids := make([]string, 0, len(boxes))
	for id, b := range boxes {
		if b.Placed() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]Point, 0, len(ids))
	for _, id := range ids {
		out = append(out, boxes[id].Center())
	}
	return out
}

// PointOutside returns a point padding units to the right of the rightmost
// vertex, level with the topmost one.
func PointOutside(vertices []Point, padding float64) Point {
	if len(vertices) == 0 {
		return Point{X: padding, Y: padding}
	}
	maxX, minY := math.Inf(-1), math.Inf(1)
	for _, v := range vertices {
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
	}
	return Point{X: maxX + padding, Y: minY}
}

func Centroid(vertices []Point) Point {
	if len(vertices) == 0 {
		return Point{}
	}
	var sum Point
	for _, v := range vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(vertices)))
}
