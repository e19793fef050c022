package main

import "fmt"

// EventKind is the closed set of messages exchanged between the topology
// modules.
type EventKind int

const (
	EventZoomIn EventKind = iota
	EventZoomOut
	EventRescale
	EventPanToPoint
	EventPanToCenter
	EventResized
	EventRendered
	EventRerender
	EventServiceMoved
	EventClearState
	EventAddRelationDragStart
	EventAddRelationDrag
	EventAddRelationDragEnd
	EventAddRelationEnd
	EventCancelRelationBuild
	EventSnapToService
	EventSnapOutOfService
	EventFade
	EventShow
	EventHide
	EventHighlight
	EventUnhighlight
	EventFadeHelpIndicator
	eventKindCount
)

var eventKindNames = [...]string{
	EventZoomIn:               "zoomIn",
	EventZoomOut:              "zoomOut",
	EventRescale:              "rescale",
	EventPanToPoint:           "panToPoint",
	EventPanToCenter:          "panToCenter",
	EventResized:              "resized",
	EventRendered:             "rendered",
	EventRerender:             "rerender",
	EventServiceMoved:         "serviceMoved",
	EventClearState:           "clearState",
	EventAddRelationDragStart: "addRelationDragStart",
	EventAddRelationDrag:      "addRelationDrag",
	EventAddRelationDragEnd:   "addRelationDragEnd",
	EventAddRelationEnd:       "addRelationEnd",
	EventCancelRelationBuild:  "cancelRelationBuild",
	EventSnapToService:        "snapToService",
	EventSnapOutOfService:     "snapOutOfService",
	EventFade:                 "fade",
	EventShow:                 "show",
	EventHide:                 "hide",
	EventHighlight:            "highlight",
	EventUnhighlight:          "unhighlight",
	EventFadeHelpIndicator:    "fadeHelpIndicator",
}

func (k EventKind) String() string {
	if k < 0 || k >= eventKindCount {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventKindNames[k]
}

// Event carries the payload for any EventKind. Only the fields relevant to
// the kind are set.
type Event struct {
	Kind         EventKind
	Point        Point
	Center       bool
	Scale        float64
	Translate    Point
	Box          *BoundingBox
	ServiceNames []string
	Visible      bool
}

type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus is a synchronous publish/subscribe channel keyed by EventKind.
// Handlers run in subscription order on the publisher's goroutine.
type Bus struct {
	subscribers map[EventKind][]subscription
	nextID      int
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[EventKind][]subscription)}
}

// Subscribe registers h for kind and returns a function that removes it.
func (b *Bus) Subscribe(kind EventKind, h Handler) func() {
	if kind < 0 || kind >= eventKindCount {
		panic(fmt.Sprintf("subscribe to unknown event kind %d", int(kind)))
	}
	b.nextID++
	id := b.nextID
	b.subscribers[kind] = append(b.subscribers[kind], subscription{id: id, handler: h})
	return func() {
		subs := b.subscribers[kind]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Publish(ev Event) {
	subs := b.subscribers[ev.Kind]
	if len(subs) == 0 {
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	for _, s := range snapshot {
		s.handler(ev)
	}
}

func (b *Bus) Fire(kind EventKind) {
	b.Publish(Event{Kind: kind})
}

func (b *Bus) SubscriberCount(kind EventKind) int {
	return len(b.subscribers[kind])
}
