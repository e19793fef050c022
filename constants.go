package main

import "time"

type Mode int

const (
	ModeNormal Mode = iota
	ModeBuildingRelation
	ModeAmbiguousMenu
	ModeRelationMenu
	ModeInspector
	ModeFileInput
	ModeConfirm
)

type FileOperation int

const (
	FileOpSavePNG FileOperation = iota
	FileOpSaveVisualTXT
)

type ConfirmAction int

const (
	ConfirmQuit ConfirmAction = iota
	ConfirmRemoveRelation
	ConfirmOverwriteFile
)

type ActionType int

const (
	ActionMoveService ActionType = iota
)

// DragState tracks where a box is in its drag lifecycle.
type DragState int

const (
	DragNone DragState = iota
	DragStart
	DragActive
	DragEnding
)

type ServiceClass string

const (
	ClassSubordinate ServiceClass = "subordinate"
	ClassUncommitted ServiceClass = "uncommitted"
	ClassPending     ServiceClass = "pending"
	ClassRunning     ServiceClass = "running"
	ClassError       ServiceClass = "error"
)

type RelationStatus string

const (
	StatusHealthy     RelationStatus = "healthy"
	StatusPending     RelationStatus = "pending"
	StatusError       RelationStatus = "error"
	StatusSubordinate RelationStatus = "subordinate"
)

const (
	serviceSize     = 190.0
	subordinateSize = 130.0

	servicePadding = 300.0
	packPadding    = 300.0
	packRadius     = 50.0

	defaultCanvasWidth  = 640.0
	defaultCanvasHeight = 480.0

	zoomStep       = 0.2
	panMargin      = 40.0
	panCircleSize  = 200.0
	knobInset      = 4.0
	dragSlop       = 5.0
	maxServiceName = 10

	clickWindow    = 100 * time.Millisecond
	longPressDelay = 250 * time.Millisecond

	annotationX = "gui-x"
	annotationY = "gui-y"

	tokenDataType = "token-drag-and-drop"
)
