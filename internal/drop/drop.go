// Package drop implements the server-authoritative drop engine spec
// §4.8 describes: per-policy item generation on enemy kill or box
// break, id assignment from the server domain, per-client visibility
// masking, and the "at most once per entity" guarantee.
package drop

import (
	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/lobby"
)

// Policy is one of the three server-authoritative drop policies, or
// the two non-authoritative ones, per spec §4.8.
type Policy = lobby.DropMode

// EntityKind distinguishes an enemy kill from a box break, since each
// delegates to a different item-creator entry point.
type EntityKind uint8

const (
	EntityEnemy EntityKind = iota
	EntityBox
)

// Request is one 6x60/6xA2 drop request, per spec §4.8's input list.
type Request struct {
	Kind              EntityKind
	EntityIndex       uint16
	Floor             uint16
	X, Z              float32
	IgnoreDefaultDrop bool
	BoxParams         [4]uint32
	ReportingSlot     int
}

// ItemCreator is the external collaborator (out of scope per spec §1)
// the engine delegates actual item generation to. Implementations key
// off the lobby's effective area index, the entity kind, and — for
// boxes — the specialization params.
type ItemCreator interface {
	CreateEnemyDrop(areaIndex uint16, entityIndex uint16) (item.Item, bool)
	CreateSpecializedBoxDrop(areaIndex uint16, boxParams [4]uint32) (item.Item, bool)
	CreateRegularBoxDrop(areaIndex uint16) (item.Item, bool)
}

// Event is one drop notification to deliver to a single client.
type Event struct {
	TargetSlot int
	Item       item.Item
	Floor      uint16
	X, Z       float32
	Rare       bool
}

// RarePreference reports whether slot opted in to rare-item
// notifications, consulted only for SharedServer policy per spec.
type RarePreference func(slot int) bool

// Engine drives drop generation for one lobby.
type Engine struct {
	Lobby   *lobby.Lobby
	Creator ItemCreator
	WantsRareNotify RarePreference
}

// New returns an Engine bound to l and creator.
func New(l *lobby.Lobby, creator ItemCreator) *Engine {
	return &Engine{Lobby: l, Creator: creator}
}

func (e *Engine) create(req Request) (item.Item, bool) {
	area := e.Lobby.EffectiveAreaIndex(req.Floor)
	switch req.Kind {
	case EntityEnemy:
		return e.Creator.CreateEnemyDrop(area, req.EntityIndex)
	default:
		if req.BoxParams != [4]uint32{} {
			return e.Creator.CreateSpecializedBoxDrop(area, req.BoxParams)
		}
		return e.Creator.CreateRegularBoxDrop(area)
	}
}

// slotsOnFloor returns the occupied slot indices currently reported on
// floor, used by DuplicateServer/PrivateServer to know how many
// independent drops to generate.
func (e *Engine) slotsOnFloor(floor uint16) []int {
	var slots []int
	for i, occ := range e.Lobby.Occupants {
		if occ != nil && occ.Floor == floor {
			slots = append(slots, i)
		}
	}
	return slots
}

// alreadyDropped enforces the at-most-once-per-entity guarantee,
// setting the enemy's ITEM_DROPPED flag or the box's
// item_drop_checked flag on the first request and reporting true for
// every subsequent one.
func (e *Engine) alreadyDropped(req Request) bool {
	if req.Kind == EntityEnemy {
		st, ok := e.Lobby.Enemies[req.EntityIndex]
		if !ok {
			st = &lobby.EnemyState{Index: req.EntityIndex}
			e.Lobby.Enemies[req.EntityIndex] = st
		}
		if st.ItemDropped {
			return true
		}
		st.ItemDropped = true
		return false
	}
	st, ok := e.Lobby.Boxes[req.EntityIndex]
	if !ok {
		st = &lobby.BoxState{Index: req.EntityIndex}
		e.Lobby.Boxes[req.EntityIndex] = st
	}
	if st.ItemDropChecked {
		return true
	}
	st.ItemDropChecked = true
	return false
}

// Handle runs req through the lobby's configured policy, returning the
// events to deliver (possibly empty) and updating server-side entity
// and floor-item state.
func (e *Engine) Handle(req Request) []Event {
	if e.alreadyDropped(req) {
		return nil
	}

	switch e.Lobby.DropMode {
	case lobby.DropModeDisabled:
		return nil

	case lobby.DropModeClient:
		// Trust the client's own drop: nothing to generate, forwarding
		// the raw request to peers is the caller's job (this engine
		// only concerns itself with server-generated drops).
		return nil

	case lobby.DropModeSharedServer:
		it, ok := e.create(req)
		if !ok {
			return nil
		}
		it.ID = e.Lobby.ServerItemIDs.Next()
		e.placeFloorItem(it, req, allVisible())
		ev := Event{TargetSlot: -1, Item: it, Floor: req.Floor, X: req.X, Z: req.Z}
		events := []Event{ev}
		return e.withRareNotify(events, it)

	case lobby.DropModeDuplicateServer:
		var events []Event
		for _, slot := range e.slotsOnFloor(req.Floor) {
			it, ok := e.create(req)
			if !ok {
				continue
			}
			it.ID = e.Lobby.ServerItemIDs.Next()
			e.placeFloorItem(it, req, onlyVisible(slot))
			events = append(events, Event{TargetSlot: slot, Item: it, Floor: req.Floor, X: req.X, Z: req.Z})
		}
		return events

	case lobby.DropModePrivateServer:
		var events []Event
		for _, slot := range e.slotsOnFloor(req.Floor) {
			it, ok := e.create(req)
			if !ok {
				continue
			}
			it.ID = e.Lobby.ServerItemIDs.Next()
			e.placeFloorItem(it, req, onlyVisible(slot))
			events = append(events, Event{TargetSlot: slot, Item: it, Floor: req.Floor, X: req.X, Z: req.Z})
		}
		return events

	default:
		return nil
	}
}

func allVisible() [lobby.MaxSlots]bool {
	var v [lobby.MaxSlots]bool
	for i := range v {
		v[i] = true
	}
	return v
}

func onlyVisible(slot int) [lobby.MaxSlots]bool {
	var v [lobby.MaxSlots]bool
	v[slot] = true
	return v
}

func (e *Engine) placeFloorItem(it item.Item, req Request, visible [lobby.MaxSlots]bool) {
	fi := lobby.FloorItem{
		Item:      it,
		Floor:     req.Floor,
		X:         req.X,
		Z:         req.Z,
		Visible:   visible,
		OwnerSlot: -1,
	}
	e.Lobby.AddFloorItem(fi)
}

// withRareNotify attaches Event.Rare to a second copy of events for
// every slot whose WantsRareNotify preference opted in, per spec
// §4.8's "rare-item notification" clause for SharedServer.
func (e *Engine) withRareNotify(events []Event, it item.Item) []Event {
	if e.WantsRareNotify == nil {
		return events
	}
	var extra []Event
	for slot, occ := range e.Lobby.Occupants {
		if occ == nil || !e.WantsRareNotify(slot) {
			continue
		}
		extra = append(extra, Event{TargetSlot: slot, Item: it, Rare: true})
	}
	return append(events, extra...)
}
