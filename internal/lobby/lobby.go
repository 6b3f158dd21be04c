// Package lobby implements the Lobby/Game room spec §3/§4.6 describes:
// up to 12 player slots, leader election, episode/mode/difficulty,
// floor items with per-slot visibility, per-player next-item-id
// counters, a join queue for clients still loading, and the optional
// Ep3 watcher-lobby set.
package lobby

import (
	"errors"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/player"
)

// MaxSlots is the fixed number of occupant slots a lobby has, per
// spec §3.
const MaxSlots = 12

// Mode is the game's play mode, which decides whether occupants play
// on their real character or an overlay (mirrors player.Mode).
type Mode = player.Mode

// Episode selects which episode's maps/enemies/drop tables apply.
type Episode uint8

const (
	Episode1 Episode = 1
	Episode2 Episode = 2
	Episode3 Episode = 3
	Episode4 Episode = 4
)

// Difficulty indexes the same tier QuestFlags is keyed by.
type Difficulty uint8

const (
	DifficultyNormal Difficulty = iota
	DifficultyHard
	DifficultyVeryHard
	DifficultyUltimate
)

// DropMode selects which of the three server-authoritative drop
// policies (spec §4.8) applies in this lobby, or Disabled/Client for
// the non-authoritative modes.
type DropMode uint8

const (
	DropModeDisabled DropMode = iota
	DropModeClient
	DropModeSharedServer
	DropModeDuplicateServer
	DropModePrivateServer
)

// JoinState tracks where an occupant is in the join protocol: Joining
// before it has a slot-confirmed presence, Loading while the leader's
// state-sync stream is still being delivered, Ready once its join
// queue has been flushed.
type JoinState uint8

const (
	JoinStateJoining JoinState = iota
	JoinStateLoading
	JoinStateReady
)

// ErrLobbyFull means Join was called with no empty slot left.
var ErrLobbyFull = errors.New("lobby: all slots occupied")

// ErrSlotEmpty means an operation addressed an unoccupied slot.
var ErrSlotEmpty = errors.New("lobby: slot is not occupied")

// QueuedCommand is one buffered outbound command waiting for its
// target's join queue to flush, per spec §4.4's
// USE_JOIN_COMMAND_QUEUE flag.
type QueuedCommand struct {
	Command uint16
	Flag    uint16
	Body    []byte
}

// Occupant is one of a lobby's up to 12 slots: the connected client's
// version and character, its join-protocol state, shadow position
// (mirrored by movement subcommands), and its own join queue.
type Occupant struct {
	Slot      int
	ClientID  ClientIdentity
	Character *player.Character
	State     JoinState

	Floor uint16
	X, Z  float32

	NextItemIDs *player.IDAllocator

	joinQueue []QueuedCommand
}

// ClientIdentity is the minimal per-connection identity a lobby needs
// to address an occupant without importing the session package
// (avoiding an internal/lobby → internal/session → internal/lobby
// cycle); the server wiring layer supplies the concrete session.
type ClientIdentity interface {
	Version() uint8
	Send(cmd uint16, flag uint16, body []byte) error
}

// Enqueue buffers cmd for this occupant if it is not yet Ready,
// returning true if it was buffered (false means the caller must send
// immediately instead).
func (o *Occupant) Enqueue(cmd uint16, flag uint16, body []byte) bool {
	if o.State == JoinStateReady {
		return false
	}
	o.joinQueue = append(o.joinQueue, QueuedCommand{Command: cmd, Flag: flag, Body: body})
	return true
}

// FlushJoinQueue transitions the occupant to Ready and returns its
// buffered commands in FIFO insertion order, exactly once.
func (o *Occupant) FlushJoinQueue() []QueuedCommand {
	o.State = JoinStateReady
	flushed := o.joinQueue
	o.joinQueue = nil
	return flushed
}

// FloorItem is an item that exists in the world rather than in any
// inventory: a position plus a per-slot visibility bitmask.
type FloorItem struct {
	Item       item.Item
	Floor      uint16
	X, Z       float32
	Visible    [MaxSlots]bool
	OwnerSlot  int // slot that dropped it, or -1 for server-originated drops
}

// EnemyState is one enemy's server-tracked gameplay flags: whether it
// has already produced a drop, and who (if anyone) has an outstanding
// EXP-award claim on it.
type EnemyState struct {
	Index        uint16
	ItemDropped  bool
	ExpRequester int // slot, or -1
}

// BoxState mirrors EnemyState for breakable boxes.
type BoxState struct {
	Index            uint16
	ItemDropChecked  bool
}

// Lobby is a room: up to 12 occupant slots plus, when it hosts an
// active game, map/drop/floor-item state.
type Lobby struct {
	ID         uint32
	Name       string
	Persistent bool

	Occupants [MaxSlots]*Occupant
	LeaderID  int // slot index, or -1 if empty

	Episode    Episode
	Mode       Mode
	Difficulty Difficulty
	DropMode   DropMode

	Enemies map[uint16]*EnemyState
	Boxes   map[uint16]*BoxState
	Floor   []*FloorItem

	ServerItemIDs *player.IDAllocator

	// Watchers is the set of Ep3 spectator lobbies attached to this
	// game, non-nil only when Episode == Episode3.
	Watchers []*Lobby
	// WatchedLobby is set on a watcher lobby, pointing back at the
	// primary game it spectates.
	WatchedLobby *Lobby
}

// New returns an empty lobby with no occupants and a fresh server-side
// item-id allocator.
func New(id uint32, name string) *Lobby {
	return &Lobby{
		ID:            id,
		Name:          name,
		LeaderID:      -1,
		Enemies:       make(map[uint16]*EnemyState),
		Boxes:         make(map[uint16]*BoxState),
		ServerItemIDs: player.NewServerIDAllocator(),
	}
}

// Join places occ into the lowest-numbered empty slot and, if this is
// the first occupant, makes it leader.
func (l *Lobby) Join(occ *Occupant) (int, error) {
	for i := 0; i < MaxSlots; i++ {
		if l.Occupants[i] == nil {
			occ.Slot = i
			l.Occupants[i] = occ
			l.electLeaderIfNeeded()
			return i, nil
		}
	}
	return -1, ErrLobbyFull
}

// Leave clears slot and re-elects a leader if the departing occupant
// held that role. Returns ErrSlotEmpty if slot was already empty.
func (l *Lobby) Leave(slot int) error {
	if slot < 0 || slot >= MaxSlots || l.Occupants[slot] == nil {
		return ErrSlotEmpty
	}
	l.Occupants[slot] = nil
	if l.LeaderID == slot {
		l.LeaderID = -1
		l.electLeaderIfNeeded()
	}
	return nil
}

// Empty reports whether no slot is occupied.
func (l *Lobby) Empty() bool {
	for _, o := range l.Occupants {
		if o != nil {
			return false
		}
	}
	return true
}

// electLeaderIfNeeded assigns LeaderID to the lowest-numbered occupied
// slot when no leader is currently set, per spec §3's invariant.
func (l *Lobby) electLeaderIfNeeded() {
	if l.LeaderID != -1 {
		return
	}
	for i, o := range l.Occupants {
		if o != nil {
			l.LeaderID = i
			return
		}
	}
}

// SetLeader explicitly reassigns leadership, per spec §3's "unless
// explicitly reassigned" clause.
func (l *Lobby) SetLeader(slot int) error {
	if slot < 0 || slot >= MaxSlots || l.Occupants[slot] == nil {
		return ErrSlotEmpty
	}
	l.LeaderID = slot
	return nil
}

// Broadcast invokes send for every occupied slot other than except.
func (l *Lobby) Broadcast(except int, send func(o *Occupant)) {
	for i, o := range l.Occupants {
		if o != nil && i != except {
			send(o)
		}
	}
}

// EffectiveAreaIndex maps Lobby.Floor's raw floor number into the
// index the external item creator expects, diverging from the raw
// number only for Episode 4 per spec §4.8.
func (l *Lobby) EffectiveAreaIndex(floor uint16) uint16 {
	if l.Episode == Episode4 {
		// Episode 4's floors are a contiguous block appended after the
		// other three episodes' area tables in the shared parameter
		// file; the raw in-game floor number must be offset to land in
		// that block.
		const episode4AreaOffset = 0x20
		return floor + episode4AreaOffset
	}
	return floor
}
