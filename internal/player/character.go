// Package player implements the server-side model of a character:
// inventory, bank, equipment, Mag stats, quest flags, play time, and
// the overlay character that shadows the real one during battle and
// challenge sessions, per spec §3.
package player

import "github.com/quietloop/archon/internal/item"

// MaxTechLevels is the number of distinct technique kinds a character
// tracks a level for.
const MaxTechLevels = 19

// Mode is which kind of session a character is currently playing,
// which decides whether it plays on its real data or an overlay.
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeBattle
	ModeChallenge
	ModeSolo
)

// DisplayBlock is the character's visual appearance and headline
// stats, as shown on the character select screen and carried in most
// lobby-join packets.
type DisplayBlock struct {
	Name              string
	Guildcard         uint32
	Level             uint32
	Experience        uint32
	Meseta            uint32
	SectionID         uint8
	Class             uint8
	ModelType         uint8
	NameColor         uint32
	NameColorChecksum uint32
	Costume           uint16
	Skin              uint16
	Face              uint16
	Head              uint16
	Hair              uint16
	HairRed           uint16
	HairGreen         uint16
	HairBlue          uint16
	ProportionX       float32
	ProportionY       float32
	ATP               uint16
	MST               uint16
	EVP               uint16
	HP                uint16
	DFP               uint16
	ATA               uint16
	LCK               uint16
}

// ModeRecord is the small battle/challenge-mode scoreboard a
// character accumulates per mode, independent of its normal-mode
// progression.
type ModeRecord struct {
	Wins   uint32
	Losses uint32
	Score  uint32
}

// Character is a player's persistent in-memory state while connected:
// everything DisplayBlock doesn't cover, plus the inventory and bank
// the rest of this package manages.
type Character struct {
	Display DisplayBlock

	Inventory Inventory
	Bank      Bank

	QuestFlags  QuestFlags
	QuestGlobal QuestGlobalFlags

	PlayTimeSeconds uint32

	TechLevels [MaxTechLevels]uint8

	SymbolChats [][]byte
	Shortcuts   [][]byte
	AutoReply   string

	BattleRecord    ModeRecord
	ChallengeRecord ModeRecord

	// Overlay shadows this Character for the duration of a battle or
	// challenge session. It is never persisted; ExitOverlay discards it.
	Overlay *Character
}

// NewCharacter returns a Character with an empty inventory and a
// fresh quest-global map.
func NewCharacter() *Character {
	return &Character{
		Inventory:   NewInventory(),
		QuestGlobal: QuestGlobalFlags{},
	}
}

// Active returns the Character gameplay should actually read and
// mutate: the overlay if one is in effect, otherwise c itself.
func (c *Character) Active() *Character {
	if c.Overlay != nil {
		return c.Overlay
	}
	return c
}

// EnterOverlay creates and installs an overlay for mode, cloning c's
// display block and inventory but clearing the bank (battle and
// challenge sessions never touch the persistent bank) and, in
// Challenge mode, zeroing the HP/TP material counters per that mode's
// reset rules. Calling EnterOverlay while one is already active
// replaces it.
func (c *Character) EnterOverlay(mode Mode) *Character {
	overlay := &Character{
		Display:     c.Display,
		Inventory:   c.Inventory,
		QuestFlags:  c.QuestFlags,
		QuestGlobal: QuestGlobalFlags{},
		TechLevels:  c.TechLevels,
	}
	overlay.Inventory.equipSlotOwner = cloneEquipMap(c.Inventory.equipSlotOwner)
	if mode == ModeChallenge {
		overlay.Inventory.HPMaterials = 0
		overlay.Inventory.TPMaterials = 0
	}
	c.Overlay = overlay
	return overlay
}

// ExitOverlay discards the active overlay, if any, without persisting
// anything it accumulated.
func (c *Character) ExitOverlay() {
	c.Overlay = nil
}

func cloneEquipMap(m map[item.EquipSlot]int) map[item.EquipSlot]int {
	clone := make(map[item.EquipSlot]int, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
