// Package gamedata declares the external collaborator interfaces spec
// §1/§6 lists as out of scope — item parameter tables, level tables,
// word-select tables, map/card definitions, the license store, the
// character/bank file format, the archive reader, and the function
// compiler. In-memory reference implementations exist for the item
// parameter table (backed by github.com/patrickmn/go-cache), the
// license store, the character file store, and the archive reader,
// plus ReferenceItemCreator for the drop and shop engines; the other
// interfaces have none in this package.
package gamedata

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/version"
)

// ItemParameterTable looks up static per-item attributes (price,
// stackability) by primary identifier.
type ItemParameterTable interface {
	Price(primaryIdentifier uint32) (uint32, bool)
	MaxStack(primaryIdentifier uint32, v uint8) int
}

// LevelTable looks up the EXP threshold for reaching level and the
// per-class stat growth that level confers.
type LevelTable interface {
	ExpForLevel(class uint8, level uint32) (uint32, bool)
	MinLevelForDifficulty(difficulty uint8) uint32
}

// WordSelectTable cross-translates a Word Select token between
// version-specific numbering spaces.
type WordSelectTable interface {
	Translate(token uint16, fromVersion, toVersion uint8) uint16
}

// MapData exposes per-floor enemy/object layout, consulted when
// initializing a new game's Enemies/Boxes maps.
type MapData interface {
	EnemyCount(episode uint8, areaIndex uint16) int
	ObjectCount(episode uint8, areaIndex uint16) int
}

// CardData exposes Ep3 card definitions by card id.
type CardData interface {
	CardRarity(cardID uint16) (uint8, bool)
}

// LicenseStore is the out-of-scope account/license collaborator: the
// core calls it to validate login credentials and look up a serial
// number's persisted client config, never touching storage directly.
type LicenseStore interface {
	Authenticate(username, password string) (serial uint32, ok bool)
	AuthenticateSerial(serial uint32, accessKey string) bool
}

// CharacterFileStore is the disk-backed character/bank file format
// collaborator (Final only, per spec §3's Lifecycle).
type CharacterFileStore interface {
	Load(serial uint32, slot uint8) ([]byte, bool)
	Save(serial uint32, slot uint8, data []byte) error
}

// ArchiveReader pulls named assets out of a client patch tree's binary
// archive format.
type ArchiveReader interface {
	ReadFile(archivePath, name string) ([]byte, bool)
}

// FunctionCompiler is the optional compiled-client-functions
// collaborator spec §6 names: relocates native code for a target arch
// with label-address substitutions.
type FunctionCompiler interface {
	Compile(arch string, source []byte, relocations map[string]uint32) (code []byte, entrypointOffset uint32, err error)
}

// ReferenceItemParameterTable is an in-memory ItemParameterTable
// backed by a TTL cache, the default when no real parameter-file
// loader is wired in (tests, local dev).
type ReferenceItemParameterTable struct {
	prices *cache.Cache
}

// NewReferenceItemParameterTable returns a table with entries cached
// for ttl (0 disables expiry, appropriate for a table loaded once at
// startup and never invalidated).
func NewReferenceItemParameterTable(ttl time.Duration) *ReferenceItemParameterTable {
	return &ReferenceItemParameterTable{prices: cache.New(ttl, ttl*2)}
}

// SetPrice seeds pid's price, as a loader would after reading the
// real parameter file.
func (t *ReferenceItemParameterTable) SetPrice(pid uint32, price uint32) {
	t.prices.Set(keyFor(pid), price, cache.DefaultExpiration)
}

func keyFor(pid uint32) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexDigits[pid&0xF]
		pid >>= 4
	}
	return string(b)
}

// Price implements ItemParameterTable.
func (t *ReferenceItemParameterTable) Price(pid uint32) (uint32, bool) {
	v, ok := t.prices.Get(keyFor(pid))
	if !ok {
		return 0, false
	}
	return v.(uint32), true
}

// MaxStack implements ItemParameterTable per spec §4.5's stack rules:
// 99 for meseta-as-item, 10 for most stackable tools, 1 otherwise,
// with some tool kinds stackable only on V3 and later.
func (t *ReferenceItemParameterTable) MaxStack(pid uint32, v uint8) int {
	return item.FromPrimaryIdentifier(pid).MaxStackSize(version.Version(v))
}

// ItemEntry seeds one fixed primary identifier a ReferenceItemCreator
// hands out; real asset-backed creators would roll a weighted table
// instead, out of scope per spec §1's item-parameter-table Non-goal.
type ItemEntry struct {
	PrimaryIdentifier uint32
}

// ReferenceItemCreator is the fixed-table stand-in for the drop and
// shop packages' ItemCreator collaborators (internal/drop's
// spec-§4.8 engine, internal/shop's spec-§4.7 offer generator):
// enough to exercise both engines' id-assignment and delivery logic
// in tests and local dev without a real parameter/rare-table loader.
type ReferenceItemCreator struct {
	EnemyDrops  []ItemEntry
	BoxDrops    []ItemEntry
	ShopTools   []ItemEntry
	ShopWeapons []ItemEntry
	ShopArmors  []ItemEntry
}

// NewReferenceItemCreator returns a creator with one placeholder entry
// per category, enough for every lookup to succeed.
func NewReferenceItemCreator() *ReferenceItemCreator {
	return &ReferenceItemCreator{
		EnemyDrops:  []ItemEntry{{PrimaryIdentifier: 0x030000}}, // Monomate
		BoxDrops:    []ItemEntry{{PrimaryIdentifier: 0x030000}},
		ShopTools:   []ItemEntry{{PrimaryIdentifier: 0x030000}},
		ShopWeapons: []ItemEntry{{PrimaryIdentifier: 0x000100}}, // Saber
		ShopArmors:  []ItemEntry{{PrimaryIdentifier: 0x010100}}, // Frame
	}
}

func pick(entries []ItemEntry, index int) (item.Item, bool) {
	if len(entries) == 0 {
		return item.Item{}, false
	}
	return item.FromPrimaryIdentifier(entries[index%len(entries)].PrimaryIdentifier), true
}

// CreateEnemyDrop implements drop.ItemCreator.
func (c *ReferenceItemCreator) CreateEnemyDrop(areaIndex uint16, entityIndex uint16) (item.Item, bool) {
	return pick(c.EnemyDrops, int(entityIndex))
}

// CreateSpecializedBoxDrop implements drop.ItemCreator.
func (c *ReferenceItemCreator) CreateSpecializedBoxDrop(areaIndex uint16, boxParams [4]uint32) (item.Item, bool) {
	return pick(c.BoxDrops, int(boxParams[0]))
}

// CreateRegularBoxDrop implements drop.ItemCreator.
func (c *ReferenceItemCreator) CreateRegularBoxDrop(areaIndex uint16) (item.Item, bool) {
	return pick(c.BoxDrops, 0)
}

// CreateShopTool implements shop.ItemCreator.
func (c *ReferenceItemCreator) CreateShopTool(level uint32) (item.Item, bool) {
	return pick(c.ShopTools, int(level))
}

// CreateShopWeapon implements shop.ItemCreator.
func (c *ReferenceItemCreator) CreateShopWeapon(level uint32) (item.Item, bool) {
	return pick(c.ShopWeapons, int(level))
}

// CreateShopArmor implements shop.ItemCreator.
func (c *ReferenceItemCreator) CreateShopArmor(level uint32) (item.Item, bool) {
	return pick(c.ShopArmors, int(level))
}
