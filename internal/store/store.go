// Package store is the gorm-backed, database-persisted implementation
// of the out-of-scope license-store and character-file-store
// collaborators internal/gamedata declares interfaces for (spec §1/
// §6): Account for the serial/access-key and username/password login
// families, CharacterFile for the versioned character/bank blob spec
// §3's Lifecycle persists on save and reloads on login.
//
// This is the default, DB-backed implementation; internal/gamedata's
// Reference* types remain the in-memory stand-in used by tests that
// don't want a database.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Account is the persisted login record for one registered player,
// grounded on the teacher's internal/core/data.Account but narrowed to
// the fields the core's login paths actually consult: a serial number
// for the BB/console login families and a username/password pair for
// Final's, per spec §6's "at least six distinct login command ids"
// note.
type Account struct {
	ID               uint64 `gorm:"primaryKey"`
	Serial           uint32 `gorm:"unique;not null"`
	Username         string `gorm:"unique"`
	Password         string
	AccessKey        string
	Email            string
	RegistrationDate time.Time
	GM               bool `gorm:"default:false"`
	Banned           bool `gorm:"default:false"`
	Active           bool `gorm:"default:true"`
}

// CharacterFile is one version-tagged character or shared-bank blob,
// keyed by the owning account's serial and a save slot, per spec §6's
// "Persisted files" note: the 16-byte command-style header and
// internal layout are opaque to the store, which persists exactly the
// bytes internal/player hands it and returns exactly the bytes it was
// given.
type CharacterFile struct {
	Serial    uint32 `gorm:"primaryKey"`
	Slot      uint8  `gorm:"primaryKey"`
	Data      []byte
	UpdatedAt time.Time
}

// Store wraps the underlying gorm connection and implements both
// gamedata.LicenseStore and gamedata.CharacterFileStore against it.
type Store struct {
	db *gorm.DB
}

// Open connects to a Postgres database, the production backing store,
// mirroring the teacher's internal/core/data.Initialize.
func Open(dataSource string, debug bool) (*Store, error) {
	log := logger.Default.LogMode(logger.Error)
	if debug {
		log = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(postgres.Open(dataSource), &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("store: error connecting to database: %w", err)
	}
	return open(db)
}

// OpenSQLite connects to a file-backed (or ":memory:") sqlite
// database via the pure-Go glebarez/sqlite driver, used by operator
// tooling and tests that want a real relational backend without a
// Postgres instance.
func OpenSQLite(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("store: error opening sqlite database: %w", err)
	}
	return open(db)
}

func open(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Account{}, &CharacterFile{}); err != nil {
		return nil, fmt.Errorf("store: error auto migrating db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Authenticate implements gamedata.LicenseStore for the Final
// username/password login family: hashes password with HashPassword
// and compares it against the stored hash, rejecting banned or
// inactive accounts.
func (s *Store) Authenticate(username, password string) (uint32, bool) {
	account, err := s.findByUsername(username)
	if err != nil || account == nil {
		return 0, false
	}
	if account.Password != HashPassword(password) || account.Banned || !account.Active {
		return 0, false
	}
	return account.Serial, true
}

// AuthenticateSerial implements gamedata.LicenseStore for every other
// login family, which carries the account's serial number and access
// key directly rather than a username/password pair.
func (s *Store) AuthenticateSerial(serial uint32, accessKey string) bool {
	account, err := s.findBySerial(serial)
	if err != nil || account == nil {
		return false
	}
	return account.AccessKey == accessKey && !account.Banned && account.Active
}

// Load implements gamedata.CharacterFileStore.
func (s *Store) Load(serial uint32, slot uint8) ([]byte, bool) {
	var f CharacterFile
	err := s.db.Where("serial = ? AND slot = ?", serial, slot).First(&f).Error
	if err != nil {
		return nil, false
	}
	return f.Data, true
}

// Save implements gamedata.CharacterFileStore, upserting on the
// (serial, slot) primary key so a repeated save overwrites in place
// rather than accumulating history, matching spec §4's Lifecycle
// "writes the character file atomically to disk" wording translated
// to a single-row upsert.
func (s *Store) Save(serial uint32, slot uint8, data []byte) error {
	f := CharacterFile{Serial: serial, Slot: slot, Data: data, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&f).Error
}

// CreateAccount registers a new account for the serial/access-key
// login families, hashing password only if one is supplied (a
// console/BB-only account may have no Final username/password at
// all).
func (s *Store) CreateAccount(serial uint32, accessKey, username, password, email string) (*Account, error) {
	account := &Account{
		Serial:           serial,
		AccessKey:        accessKey,
		Username:         username,
		Email:            email,
		RegistrationDate: time.Now(),
		Active:           true,
	}
	if password != "" {
		account.Password = HashPassword(password)
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// Ban marks an existing account (by serial) banned, refusing any
// future login.
func (s *Store) Ban(serial uint32) error {
	return s.db.Model(&Account{}).Where("serial = ?", serial).Update("banned", true).Error
}

func (s *Store) findByUsername(username string) (*Account, error) {
	var account Account
	err := s.db.Where("username = ?", username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (s *Store) findBySerial(serial uint32) (*Account, error) {
	var account Account
	err := s.db.Where("serial = ?", serial).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// HashPassword returns password hashed with Archon's chosen strategy,
// carried over unchanged from the teacher's internal/auth.HashPassword
// so existing Final account passwords keep validating.
func HashPassword(password string) string {
	hash := sha256.New()
	hash.Write(stripPadding([]byte(password)))
	return hex.EncodeToString(hash.Sum(nil))
}

// stripPadding trims the trailing NUL bytes the client's fixed-width
// password field pads a shorter password with, so two logins of the
// same password hash identically regardless of the field's width.
func stripPadding(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return b[:i+1]
		}
	}
	return b
}
