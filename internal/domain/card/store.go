package card

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultHeaderFile = "rfid_database.bin"
	DefaultCardsFile  = "rfid_cards.bin"
)

// Filesystem is the byte-level contract the store needs from the flash adapter.
type Filesystem interface {
	Mount() error
	Exists(name string) (bool, error)
	// Size returns -1 when the file is absent.
	Size(name string) (int64, error)
	ReadAll(name string, limit int64) ([]byte, error)
	WriteAll(name string, data []byte, appendMode, create bool) error
	// Replace atomically overwrites name.
	Replace(name string, data []byte) error
	Delete(name string) error
}

// Servicer is the card database API consumed by the HTTP handlers and the CLI.
type Servicer interface {
	Add(ctx context.Context, id uint32, name string) error
	Remove(ctx context.Context, id uint32) error
	Check(ctx context.Context, id uint32) (Status, error)
	Count(ctx context.Context) (uint16, error)
	List(ctx context.Context, capacity int) ([]Card, error)
	Format(ctx context.Context) error
	LoadDefaults(ctx context.Context) error
	Validate(ctx context.Context) error
	ToJSON(ctx context.Context, buf []byte) (int, error)
}

// Store is the card database: a header file and a packed records file on flash.
// All operations are serialized by one lock held for their full duration; ctx only
// bounds the wait for that lock; file I/O is never interrupted once started.
//
// Duplicate checks and lookups are linear scans over the loaded records. The
// capacity is small (DefaultMaxCards), so no index is kept.
type Store struct {
	fs       Filesystem
	log      *slog.Logger
	sem      *semaphore.Weighted
	header   string
	cards    string
	maxCards uint16
	now      func() time.Time
}

type Option func(*Store)

// WithFiles overrides the header and records file names.
func WithFiles(header, cards string) Option {
	return func(s *Store) {
		s.header = path.Join("/", header)
		s.cards = path.Join("/", cards)
	}
}

// WithCapacity sets max_cards for newly created or formatted databases.
func WithCapacity(maxCards uint16) Option {
	return func(s *Store) {
		s.maxCards = maxCards
	}
}

// WithClock replaces time.Now for last_seen stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(fs Filesystem, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		fs:       fs,
		log:      log.With("component", "card_store"),
		sem:      semaphore.NewWeighted(1),
		header:   "/" + DefaultHeaderFile,
		cards:    "/" + DefaultCardsFile,
		maxCards: DefaultMaxCards,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockFailure, err)
	}
	return func() { s.sem.Release(1) }, nil
}

// Init mounts the filesystem, creates an empty header when none exists and validates
// the database.
func (s *Store) Init(ctx context.Context) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.fs.Mount(); err != nil {
		s.log.Error("failed to mount storage", "error", err)
		return storageErr("mount", err)
	}

	exists, err := s.fs.Exists(s.header)
	if err != nil {
		return storageErr("stat header", err)
	}
	if !exists {
		if err := s.writeHeader(Header{MaxCards: s.maxCards}); err != nil {
			s.log.Error("failed to create header", "error", err)
			return err
		}
		s.log.Info("card database created", "max_cards", s.maxCards)
	}

	if err := s.validate(); err != nil {
		s.log.Error("card database failed validation", "error", err)
		return err
	}

	return nil
}

// Add stores a new active card. The record is appended before the header is
// advanced, so an interrupted add leaves card_count understating the records file.
func (s *Store) Add(ctx context.Context, id uint32, name string) error {
	if id == 0 {
		return fmt.Errorf("%w: card id must be non-zero", ErrInvalidArgument)
	}
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	h, err := s.readHeader()
	if err != nil {
		return err
	}
	cards, err := s.readCards(h, true)
	if err != nil {
		return err
	}

	if slices.ContainsFunc(cards, func(c Card) bool { return c.ID == id }) {
		return fmt.Errorf("%w: %d", ErrAlreadyExists, id)
	}
	if h.Count >= h.MaxCards {
		return fmt.Errorf("%w: %d of %d", ErrFull, h.Count, h.MaxCards)
	}

	c := Card{ID: id, Active: true, Name: name, LastSeen: uint32(s.now().Unix())}
	rec, err := c.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if err := s.fs.WriteAll(s.cards, rec, true, true); err != nil {
		s.log.Error("failed to append card", "card_id", id, "error", err)
		// the write may have landed in part or in full
		if rerr := s.restoreRecords(cards); rerr != nil {
			s.log.Error("append rollback incomplete", "error", rerr)
		}
		return storageErr("append card", err)
	}

	next := append(cards, c)
	encoded, err := encodeCards(next)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if err := s.writeHeader(Header{Count: h.Count + 1, MaxCards: h.MaxCards, Checksum: checksum(encoded)}); err != nil {
		s.log.Error("failed to advance header", "card_id", id, "error", err)
		s.rollbackAdd(h, cards)
		return err
	}

	s.log.Info("card added", "card_id", id, "name", name, "count", h.Count+1)

	return nil
}

// rollbackAdd restores the records file and header to their state before a failed add.
// Failures are logged only.
func (s *Store) rollbackAdd(prev Header, cards []Card) {
	var errs []error

	if err := s.restoreRecords(cards); err != nil {
		errs = append(errs, err)
	}
	if err := s.writeHeader(prev); err != nil {
		errs = append(errs, fmt.Errorf("restore header: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Error("add rollback incomplete", "error", err)
		return
	}
	s.log.Warn("add rolled back", "count", prev.Count)
}

// restoreRecords rewrites the records file to hold exactly cards, removing it when
// cards is empty.
func (s *Store) restoreRecords(cards []Card) error {
	if len(cards) > 0 {
		encoded, err := encodeCards(cards)
		if err != nil {
			return err
		}
		if err := s.fs.Replace(s.cards, encoded); err != nil {
			return fmt.Errorf("restore records: %w", err)
		}
		return nil
	}

	exists, err := s.fs.Exists(s.cards)
	if err != nil {
		return fmt.Errorf("stat records: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(s.cards); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// Remove deletes a card and shifts the following records down one slot. The header
// is written before the shorter records file.
func (s *Store) Remove(ctx context.Context, id uint32) error {
	if id == AdminCardID {
		return fmt.Errorf("%w: admin card %d is protected", ErrUnsupported, id)
	}
	if id == 0 {
		return fmt.Errorf("%w: card id must be non-zero", ErrInvalidArgument)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	h, err := s.readHeader()
	if err != nil {
		return err
	}
	cards, err := s.readCards(h, false)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(cards, func(c Card) bool { return c.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	remaining := slices.Delete(slices.Clone(cards), idx, idx+1)
	encoded, err := encodeCards(remaining)
	if err != nil {
		return corruptf("re-encode records: %v", err)
	}

	next := Header{Count: h.Count - 1, MaxCards: h.MaxCards, Checksum: checksum(encoded)}
	if err := s.writeHeader(next); err != nil {
		s.log.Error("failed to shrink header", "card_id", id, "error", err)
		return err
	}

	if next.Count == 0 {
		err = s.fs.Delete(s.cards)
	} else {
		err = s.fs.Replace(s.cards, encoded)
	}
	if err != nil {
		s.log.Error("failed to rewrite records", "card_id", id, "error", err)
		if rerr := s.writeHeader(h); rerr != nil {
			s.log.Error("remove rollback incomplete", "error", rerr)
		}
		return storageErr("rewrite records", err)
	}

	s.log.Info("card removed", "card_id", id, "count", next.Count)

	return nil
}

// Check reports whether id is present and active. It never mutates.
func (s *Store) Check(ctx context.Context, id uint32) (Status, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return StatusNotFound, err
	}
	defer unlock()

	h, err := s.readHeader()
	if err != nil {
		return StatusNotFound, err
	}
	cards, err := s.readCards(h, false)
	if err != nil {
		return StatusNotFound, err
	}

	for _, c := range cards {
		if c.ID != id {
			continue
		}
		if c.Active {
			return StatusActive, nil
		}
		return StatusInactive, nil
	}

	return StatusNotFound, nil
}

// Count returns card_count from the header without touching the records file.
func (s *Store) Count(ctx context.Context) (uint16, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	h, err := s.readHeader()
	if err != nil {
		return 0, err
	}

	return h.Count, nil
}

// List returns every card in on-disk order. capacity is the most cards the caller
// can accept.
func (s *Store) List(ctx context.Context, capacity int) ([]Card, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	h, err := s.readHeader()
	if err != nil {
		return nil, err
	}
	if capacity < int(h.Count) {
		return nil, fmt.Errorf("%w: %d cards, capacity %d", ErrInsufficientCapacity, h.Count, capacity)
	}

	return s.readCards(h, false)
}

// Format resets the header to an empty database and deletes the records file. The new
// header takes the store's configured capacity; Init keeps whatever an existing header
// says, so a changed MAX_CARDS only applies from the next Format.
func (s *Store) Format(ctx context.Context) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if prev, err := s.readHeader(); err == nil && prev.MaxCards != s.maxCards {
		s.log.Info("card capacity changed", "from", prev.MaxCards, "to", s.maxCards)
	}

	if err := s.writeHeader(Header{MaxCards: s.maxCards}); err != nil {
		s.log.Error("failed to reset header", "error", err)
		return err
	}

	exists, err := s.fs.Exists(s.cards)
	if err != nil {
		return storageErr("stat records", err)
	}
	if exists {
		if err := s.fs.Delete(s.cards); err != nil {
			s.log.Error("failed to delete records", "error", err)
			return storageErr("delete records", err)
		}
	}

	s.log.Info("card database formatted", "max_cards", s.maxCards)

	return nil
}

// LoadDefaults adds the built-in cards; cards already present are left alone.
func (s *Store) LoadDefaults(ctx context.Context) error {
	for _, c := range Defaults() {
		err := s.Add(ctx, c.ID, c.Name)
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("load default card %d: %w", c.ID, err)
		}
	}
	return nil
}

// Validate checks the on-disk invariants without repairing anything.
func (s *Store) Validate(ctx context.Context) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return s.validate()
}

func (s *Store) validate() error {
	h, err := s.readHeader()
	if err != nil {
		return err
	}

	size, err := s.fs.Size(s.cards)
	if err != nil {
		return storageErr("stat records", err)
	}

	if h.Count == 0 {
		if size >= 0 {
			return corruptf("records file present (%d bytes) with zero card count", size)
		}
		if h.Checksum != 0 {
			return corruptf("checksum %08x on empty database", h.Checksum)
		}
		return nil
	}

	want := int64(h.Count) * RecordSize
	if size < 0 {
		return corruptf("records file missing for %d cards", h.Count)
	}
	if size != want {
		return corruptf("records file is %d bytes, want %d", size, want)
	}

	data, err := s.fs.ReadAll(s.cards, want)
	if err != nil {
		return storageErr("read records", err)
	}
	if sum := checksum(data); sum != h.Checksum {
		return corruptf("checksum %08x, header says %08x", sum, h.Checksum)
	}

	cards, err := decodeCards(data, int(h.Count))
	if err != nil {
		return corruptf("%v", err)
	}
	seen := make(map[uint32]struct{}, len(cards))
	for i, c := range cards {
		if c.ID == 0 {
			return corruptf("record %d has zero id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return corruptf("duplicate card id %d", c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	return nil
}

func (s *Store) readHeader() (Header, error) {
	size, err := s.fs.Size(s.header)
	if err != nil {
		return Header{}, storageErr("stat header", err)
	}
	if size < 0 {
		return Header{}, corruptf("header file missing")
	}
	if size != HeaderSize {
		return Header{}, corruptf("header is %d bytes, want %d", size, HeaderSize)
	}

	data, err := s.fs.ReadAll(s.header, HeaderSize)
	if err != nil {
		return Header{}, storageErr("read header", err)
	}

	var h Header
	if err := h.UnmarshalBinary(data); err != nil {
		return Header{}, corruptf("%v", err)
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}

	return h, nil
}

func (s *Store) writeHeader(h Header) error {
	data, err := h.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := s.fs.Replace(s.header, data); err != nil {
		return storageErr("write header", err)
	}
	return nil
}

// readCards loads the first h.Count records. Trailing bytes beyond them are ignored
// unless exact is set, in which case the file must hold exactly h.Count records.
func (s *Store) readCards(h Header, exact bool) ([]Card, error) {
	if h.Count == 0 && !exact {
		return []Card{}, nil
	}

	size, err := s.fs.Size(s.cards)
	if err != nil {
		return nil, storageErr("stat records", err)
	}

	want := int64(h.Count) * RecordSize
	switch {
	case want == 0 && size <= 0:
		return []Card{}, nil
	case size < 0:
		return nil, corruptf("records file missing for %d cards", h.Count)
	case size < want:
		return nil, corruptf("records file is %d bytes, need %d", size, want)
	case exact && size != want:
		return nil, corruptf("records file is %d bytes, want %d", size, want)
	}

	data, err := s.fs.ReadAll(s.cards, size)
	if err != nil {
		return nil, storageErr("read records", err)
	}
	if int64(len(data)) < want {
		return nil, corruptf("short read of records file: %d bytes", len(data))
	}

	cards, err := decodeCards(data[:want], int(h.Count))
	if err != nil {
		return nil, corruptf("%v", err)
	}

	return cards, nil
}
