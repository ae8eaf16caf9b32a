package card

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
	"time"
	"unicode/utf8"
)

/*
Persisted layout, little-endian.

Header file, HeaderSize bytes:

	| card_count u16 | max_cards u16 | checksum u32 |

Records file, card_count * RecordSize bytes, one record per card:

	| card_id u32 @0 | active u8 @4 | name [31]byte @5 | last_seen u32 @36 |

The name is NUL padded. A name of exactly MaxNameLen bytes fills the field and its
terminator is implicit. checksum is CRC-32 (IEEE) over the first card_count records.
*/
const (
	HeaderSize = 8
	RecordSize = 40
	MaxNameLen = 31

	DefaultMaxCards = 200

	nameOffset      = 5
	timestampOffset = nameOffset + MaxNameLen
)

// AdminCardID is the protected card that Remove refuses to delete.
const AdminCardID uint32 = 0x00C0FFEE

// Header is the fixed-size metadata record of the card database.
type Header struct {
	Count    uint16
	MaxCards uint16
	Checksum uint32
}

func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(b[0:2], h.Count)
	binary.LittleEndian.PutUint16(b[2:4], h.MaxCards)
	binary.LittleEndian.PutUint32(b[4:8], h.Checksum)
	return b, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("header is %d bytes, want %d", len(data), HeaderSize)
	}
	h.Count = binary.LittleEndian.Uint16(data[0:2])
	h.MaxCards = binary.LittleEndian.Uint16(data[2:4])
	h.Checksum = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// Validate checks 0 <= Count <= MaxCards.
func (h Header) Validate() error {
	if h.Count > h.MaxCards {
		return corruptf("card count %d exceeds capacity %d", h.Count, h.MaxCards)
	}
	return nil
}

// Card is one persisted credential.
type Card struct {
	ID       uint32
	Active   bool
	Name     string
	LastSeen uint32
}

// Seen returns LastSeen as a time.
func (c Card) Seen() time.Time {
	return time.Unix(int64(c.LastSeen), 0).UTC()
}

func (c Card) MarshalBinary() ([]byte, error) {
	if len(c.Name) > MaxNameLen {
		return nil, fmt.Errorf("name is %d bytes, max %d", len(c.Name), MaxNameLen)
	}

	b := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(b[0:4], c.ID)
	if c.Active {
		b[4] = 1
	}
	copy(b[nameOffset:timestampOffset], c.Name)
	binary.LittleEndian.PutUint32(b[timestampOffset:RecordSize], c.LastSeen)
	return b, nil
}

func (c *Card) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return fmt.Errorf("record is %d bytes, want %d", len(data), RecordSize)
	}

	active := data[4]
	if active > 1 {
		return fmt.Errorf("invalid active flag %d", active)
	}

	name := data[nameOffset:timestampOffset]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	c.ID = binary.LittleEndian.Uint32(data[0:4])
	c.Active = active == 1
	c.Name = string(name)
	c.LastSeen = binary.LittleEndian.Uint32(data[timestampOffset:RecordSize])
	return nil
}

// Status is the result of a membership check.
type Status int

const (
	StatusNotFound Status = iota
	StatusActive
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return "not_found"
	}
}

func (s Status) Found() bool {
	return s != StatusNotFound
}

// NormalizeName validates a card name and truncates it to MaxNameLen bytes on a rune
// boundary.
func NormalizeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidArgument)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidArgument)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return "", fmt.Errorf("%w: name contains NUL", ErrInvalidArgument)
	}

	if len(name) <= MaxNameLen {
		return name, nil
	}

	cut := MaxNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut], nil
}

func encodeCards(cards []Card) ([]byte, error) {
	buf := make([]byte, 0, len(cards)*RecordSize)
	for _, c := range cards {
		rec, err := c.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode card %d: %w", c.ID, err)
		}
		buf = append(buf, rec...)
	}
	return buf, nil
}

func decodeCards(data []byte, count int) ([]Card, error) {
	cards := make([]Card, count)
	for i := range cards {
		off := i * RecordSize
		if err := cards[i].UnmarshalBinary(data[off : off+RecordSize]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return cards, nil
}

func checksum(records []byte) uint32 {
	return crc32.ChecksumIEEE(records)
}

// Defaults returns the built-in cards seeded by LoadDefaults, admin card first.
func Defaults() []Card {
	return []Card{
		{ID: AdminCardID, Active: true, Name: "Admin"},
		{ID: 0x00BADA55, Active: true, Name: "Maintenance"},
		{ID: 0x0001CAFE, Active: true, Name: "Installer"},
	}
}

// IsDefault reports whether id belongs to a built-in card.
func IsDefault(id uint32) bool {
	for _, c := range Defaults() {
		if c.ID == id {
			return true
		}
	}
	return false
}
