package card

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_Layout(t *testing.T) {
	h := Header{Count: 3, MaxCards: 200, Checksum: 0xDEADBEEF}

	b, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, HeaderSize)

	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(b[0:2]))
	assert.Equal(t, uint16(200), binary.LittleEndian.Uint16(b[2:4]))
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(b[4:8]))

	var got Header
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, h, got)
}

func TestHeader_UnmarshalWrongSize(t *testing.T) {
	var h Header
	assert.Error(t, h.UnmarshalBinary(make([]byte, HeaderSize-1)))
	assert.Error(t, h.UnmarshalBinary(make([]byte, HeaderSize+1)))
}

func TestHeader_Validate(t *testing.T) {
	assert.NoError(t, Header{Count: 0, MaxCards: 0}.Validate())
	assert.NoError(t, Header{Count: 200, MaxCards: 200}.Validate())
	assert.ErrorIs(t, Header{Count: 201, MaxCards: 200}.Validate(), ErrCorruptState)
}

func TestCard_Layout(t *testing.T) {
	c := Card{ID: 0x01020304, Active: true, Name: "Door A", LastSeen: 1700000000}

	b, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, RecordSize)

	assert.Equal(t, uint32(0x01020304), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, byte(1), b[4])
	assert.Equal(t, "Door A", string(b[5:11]))
	assert.Equal(t, byte(0), b[11], "name must be NUL padded")
	assert.Equal(t, uint32(1700000000), binary.LittleEndian.Uint32(b[36:40]))

	var got Card
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, c, got)
}

func TestCard_FullLengthName(t *testing.T) {
	c := Card{ID: 7, Name: strings.Repeat("n", MaxNameLen)}

	b, err := c.MarshalBinary()
	require.NoError(t, err)

	var got Card
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, c.Name, got.Name)
	assert.False(t, got.Active)
}

func TestCard_MarshalRejectsLongName(t *testing.T) {
	_, err := Card{ID: 1, Name: strings.Repeat("x", MaxNameLen+1)}.MarshalBinary()
	assert.Error(t, err)
}

func TestCard_UnmarshalRejectsBadActiveFlag(t *testing.T) {
	b, err := Card{ID: 1, Name: "x"}.MarshalBinary()
	require.NoError(t, err)
	b[4] = 2

	var c Card
	assert.Error(t, c.UnmarshalBinary(b))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "short", input: "Alice", want: "Alice"},
		{name: "exact limit", input: strings.Repeat("a", MaxNameLen), want: strings.Repeat("a", MaxNameLen)},
		{name: "truncated", input: strings.Repeat("b", 40), want: strings.Repeat("b", MaxNameLen)},
		// 15 two-byte runes = 30 bytes, the 16th would end at byte 32
		{name: "rune boundary", input: strings.Repeat("ж", 16), want: strings.Repeat("ж", 15)},
		{name: "empty", input: "", wantErr: true},
		{name: "nul", input: "a\x00b", wantErr: true},
		{name: "invalid utf8", input: "\xff\xfe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxNameLen)
		})
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusActive.Found())
	assert.True(t, StatusInactive.Found())
	assert.False(t, StatusNotFound.Found())
	assert.Equal(t, "inactive", StatusInactive.String())
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	require.NotEmpty(t, defaults)
	assert.Equal(t, AdminCardID, defaults[0].ID)
	assert.True(t, IsDefault(AdminCardID))
	assert.False(t, IsDefault(42))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "ok", Code(nil))
	assert.Equal(t, "not_found", Code(fmt.Errorf("remove: %w", ErrNotFound)))
	assert.Equal(t, "storage_unavailable", Code(storageErr("write header", errors.New("eio"))))
	assert.Equal(t, "corrupt_state", Code(corruptf("bad %d", 1)))
	assert.Equal(t, "internal", Code(errors.New("boom")))
}
