package card

import (
	"context"
	"io"
	"testing"
	"time"

	"doorkeeper/internal/infrastructure/storage/flash"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var testNow = time.Unix(1700000000, 0)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyFS fails selected operations on selected paths.
type faultyFS struct {
	*flash.FS
	failAppend  map[string]bool
	failReplace map[string]bool
	failDelete  map[string]bool
	failMount   bool
	// tornAppend writes the first n bytes of an append, then fails.
	tornAppend map[string]int
}

func newFaultyFS(mem afero.Fs) *faultyFS {
	return &faultyFS{
		FS:          flash.New(mem, discardLogger()),
		failAppend:  map[string]bool{},
		failReplace: map[string]bool{},
		failDelete:  map[string]bool{},
		tornAppend:  map[string]int{},
	}
}

func (f *faultyFS) Mount() error {
	if f.failMount {
		return flash.ErrIO
	}
	return f.FS.Mount()
}

func (f *faultyFS) WriteAll(name string, data []byte, appendMode, create bool) error {
	if appendMode && f.failAppend[name] {
		return flash.ErrIO
	}
	if n, ok := f.tornAppend[name]; ok && appendMode {
		delete(f.tornAppend, name)
		if err := f.FS.WriteAll(name, data[:min(n, len(data))], appendMode, create); err != nil {
			return err
		}
		return flash.ErrIO
	}
	return f.FS.WriteAll(name, data, appendMode, create)
}

func (f *faultyFS) Replace(name string, data []byte) error {
	if f.failReplace[name] {
		return flash.ErrIO
	}
	return f.FS.Replace(name, data)
}

func (f *faultyFS) Delete(name string) error {
	if f.failDelete[name] {
		return flash.ErrIO
	}
	return f.FS.Delete(name)
}

const (
	headerPath = "/" + DefaultHeaderFile
	cardsPath  = "/" + DefaultCardsFile
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *faultyFS) {
	t.Helper()

	fsys := newFaultyFS(afero.NewMemMapFs())
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	store := NewStore(fsys, discardLogger(), opts...)

	require.NoError(t, store.Init(context.Background()))

	return store, fsys
}

func mustAdd(t *testing.T, s *Store, cards ...Card) {
	t.Helper()
	for _, c := range cards {
		require.NoError(t, s.Add(context.Background(), c.ID, c.Name))
	}
}

func mustCount(t *testing.T, s *Store) uint16 {
	t.Helper()
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	return n
}

func writeRaw(t *testing.T, fsys *faultyFS, h Header, cards []Card) {
	t.Helper()

	hdr, err := h.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, fsys.FS.Replace(headerPath, hdr))

	if len(cards) == 0 {
		return
	}
	recs, err := encodeCards(cards)
	require.NoError(t, err)
	require.NoError(t, fsys.FS.Replace(cardsPath, recs))
}
