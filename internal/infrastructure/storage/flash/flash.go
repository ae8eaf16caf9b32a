// Package flash is the byte-level filesystem adapter over the device's flash mount.
// It knows nothing about card records: callers get existence, size, whole-file read,
// append/overwrite write, delete and rename.
package flash

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

var (
	ErrNotMounted  = errors.New("filesystem not mounted")
	ErrNotExist    = errors.New("file does not exist")
	ErrShortBuffer = errors.New("file larger than read buffer")
	ErrIO          = errors.New("filesystem i/o failure")
)

const (
	filePerm  = 0o644
	dirPerm   = 0o755
	tmpSuffix = ".tmp"
	probeName = "/.probe"
)

// FS is a mounted view of the flash partition. Paths are relative to the mount root.
type FS struct {
	fs      afero.Fs
	log     *slog.Logger
	mounted bool
}

// New wraps an afero filesystem. Use NewOS for the real partition and
// afero.NewMemMapFs in tests.
func New(fsys afero.Fs, log *slog.Logger) *FS {
	return &FS{
		fs:  fsys,
		log: log.With("component", "flash"),
	}
}

// NewOS roots the adapter at dir on the host filesystem.
func NewOS(dir string, log *slog.Logger) *FS {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), log)
}

// Mount creates the mount root if needed and proves it is writable.
func (f *FS) Mount() error {
	if err := f.fs.MkdirAll("/", dirPerm); err != nil {
		return fmt.Errorf("%w: create mount root: %w", ErrIO, err)
	}

	if err := afero.WriteFile(f.fs, probeName, []byte{0}, filePerm); err != nil {
		return fmt.Errorf("%w: probe write: %w", ErrIO, err)
	}
	if err := f.fs.Remove(probeName); err != nil {
		return fmt.Errorf("%w: probe remove: %w", ErrIO, err)
	}

	f.mounted = true

	files, used, err := f.Usage()
	if err != nil {
		f.log.Warn("failed to read partition usage", "error", err)
	} else {
		f.log.Info("flash mounted", "files", files, "used_bytes", used)
	}

	return nil
}

// Mounted reports whether Mount succeeded.
func (f *FS) Mounted() bool {
	return f.mounted
}

func (f *FS) Exists(name string) (bool, error) {
	if !f.mounted {
		return false, ErrNotMounted
	}
	name = clean(name)

	ok, err := afero.Exists(f.fs, name)
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", ErrIO, name, err)
	}

	return ok, nil
}

// Size returns the file length in bytes, or -1 if the file is absent.
func (f *FS) Size(name string) (int64, error) {
	if !f.mounted {
		return -1, ErrNotMounted
	}
	name = clean(name)

	info, err := f.fs.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("%w: stat %s: %w", ErrIO, name, err)
	}

	return info.Size(), nil
}

// ReadAll returns the whole file. It fails with ErrShortBuffer when the file is larger
// than limit bytes; limit <= 0 means no limit.
func (f *FS) ReadAll(name string, limit int64) ([]byte, error) {
	if !f.mounted {
		return nil, ErrNotMounted
	}
	name = clean(name)

	file, err := f.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, name, err)
	}
	defer file.Close()

	var r io.Reader = file
	if limit > 0 {
		r = io.LimitReader(file, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrShortBuffer, name, limit)
	}

	f.log.Debug("file read", "path", name, "bytes", len(data))

	return data, nil
}

// WriteAll appends to or overwrites name. Without create the file must already exist.
func (f *FS) WriteAll(name string, data []byte, appendMode, create bool) error {
	if !f.mounted {
		return ErrNotMounted
	}
	name = clean(name)

	flags := os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	if create {
		flags |= os.O_CREATE
	}

	file, err := f.fs.OpenFile(name, flags, filePerm)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, name, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, name, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrIO, name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, name, err)
	}

	f.log.Debug("file written", "path", name, "bytes", len(data), "append", appendMode)

	return nil
}

// Replace overwrites name through a temporary file and a rename, so readers see either
// the old or the new content.
func (f *FS) Replace(name string, data []byte) error {
	tmp := clean(name) + tmpSuffix
	if err := f.WriteAll(tmp, data, false, true); err != nil {
		return err
	}

	if err := f.Rename(tmp, name); err != nil {
		_ = f.fs.Remove(tmp)
		return err
	}

	return nil
}

func (f *FS) Delete(name string) error {
	if !f.mounted {
		return ErrNotMounted
	}
	name = clean(name)

	err := f.fs.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, name, err)
	}

	f.log.Debug("file deleted", "path", name)

	return nil
}

// Rename moves oldName over newName, replacing it.
func (f *FS) Rename(oldName, newName string) error {
	if !f.mounted {
		return ErrNotMounted
	}
	oldName, newName = clean(oldName), clean(newName)

	if err := f.fs.Rename(oldName, newName); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, oldName)
		}
		return fmt.Errorf("%w: rename %s: %w", ErrIO, oldName, err)
	}

	return nil
}

// FileInfo describes one file on the partition.
type FileInfo struct {
	Name string
	Size int64
}

// List returns the regular files on the partition sorted by name.
func (f *FS) List() ([]FileInfo, error) {
	if !f.mounted {
		return nil, ErrNotMounted
	}

	var files []FileInfo
	err := afero.Walk(f.fs, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, FileInfo{Name: path.Clean("/" + p), Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk: %w", ErrIO, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}

// Usage returns the number of files and bytes used on the partition.
func (f *FS) Usage() (int, int64, error) {
	files, err := f.List()
	if err != nil {
		return 0, 0, err
	}

	var used int64
	for _, fi := range files {
		used += fi.Size
	}

	return len(files), used, nil
}

func clean(name string) string {
	return path.Join("/", name)
}
