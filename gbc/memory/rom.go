package memory

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/spf13/afero"
)

// ErrEmptyArchive is returned for archives that hold no ROM file.
var ErrEmptyArchive = errors.New("archive contains no files")

// LoadROM reads a ROM image from fs. Images inside .zip, .7z and .gz files
// are decompressed; for archives, the first .gb/.gbc entry is used, or the
// first entry if none has a ROM extension.
func LoadROM(fs afero.Fs, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		r, err := zip.NewReader(f, info.Size())
		if err != nil {
			return nil, fmt.Errorf("reading zip %s: %w", path, err)
		}
		names := make([]string, len(r.File))
		for i, file := range r.File {
			names[i] = file.Name
		}
		i, err := pickROM(names)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return readEntry(r.File[i].Open)
	case ".7z":
		r, err := sevenzip.NewReader(f, info.Size())
		if err != nil {
			return nil, fmt.Errorf("reading 7z %s: %w", path, err)
		}
		names := make([]string, len(r.File))
		for i, file := range r.File {
			names[i] = file.Name
		}
		i, err := pickROM(names)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return readEntry(r.File[i].Open)
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading gzip %s: %w", path, err)
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}

	return io.ReadAll(f)
}

func pickROM(names []string) (int, error) {
	if len(names) == 0 {
		return 0, ErrEmptyArchive
	}
	for i, name := range names {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".gb", ".gbc":
			return i, nil
		}
	}
	return 0, nil
}

func readEntry(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LoadCartridge loads and parses a ROM image from fs.
func LoadCartridge(fs afero.Fs, path string) (*Cartridge, error) {
	data, err := LoadROM(fs, path)
	if err != nil {
		return nil, err
	}
	cart, err := NewCartridgeWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cart, nil
}
