package wrap

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
)

var (
	createTempFile = os.CreateTemp
	linkFile       = os.Link
)

var fileRecordMagic = []byte("WSR1")

type fileStore struct {
	dir string
}

func newFileStore(dir string) SlotStore {
	if dir == "" {
		dir = defaultFileDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	return &fileStore{dir: dir}
}

func (s *fileStore) Driver() Driver {
	return DriverFile
}

func (s *fileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	value, err := decodeFileRecord(data)
	if err != nil {
		_ = os.Remove(path)
		return nil, false, err
	}
	return value, true, nil
}

func (s *fileStore) Store(_ context.Context, key string, value []byte) (bool, error) {
	tmp, err := createTempFile(s.dir, "slot-*")
	if err != nil {
		return false, err
	}
	tmpPath := tmp.Name()

	record := make([]byte, 0, len(fileRecordMagic)+len(value))
	record = append(record, fileRecordMagic...)
	record = append(record, value...)

	if _, err := tmp.Write(record); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, err
	}

	// Hard link publishes the record atomically and fails when the slot
	// already exists, which gives the first-writer-wins contract.
	err = linkFile(tmpPath, s.path(key))
	_ = os.Remove(tmpPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *fileStore) Forget(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *fileStore) Flush(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		// Only slot records; the directory may be shared with other files.
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".slot" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *fileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".slot")
}

func decodeFileRecord(data []byte) ([]byte, error) {
	if len(data) < len(fileRecordMagic) || !bytes.Equal(data[:len(fileRecordMagic)], fileRecordMagic) {
		return nil, errors.New("wrap: corrupt slot record")
	}
	return cloneBytes(data[len(fileRecordMagic):]), nil
}
