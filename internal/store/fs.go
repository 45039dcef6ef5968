package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FSStore keeps one pid file plus one metadata JSON per record under
// <base>/<scopeID>/. The filesystem is the database: nothing is cached, so
// concurrent controller instances (including ones started after a restart)
// observe the same records.
//
// Write ordering makes records atomic enough for concurrent readers: the
// metadata JSON lands first (temp file + rename), then the pid file appears.
// List keys off pid files, so a half-written record is never returned.

type FSStore struct {
	base string
}

func NewFSStore(base string) *FSStore { return &FSStore{base: base} }

// Base returns the artifact root directory.
func (s *FSStore) Base() string { return s.base }

func (s *FSStore) List(_ context.Context, scope string) ([]Record, error) {
	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	return visible(recs, scope), nil
}

func (s *FSStore) Get(_ context.Context, name, scope string) (Record, error) {
	recs, err := s.readAll()
	if err != nil {
		return Record{}, err
	}
	rec, ok := findByName(visible(recs, scope), name, scope)
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *FSStore) Put(_ context.Context, rec Record) error {
	dir := ScopeDir(s.base, rec.Scope)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create scope dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp meta: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write meta: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close meta: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, rec.Name+".json")); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish meta: %w", err)
	}
	// The pid file is the visibility gate; it goes last.
	pidPath := filepath.Join(dir, rec.Name+".pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(rec.PID)), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (s *FSStore) Remove(ctx context.Context, name, scope string) error {
	rec, err := s.Get(ctx, name, scope)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	dir := ScopeDir(s.base, rec.Scope)
	// Pid file first so the record disappears from List immediately.
	for _, p := range []string{filepath.Join(dir, name+".pid"), filepath.Join(dir, name+".json")} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func (s *FSStore) Close() error { return nil }

// readAll scans every scope directory under base. A missing or unreadable
// base yields an empty result, not an error; the store may simply not exist
// yet.
func (s *FSStore) readAll() ([]Record, error) {
	scopes, err := os.ReadDir(s.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	var recs []Record
	for _, sd := range scopes {
		if !sd.IsDir() {
			continue
		}
		dir := filepath.Join(s.base, sd.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".pid") {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".pid")
			data, err := os.ReadFile(filepath.Join(dir, name+".json"))
			if err != nil {
				continue
			}
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil || rec.Name == "" {
				continue
			}
			recs = append(recs, rec)
		}
	}
	return recs, nil
}
