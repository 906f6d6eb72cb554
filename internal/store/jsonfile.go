// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"crawshaw.dev/jsonfile"
)

// JSONFile is a file-backed implementation of the [Store] interface.
type JSONFile struct {
	f   *jsonfile.JSONFile[jsonStore]
	now func() time.Time
}

type jsonStore struct {
	Data map[string]jsonEntry `json:"data"`
}

type jsonEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// NewJSONFile creates a new [JSONFile] backed by the file at path.
func NewJSONFile(path string) (*JSONFile, error) {
	f, err := jsonfile.Load[jsonStore](path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = jsonfile.New[jsonStore](path)
		if err == nil {
			err = f.Write(func(js *jsonStore) error {
				js.Data = make(map[string]jsonEntry)
				return nil
			})
		}
	}
	if err != nil {
		return nil, err
	}

	s := &JSONFile{f: f, now: time.Now}
	s.sweep()
	return s, nil
}

func (s *JSONFile) sweep() {
	now := s.now()
	s.f.Write(func(js *jsonStore) error {
		for key, e := range js.Data {
			if expired(now, e.ExpiresAt) {
				delete(js.Data, key)
			}
		}
		return nil
	})
}

// Get retrieves a value for a given key.
func (s *JSONFile) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	now := s.now()
	err := s.f.Write(func(js *jsonStore) error {
		e, ok := js.Data[key]
		if !ok {
			return nil
		}
		if expired(now, e.ExpiresAt) {
			delete(js.Data, key)
			return nil
		}
		val = e.Value
		return nil
	})
	return val, err
}

// Set stores a value for a given key.
func (s *JSONFile) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := jsonEntry{
		Value:     val,
		ExpiresAt: expiry(s.now(), ttl),
	}
	return s.f.Write(func(js *jsonStore) error {
		if js.Data == nil {
			js.Data = make(map[string]jsonEntry)
		}
		js.Data[key] = e
		return nil
	})
}

// Delete removes a key.
func (s *JSONFile) Delete(_ context.Context, key string) error {
	return s.f.Write(func(js *jsonStore) error {
		delete(js.Data, key)
		return nil
	})
}

// Close closes the file store.
func (s *JSONFile) Close() error { return nil }
