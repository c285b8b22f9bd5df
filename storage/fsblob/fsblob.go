// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fsblob provides a filesystem-backed blob store. Locators are
// paths relative to a root directory; paths escaping the root are rejected.
package fsblob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docquery/storage"
)

type Store struct {
	root string
}

var _ storage.BlobStore = (*Store)(nil)

// NewStore creates a blob store rooted at the given directory.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving blob root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blob root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob root %s is not a directory", abs)
	}
	return &Store{root: abs}, nil
}

func (s *Store) resolve(locator string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(locator))
	if path != s.root && !strings.HasPrefix(path, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("locator %q escapes blob root", locator)
	}
	return path, nil
}

func (s *Store) Exists(ctx context.Context, locator string) (bool, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %s: %w", locator, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *Store) Size(ctx context.Context, locator string) (int64, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", storage.ErrNotFound, locator)
	}
	return info.Size(), nil
}

func (s *Store) Read(ctx context.Context, locator string) ([]byte, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, locator)
		}
		return nil, fmt.Errorf("reading blob %s: %w", locator, err)
	}
	return data, nil
}
