// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tables persists the bot's lookup tables as JSON files.
//
// Each table is a flat JSON object stored in a file inside the state
// directory. When a gist mirror is configured, reads fall back to the
// mirror if the local copy is missing, and every save is pushed to the
// mirror as well. The local copy is the source of truth: a failed mirror
// push is logged and ignored, a failed local write is returned to the
// caller.
package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.astrophena.name/base/logger"
	"go.astrophena.name/vaultbot/internal/api/gist"
)

// Store reads and writes named tables.
type Store struct {
	// Dir is the directory holding local table files.
	Dir string
	// Logf is used to report non-fatal failures. If nil, they are dropped.
	Logf logger.Logf
	// Gist and GistID configure the optional remote mirror. The mirror is
	// used only when both are set.
	Gist   *gist.Client
	GistID string
}

func (s *Store) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

func (s *Store) mirrored() bool { return s.Gist != nil && s.GistID != "" }

// Load reads the named table. It prefers the local copy and falls back to
// the gist mirror if there is none. A missing or unparsable table yields an
// empty map, never an error: the bot keeps running with whatever state it
// can recover.
func Load[M ~map[string]V, V any](ctx context.Context, s *Store, name string) M {
	b, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err == nil {
		var m M
		if err := json.Unmarshal(b, &m); err != nil {
			s.logf("tables: unparsable local copy of %s: %v; treating as empty", name, err)
			return make(M)
		}
		if m == nil {
			return make(M)
		}
		return m
	}

	if s.mirrored() {
		g, err := s.Gist.Get(ctx, s.GistID)
		if err != nil {
			s.logf("tables: fetching mirror of %s: %v; treating as empty", name, err)
			return make(M)
		}
		if f, ok := g.Files[name]; ok {
			var m M
			if err := json.Unmarshal([]byte(f.Content), &m); err != nil {
				s.logf("tables: unparsable mirror of %s: %v; treating as empty", name, err)
				return make(M)
			}
			if m != nil {
				return m
			}
		}
	}

	return make(M)
}

// Save writes the named table locally and pushes it to the gist mirror when
// one is configured. A local write failure is returned; a mirror push
// failure is only logged, local state remains authoritative until the next
// successful sync.
func Save[M ~map[string]V, V any](ctx context.Context, s *Store, name string, table M) error {
	b, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if err := os.WriteFile(filepath.Join(s.Dir, name), b, 0o600); err != nil {
		return fmt.Errorf("tables: writing %s: %w", name, err)
	}

	if !s.mirrored() {
		return nil
	}
	ng := &gist.Gist{
		Files: map[string]gist.File{
			name: {Content: string(b)},
		},
	}
	if _, err := s.Gist.Update(ctx, s.GistID, ng); err != nil {
		s.logf("tables: pushing %s to mirror: %v", name, err)
	}
	return nil
}
