// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"maps"
	"slices"
	"strings"
)

// planItem is a single file to deliver.
type planItem struct {
	name string // file table key
	ref  string // Telegram file ID
}

// resolve maps a requested name to an ordered delivery plan.
//
// The alias table takes precedence over the file table. An alias expands
// pattern-major: every file matching the first pattern comes before any file
// matching the second, files are compared to patterns as case-insensitive
// substrings, and a file matching several patterns is planned once per
// pattern. Within a pattern, files come in sorted name order so plans are
// stable. A name that is neither an alias nor a file key yields an empty
// plan.
func resolve(name string, files map[string]string, aliases map[string][]string) []planItem {
	if patterns, ok := aliases[name]; ok {
		sorted := slices.Sorted(maps.Keys(files))
		var plan []planItem
		for _, pat := range patterns {
			pat = strings.ToLower(pat)
			if pat == "" {
				continue
			}
			for _, fname := range sorted {
				if strings.Contains(strings.ToLower(fname), pat) {
					plan = append(plan, planItem{name: fname, ref: files[fname]})
				}
			}
		}
		return plan
	}
	if ref, ok := files[name]; ok {
		return []planItem{{name: name, ref: ref}}
	}
	return nil
}
