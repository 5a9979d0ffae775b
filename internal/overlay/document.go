// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

const (
	metaKey   = "$meta"
	modesKey  = "modes"
	addSuffix = "Add"
)

// ErrInvalidDocument is returned for overlay documents that are not objects.
var ErrInvalidDocument = errors.New("invalid overlay document")

// Document is a parsed overlay.
type Document struct {
	Meta   map[string]any
	Shared map[string]any
	Modes  map[string]map[string]any
}

// ParseDocument decodes an overlay document. Numbers keep their textual form.
func ParseDocument(data []byte) (*Document, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidDocument)
	}

	doc := &Document{
		Shared: make(map[string]any),
		Modes:  make(map[string]map[string]any),
	}
	for k, v := range raw {
		switch k {
		case metaKey:
			doc.Meta, _ = v.(map[string]any)
		case modesKey:
			modes, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: modes is not an object", ErrInvalidDocument)
			}
			for mode, layer := range modes {
				if m, ok := layer.(map[string]any); ok {
					doc.Modes[mode] = m
				}
			}
		default:
			doc.Shared[k] = v
		}
	}
	return doc, nil
}

// Layer returns the effective patch layer for a game mode.
func (d *Document) Layer(gameMode string) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return DeepMerge(d.Shared, d.Modes[gameMode])
}

// Version returns $meta.version when present.
func (d *Document) Version() string {
	if d == nil || d.Meta == nil {
		return ""
	}
	v, _ := d.Meta["version"].(string)
	return v
}

// ApplyLayer patches every array collection of data that has patches or
// additions in layer. It returns the number of collections changed.
func ApplyLayer(data, layer map[string]any) int {
	changed := 0
	for name, value := range data {
		items, ok := value.([]any)
		if !ok {
			continue
		}
		patches, hasPatches := layer[name].(map[string]any)
		adds, hasAdds := layer[name+addSuffix].(map[string]any)
		if !hasPatches && !hasAdds {
			continue
		}
		if hasPatches {
			items = MergeArrayByIDPatches(items, patches)
		}
		if hasAdds {
			items = appendMissing(items, adds)
		}
		data[name] = items
		changed++
	}
	return changed
}

// appendMissing appends additions whose id is not present, in id order.
// An addition without an id takes its map key.
func appendMissing(items []any, adds map[string]any) []any {
	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			if id, ok := obj["id"].(string); ok {
				present[id] = struct{}{}
			}
		}
	}

	ids := make([]string, 0, len(adds))
	for id := range adds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, key := range ids {
		entry, ok := adds[key].(map[string]any)
		if !ok {
			continue
		}
		entry = DeepMerge(entry, nil)
		id, _ := entry["id"].(string)
		if id == "" {
			id = key
			entry["id"] = key
		}
		if _, exists := present[id]; exists {
			continue
		}
		present[id] = struct{}{}
		items = append(items, entry)
	}
	return items
}

// Collections lists the collections a layer patches or extends.
func Collections(layer map[string]any) []string {
	seen := make(map[string]struct{})
	for k := range layer {
		seen[strings.TrimSuffix(k, addSuffix)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// decodeObject decodes data as a JSON object, returning nil for valid JSON
// that is not an object.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}
