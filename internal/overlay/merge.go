// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package overlay

// DeepMerge returns a new map holding target with patch merged in.
// Nested objects merge recursively; scalars and arrays in patch replace
// the target value; keys absent from patch keep the target value.
// Neither input is mutated and the result shares no maps or slices with them.
func DeepMerge(target, patch map[string]any) map[string]any {
	out := make(map[string]any, len(target)+len(patch))
	for k, v := range target {
		out[k] = cloneValue(v)
	}
	for k, pv := range patch {
		pm, patchIsMap := pv.(map[string]any)
		tm, targetIsMap := out[k].(map[string]any)
		if patchIsMap && targetIsMap {
			out[k] = DeepMerge(tm, pm)
			continue
		}
		out[k] = cloneValue(pv)
	}
	return out
}

// MergeArrayByIDPatches deep-merges patches[id] onto each object entry of
// items carrying that id. Entries without a matching patch, entries that
// are not objects, and non-object patches are left as they were.
func MergeArrayByIDPatches(items []any, patches map[string]any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out[i] = cloneValue(item)
			continue
		}
		id, _ := obj["id"].(string)
		patch, ok := patches[id].(map[string]any)
		if id == "" || !ok {
			out[i] = cloneValue(obj)
			continue
		}
		out[i] = DeepMerge(obj, patch)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}
