package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// applyPatch applies patch to a decoded JSON document in place, creating
// intermediate objects as needed.
func applyPatch(doc map[string]any, patch Patch) error {
	for _, f := range patch {
		keys := strings.Split(strings.TrimPrefix(f.Path, "$."), ".")
		parent := doc
		for _, k := range keys[:len(keys)-1] {
			next, ok := parent[k].(map[string]any)
			if !ok {
				if f.Value == nil {
					parent = nil
					break
				}
				next = make(map[string]any)
				parent[k] = next
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		last := keys[len(keys)-1]
		if f.Value == nil {
			delete(parent, last)
			continue
		}

		// Round-trip through JSON so typed values (Game, Role, structs) are
		// stored the way json.Marshal renders them.
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", f.Path, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		parent[last] = v
	}
	return nil
}
