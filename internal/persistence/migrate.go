package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/hexfleet/internal/game"
)

// migrations upgrade a raw document from the key version to key+1.
var migrations = map[int]func(doc map[string]any) error{
	1: migrateV1,
}

// migrate walks doc forward to game.Version.
func migrate(doc map[string]any) error {
	v, err := docVersion(doc)
	if err != nil {
		return err
	}
	for v < game.Version {
		step, ok := migrations[v]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		if err := step(doc); err != nil {
			return fmt.Errorf("migrate v%d: %w", v, err)
		}
		v++
		doc["version"] = v
	}
	if v != game.Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	return nil
}

func docVersion(doc map[string]any) (int, error) {
	switch v := doc["version"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: version %q", ErrUnsupportedVersion, v)
		}
		return int(n), nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case nil:
		return 0, fmt.Errorf("%w: missing version", ErrUnsupportedVersion)
	default:
		return 0, fmt.Errorf("%w: version %v", ErrUnsupportedVersion, v)
	}
}

// migrateV1 moves planet control from the flat v1 fields
// (controller, ground_troops, fortification) into the defense block.
func migrateV1(doc map[string]any) error {
	galaxy, ok := doc["galaxy"].(map[string]any)
	if !ok {
		return nil
	}
	for _, rawSys := range galaxy {
		sys, ok := rawSys.(map[string]any)
		if !ok {
			continue
		}
		planets, ok := sys["planets"].(map[string]any)
		if !ok {
			continue
		}
		for _, rawPlanet := range planets {
			p, ok := rawPlanet.(map[string]any)
			if !ok {
				continue
			}
			if _, done := p["defense"]; done {
				continue
			}
			control := p["controller"]
			if control == nil {
				control = "NEUTRAL"
			}
			p["defense"] = map[string]any{
				"control":       control,
				"garrison":      numberOr(p["ground_troops"], 0),
				"fortification": numberOr(p["fortification"], 0),
				"unrest":        0,
			}
			delete(p, "controller")
			delete(p, "ground_troops")
			delete(p, "fortification")
		}
	}
	return nil
}

func numberOr(v any, fallback int) any {
	if v == nil {
		return fallback
	}
	return v
}
