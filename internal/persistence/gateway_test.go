package persistence

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/talgya/hexfleet/internal/fleet"
	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/world"
)

// fixture builds a small mid-game state: fleets, a partly mined field, a
// running siege and some journal entries.
func fixture(t *testing.T) *game.State {
	t.Helper()
	starter, err := world.Generate(world.CoreOnlyConfig(11))
	if err != nil {
		t.Fatal(err)
	}
	st := game.New(11)
	st.Galaxy = starter.Galaxy
	st.HomeID = starter.HomeID
	st.Turn = 4

	miner, _ := fleet.Lookup("miner")
	frigate, _ := fleet.Lookup("frigate")
	f := st.AddFleet("Prospector", world.FactionPlayer, "kessler-belt", []fleet.Blueprint{miner}, nil)
	f.MovesLeft = 1
	st.AddFleet("Raiders", world.FactionEnemy, "sable-verge", []fleet.Blueprint{frigate}, nil)

	st.System("kessler-belt").Scan()
	st.System("kessler-belt").Asteroids.YieldRemaining = 97.5
	halcyon := st.System("halcyon").Planet("halcyon-iv")
	halcyon.Defense.Control = world.FactionContested
	halcyon.Invasion = &world.Invasion{Attacker: world.FactionPlayer, Defender: world.FactionNeutral, InvasionStrength: 6, TurnsOngoing: 1}

	st.Resources.TieredMetals.T1 = 13
	st.Resources.TieredMetals.T3 = 2
	st.SelectedSystemID = "kessler-belt"
	st.SelectedFleetID = f.ID
	for i := 0; i < 5; i++ {
		st.Log(intel.KindMine, "dig %d", i)
	}
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := fixture(t)
	store := NewMemoryStore()

	n, err := Save(store, SaveKey, st)
	if err != nil {
		t.Fatal(err)
	}
	if n <= 0 {
		t.Errorf("expected a positive size, got %d", n)
	}

	got, err := Load(store, SaveKey)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.Clone(), got) {
		t.Error("loaded state differs from the saved state")
	}
}

func TestRecordIsCompressedAndChecksummed(t *testing.T) {
	rec, err := Encode(fixture(t))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Codec != CodecLZ4 || len(rec.Checksum) != 64 {
		t.Errorf("unexpected envelope codec=%q checksum=%q", rec.Codec, rec.Checksum)
	}
	if string(rec.Data[:4]) != string(lz4FrameMagic) {
		t.Error("data should be an lz4 frame")
	}

	// Without a codec the frame magic is sniffed.
	rec.Codec = ""
	if _, err := Decode(rec); err != nil {
		t.Errorf("sniffed decode failed: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(NewMemoryStore(), SaveKey); !errors.Is(err, ErrNoSave) {
		t.Errorf("expected ErrNoSave, got %v", err)
	}
}

func rawRecord(t *testing.T, doc map[string]any) Record {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return Record{Data: data, Codec: CodecJSON}
}

func docOf(t *testing.T, st *game.State) map[string]any {
	t.Helper()
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestDecodeRejects(t *testing.T) {
	rec, err := Encode(fixture(t))
	if err != nil {
		t.Fatal(err)
	}
	tampered := rec
	tampered.Data = append([]byte(nil), rec.Data...)
	tampered.Data[len(tampered.Data)-1] ^= 0xFF
	if _, err := Decode(tampered); !errors.Is(err, ErrChecksum) {
		t.Errorf("tampered data: expected ErrChecksum, got %v", err)
	}

	if _, err := Decode(Record{Data: []byte("{not json"), Codec: CodecJSON}); !errors.Is(err, ErrMalformed) {
		t.Errorf("garbage: expected ErrMalformed, got %v", err)
	}
	if _, err := Decode(Record{Data: []byte("{}"), Codec: "zstd"}); !errors.Is(err, ErrMalformed) {
		t.Errorf("unknown codec: expected ErrMalformed, got %v", err)
	}

	doc := docOf(t, fixture(t))
	doc["version"] = 99
	if _, err := Decode(rawRecord(t, doc)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("future version: expected ErrUnsupportedVersion, got %v", err)
	}

	doc = docOf(t, fixture(t))
	delete(doc, "version")
	if _, err := Decode(rawRecord(t, doc)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("no version: expected ErrUnsupportedVersion, got %v", err)
	}

	doc = docOf(t, fixture(t))
	delete(doc, "galaxy")
	if _, err := Decode(rawRecord(t, doc)); !errors.Is(err, ErrMissingField) {
		t.Errorf("no galaxy: expected ErrMissingField, got %v", err)
	}

	doc = docOf(t, fixture(t))
	doc["fleets"].(map[string]any)["F-1"].(map[string]any)["location"] = "nowhere"
	if _, err := Decode(rawRecord(t, doc)); !errors.Is(err, ErrMalformed) {
		t.Errorf("dangling fleet: expected ErrMalformed, got %v", err)
	}

	system := func(doc map[string]any, id string) map[string]any {
		return doc["galaxy"].(map[string]any)[id].(map[string]any)
	}
	corrupt := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"null system", func(doc map[string]any) {
			doc["galaxy"].(map[string]any)["ashfall"] = nil
		}},
		{"null planet", func(doc map[string]any) {
			system(doc, "haven")["planets"].(map[string]any)["haven-prime"] = nil
		}},
		{"huge journal", func(doc map[string]any) {
			doc["intel_log"].(map[string]any)["capacity"] = int64(1) << 40
		}},
		{"overfull field", func(doc map[string]any) {
			system(doc, "kessler-belt")["asteroids"].(map[string]any)["yield_remaining"] = 250
		}},
		{"negative garrison", func(doc map[string]any) {
			planet := system(doc, "haven")["planets"].(map[string]any)["haven-prime"].(map[string]any)
			planet["defense"].(map[string]any)["garrison"] = -4
		}},
		{"tier zero", func(doc map[string]any) {
			system(doc, "ashfall")["tier"] = 0
		}},
		{"bad intel", func(doc map[string]any) {
			system(doc, "ashfall")["intel"] = "RUMOURED"
		}},
	}
	for _, tc := range corrupt {
		t.Run(tc.name, func(t *testing.T) {
			doc := docOf(t, fixture(t))
			tc.mutate(doc)
			if _, err := Decode(rawRecord(t, doc)); !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecodeBackfillsMetals(t *testing.T) {
	doc := docOf(t, fixture(t))
	delete(doc["resources"].(map[string]any), "tiered_metals")
	st, err := Decode(rawRecord(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Resources.TieredMetals.IsZero() {
		t.Errorf("expected zero metals, got %v", st.Resources.TieredMetals)
	}
}

func TestDecodeWithoutJournal(t *testing.T) {
	doc := docOf(t, fixture(t))
	delete(doc, "intel_log")
	st, err := Decode(rawRecord(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	if st.IntelLog == nil || st.IntelLog.Len() != 0 {
		t.Error("a save without a journal should load with an empty one")
	}
}

func TestMigrateV1(t *testing.T) {
	want := fixture(t)
	doc := docOf(t, want)
	doc["version"] = 1

	// Flatten every planet's defense block back into the v1 shape.
	for _, rawSys := range doc["galaxy"].(map[string]any) {
		planets, ok := rawSys.(map[string]any)["planets"].(map[string]any)
		if !ok {
			continue
		}
		for _, rawPlanet := range planets {
			p := rawPlanet.(map[string]any)
			def := p["defense"].(map[string]any)
			p["controller"] = def["control"]
			p["ground_troops"] = def["garrison"]
			p["fortification"] = def["fortification"]
			delete(p, "defense")
		}
	}

	got, err := Decode(rawRecord(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != game.Version {
		t.Errorf("expected version %d after migration, got %d", game.Version, got.Version)
	}
	if !reflect.DeepEqual(want.Clone(), got) {
		t.Error("migrated state differs from the original")
	}
}

func TestSQLiteStore(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Get(SaveKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on an empty db, got %v", err)
	}

	st := fixture(t)
	if _, err := Save(db, SaveKey, st); err != nil {
		t.Fatal(err)
	}
	st.Turn++
	if _, err := Save(db, SaveKey, st); err != nil {
		t.Fatal(err)
	}

	got, err := Load(db, SaveKey)
	if err != nil {
		t.Fatal(err)
	}
	if got.Turn != 5 {
		t.Errorf("expected the latest save (turn 5), got turn %d", got.Turn)
	}
	if !reflect.DeepEqual(st.Clone(), got) {
		t.Error("sqlite round trip changed the state")
	}

	hist, err := db.History(SaveKey, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(hist))
	}
}
