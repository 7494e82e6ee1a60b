package engine

import (
	"reflect"
	"strings"
	"testing"

	"github.com/talgya/hexfleet/internal/economy"
	"github.com/talgya/hexfleet/internal/game"
	"github.com/talgya/hexfleet/internal/intel"
	"github.com/talgya/hexfleet/internal/persistence"
	"github.com/talgya/hexfleet/internal/world"
)

// Bootstrap fleet ids on the core-only map.
const (
	prospector = "F-1"
	raiders    = "F-2"
	homeDock   = "F-3"
)

func newSim(t *testing.T) *Simulation {
	t.Helper()
	s, err := New(Options{Gen: world.CoreOnlyConfig(42), Store: persistence.NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// withoutJournal drops the intel log so two states can be compared on
// everything else.
func withoutJournal(st *game.State) *game.State {
	st.IntelLog = nil
	return st
}

func lastEntry(t *testing.T, s *Simulation) intel.Entry {
	t.Helper()
	log := s.IntelLog()
	if len(log) == 0 {
		t.Fatal("journal is empty")
	}
	return log[len(log)-1]
}

func expectReject(t *testing.T, s *Simulation, res Result, want Reason) {
	t.Helper()
	if res.OK {
		t.Fatalf("expected %s, action succeeded: %s", want, res.Message)
	}
	if res.Reason != want {
		t.Fatalf("expected %s, got %s (%s)", want, res.Reason, res.Message)
	}
	if e := lastEntry(t, s); e.Kind != intel.KindAlert || e.Text != res.Message {
		t.Errorf("refusal should be journaled as an ALERT, got %s %q", e.Kind, e.Text)
	}
}

func expectOK(t *testing.T, res Result) {
	t.Helper()
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.Reason, res.Message)
	}
}

func TestBootstrap(t *testing.T) {
	s := newSim(t)
	st := s.State()

	if st.Turn != 1 || st.Phase != game.PhasePlayer {
		t.Errorf("expected turn 1 PLAYER, got %d %s", st.Turn, st.Phase)
	}
	if len(st.Fleets) != 3 {
		t.Fatalf("expected 3 fleets, got %d", len(st.Fleets))
	}
	if f := st.Fleets[prospector]; f.Owner != world.FactionPlayer || f.Location != "haven" || f.MovesLeft != 2 {
		t.Errorf("unexpected prospector %+v", f)
	}
	if f := st.Fleets[raiders]; f.Owner != world.FactionEnemy || f.Location != "dread-expanse" || f.GroundTroops() != 8 {
		t.Errorf("unexpected raiders %+v", f)
	}
	home := st.System(st.HomeID)
	if home.Station == nil || home.Station.ID != homeDock || home.Station.State != world.StationFriendly {
		t.Errorf("home should have a free friendly station, got %+v", home.Station)
	}
	if !st.Fleets[homeDock].BuildCost().IsZero() {
		t.Error("the starting station is free")
	}
	if !st.Resources.TieredMetals.IsZero() {
		t.Errorf("treasury should start empty, got %v", st.Resources.TieredMetals)
	}
	if err := st.Validate(); err != nil {
		t.Errorf("bootstrapped state invalid: %v", err)
	}
	if e := lastEntry(t, s); e.Kind != intel.KindSystem {
		t.Errorf("expected a SYSTEM greeting, got %s", e.Kind)
	}
}

func TestMoveRequiresAdjacency(t *testing.T) {
	s := newSim(t)
	before := withoutJournal(s.State())

	// ashfall is two hexes from haven.
	expectReject(t, s, s.MoveFleet(prospector, "ashfall"), ReasonNotAdjacent)
	expectReject(t, s, s.MoveFleet(prospector, "haven"), ReasonNotAdjacent)
	expectReject(t, s, s.MoveFleet(raiders, "sable-verge"), ReasonNotOwned)
	expectReject(t, s, s.MoveFleet("F-99", "kessler-belt"), ReasonNotFound)
	expectReject(t, s, s.MoveFleet(prospector, "atlantis"), ReasonNotFound)

	if !reflect.DeepEqual(before, withoutJournal(s.State())) {
		t.Error("refused moves changed the state")
	}
	if e := lastEntry(t, s); e.Text == "" {
		t.Error("refusal text should be specific")
	}
}

func TestMoveAdjacencyOverAllPairs(t *testing.T) {
	for _, gen := range []world.GenConfig{
		world.CoreOnlyConfig(42),
		{Seed: 7, Radius: 5, Density: 0.6},
	} {
		s, err := New(Options{Gen: gen})
		if err != nil {
			t.Fatal(err)
		}
		f := s.st.Fleet(prospector)
		ids := s.st.Galaxy.IDs()
		for _, from := range ids {
			for _, to := range ids {
				f.Location = from
				f.MovesLeft = f.MaxMoves
				d := world.Distance(s.st.Galaxy[from].Coord, s.st.Galaxy[to].Coord)

				res := s.MoveFleet(prospector, to)
				if d == 1 {
					if !res.OK {
						t.Fatalf("seed %d: %s -> %s is one jump, got %s: %s", gen.Seed, from, to, res.Reason, res.Message)
					}
					if f.Location != to {
						t.Fatalf("seed %d: expected fleet at %s, got %s", gen.Seed, to, f.Location)
					}
					continue
				}
				if res.OK || res.Reason != ReasonNotAdjacent {
					t.Fatalf("seed %d: %s -> %s is %d jumps, expected %s, got ok=%v %s",
						gen.Seed, from, to, d, ReasonNotAdjacent, res.OK, res.Reason)
				}
				if f.Location != from || f.MovesLeft != f.MaxMoves {
					t.Fatalf("seed %d: refused move %s -> %s changed the fleet", gen.Seed, from, to)
				}
			}
		}
	}
}

func TestMoveBudgetAndArrivalScan(t *testing.T) {
	s := newSim(t)

	expectOK(t, s.MoveFleet(prospector, "kessler-belt"))
	st := s.State()
	if st.Fleets[prospector].MovesLeft != 1 {
		t.Errorf("expected 1 move left, got %d", st.Fleets[prospector].MovesLeft)
	}
	if !st.System("kessler-belt").Known() {
		t.Error("arriving should scan the system")
	}
	if e := lastEntry(t, s); e.Kind != intel.KindScan {
		t.Errorf("expected an arrival SCAN entry, got %s", e.Kind)
	}

	expectOK(t, s.MoveFleet(prospector, "haven"))
	if e := lastEntry(t, s); e.Kind != intel.KindMove {
		t.Errorf("moving into a scanned system should not rescan, got %s", e.Kind)
	}
	expectReject(t, s, s.MoveFleet(prospector, "kessler-belt"), ReasonNoMovesLeft)
	if loc := s.State().Fleets[prospector].Location; loc != "haven" {
		t.Errorf("refused move should leave the fleet at haven, got %s", loc)
	}
}

func TestBuildAndDismantle(t *testing.T) {
	s := newSim(t)

	res := s.BuildFleet("frigate", "haven")
	expectReject(t, s, res, ReasonInsufficientResources)
	if *res.Needed != (economy.Metals{T1: 15, T2: 5}) || !res.Have.IsZero() {
		t.Errorf("expected need T1 15 T2 5 have nothing, got %v / %v", res.Needed, res.Have)
	}

	s.st.Resources.TieredMetals = economy.Metals{T1: 20, T2: 5}
	expectOK(t, s.BuildFleet("frigate", "haven"))
	st := s.State()
	if st.Resources.TieredMetals != (economy.Metals{T1: 5}) {
		t.Errorf("expected T1 5 left, got %v", st.Resources.TieredMetals)
	}
	built := st.Fleets["F-4"]
	if built == nil || built.Location != "haven" || built.MovesLeft != 2 || built.Owner != world.FactionPlayer {
		t.Fatalf("unexpected new fleet %+v", built)
	}

	expectOK(t, s.DismantleFleet("F-4"))
	st = s.State()
	if st.Fleet("F-4") != nil {
		t.Error("dismantled fleet still exists")
	}
	if st.Resources.TieredMetals != (economy.Metals{T1: 12, T2: 2}) {
		t.Errorf("expected T1 12, T2 2 after refund, got %v", st.Resources.TieredMetals)
	}

	expectReject(t, s, s.BuildFleet("station", "haven"), ReasonUnknownBlueprint)
	expectReject(t, s, s.BuildFleet("dreadnought", "haven"), ReasonUnknownBlueprint)
	expectReject(t, s, s.DismantleFleet(raiders), ReasonNotOwned)
}

func TestStations(t *testing.T) {
	s := newSim(t)

	expectReject(t, s, s.BuildStation("haven", false), ReasonStationExists)
	expectReject(t, s, s.BuildStation("kessler-belt", false), ReasonInsufficientResources)

	expectOK(t, s.BuildStation("kessler-belt", true))
	st := s.State()
	station := st.System("kessler-belt").Station
	if station == nil || st.Fleet(station.ID) == nil || st.Fleet(station.ID).MaxMoves != 0 {
		t.Fatalf("station fleet and record should be linked, got %+v", station)
	}

	// Scrapping the free home station refunds nothing and clears the record.
	expectOK(t, s.DismantleFleet(homeDock))
	st = s.State()
	if st.System("haven").Station != nil {
		t.Error("home station record should be gone")
	}
	if !st.Resources.TieredMetals.IsZero() {
		t.Errorf("free station refunded %v", st.Resources.TieredMetals)
	}
}

func TestPhaseGate(t *testing.T) {
	s := newSim(t)
	s.st.Phase = game.PhaseEnemy

	expectReject(t, s, s.MoveFleet(prospector, "kessler-belt"), ReasonWrongPhase)
	expectReject(t, s, s.BuildFleet("miner", "haven"), ReasonWrongPhase)
	expectReject(t, s, s.EndTurn(), ReasonWrongPhase)
	expectReject(t, s, s.InvadePlanet("halcyon", "halcyon-iv", prospector), ReasonWrongPhase)

	// A free station is a bootstrap tool and ignores the phase.
	expectOK(t, s.BuildStation("kessler-belt", true))
}

func TestEndTurnPipeline(t *testing.T) {
	s := newSim(t)
	expectOK(t, s.MoveFleet(prospector, "kessler-belt"))
	mark := lastEntry(t, s).Seq

	expectOK(t, s.EndTurn())
	st := s.State()

	if st.Turn != 2 || st.Phase != game.PhasePlayer {
		t.Errorf("expected turn 2 PLAYER, got %d %s", st.Turn, st.Phase)
	}
	if st.Resources.TieredMetals != (economy.Metals{T1: 1}) {
		t.Errorf("expected T1 1 mined, got %v", st.Resources.TieredMetals)
	}
	if y := st.System("kessler-belt").Asteroids.YieldRemaining; y != 99.5 {
		t.Errorf("expected 99.5%% remaining, got %v", y)
	}
	if st.Fleets[prospector].MovesLeft != 2 {
		t.Error("player budgets should be reset for the new turn")
	}
	raid := st.Fleets[raiders]
	if raid.Location != "sable-verge" && raid.Location != "ashfall" {
		t.Errorf("raiders should close in on haven, are at %s", raid.Location)
	}
	if raid.MovesLeft != raid.MaxMoves-1 {
		t.Errorf("raiders spent one move, got %d/%d", raid.MovesLeft, raid.MaxMoves)
	}

	var kinds []intel.Kind
	for _, e := range s.IntelSince(mark) {
		kinds = append(kinds, e.Kind)
	}
	want := []intel.Kind{intel.KindMine, intel.KindMove, intel.KindSystem}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("expected journal %v, got %v", want, kinds)
	}
}

func TestMiningSkipsIdleMiners(t *testing.T) {
	s := newSim(t)
	// The prospector sits at haven, which has no field.
	expectOK(t, s.EndTurn())
	if got := s.State().Resources.TieredMetals; !got.IsZero() {
		t.Errorf("no field, no metal: got %v", got)
	}
}

func TestFieldRunsDry(t *testing.T) {
	s := newSim(t)
	expectOK(t, s.MoveFleet(prospector, "kessler-belt"))
	s.st.System("kessler-belt").Asteroids.YieldRemaining = 0.4

	expectOK(t, s.EndTurn())
	st := s.State()
	if !st.System("kessler-belt").Asteroids.Depleted() {
		t.Fatal("field should be depleted")
	}
	found := false
	for _, e := range s.IntelLog() {
		if e.Kind == intel.KindAlert && strings.Contains(e.Text, "depleted") {
			found = true
		}
	}
	if !found {
		t.Error("expected a depletion ALERT")
	}
	// 0.4% of 200 is less than one unit, so the remnant pays nothing.
	if !st.Resources.TieredMetals.IsZero() {
		t.Errorf("fractional remnant paid out %v", st.Resources.TieredMetals)
	}

	before := st.Resources.TieredMetals
	expectOK(t, s.EndTurn())
	if got := s.State().Resources.TieredMetals; got != before {
		t.Errorf("depleted field kept paying: %v -> %v", before, got)
	}
}

func TestEnemyAdvanceIsDeterministicAndRepelled(t *testing.T) {
	run := func() *Simulation {
		s := newSim(t)
		for i := 0; i < 3; i++ {
			expectOK(t, s.EndTurn())
		}
		return s
	}
	a, b := run(), run()
	sa, sb := withoutJournal(a.State()), withoutJournal(b.State())
	if !reflect.DeepEqual(sa, sb) {
		t.Fatal("same seed, same orders, different games")
	}

	if sa.Turn != 4 {
		t.Errorf("expected turn 4, got %d", sa.Turn)
	}
	raid := sa.Fleets[raiders]
	if raid.Location != "haven" {
		t.Fatalf("raiders should reach haven in three turns, are at %s", raid.Location)
	}
	if raid.GroundTroops() != 0 {
		t.Errorf("raiders should have landed their troops, still carry %d", raid.GroundTroops())
	}
	prime := sa.System("haven").Planet("haven-prime")
	if prime.Controller() != world.FactionPlayer || prime.Contested() {
		t.Errorf("haven prime should hold, got %+v", prime.Defense)
	}
	if prime.Defense.Garrison != 4 {
		t.Errorf("expected garrison 4 after the assault, got %d", prime.Defense.Garrison)
	}
}

func TestInvadeAndReinforce(t *testing.T) {
	s := newSim(t)
	s.st.Resources.TieredMetals = economy.Metals{T1: 100, T2: 50, T3: 10}

	expectOK(t, s.BuildFleet("cruiser", "haven"))
	cruiser := "F-4"
	expectReject(t, s, s.InvadePlanet("halcyon", "halcyon-iv", cruiser), ReasonWrongLocation)
	expectReject(t, s, s.InvadePlanet("haven", "haven-prime", cruiser), ReasonSameFaction)

	expectOK(t, s.MoveFleet(cruiser, "halcyon"))
	expectOK(t, s.InvadePlanet("halcyon", "halcyon-iv", cruiser))

	st := s.State()
	p := st.System("halcyon").Planet("halcyon-iv")
	if !p.Contested() || p.Invasion.Attacker != world.FactionPlayer || p.Invasion.InvasionStrength != 10 {
		t.Fatalf("expected a player siege of strength 10, got %+v", p.Invasion)
	}
	if st.Fleets[cruiser].GroundTroops() != 0 {
		t.Error("troops should have left the cruiser")
	}
	expectReject(t, s, s.InvadePlanet("halcyon", "halcyon-iv", cruiser), ReasonNoTroops)

	expectOK(t, s.EndTurn())
	p = s.State().System("halcyon").Planet("halcyon-iv")
	if p.Controller() != world.FactionPlayer || p.Defense.Garrison != 2 {
		t.Errorf("expected halcyon iv taken with garrison 2, got %+v", p.Defense)
	}

	expectOK(t, s.BuildFleet("corvette", "haven"))
	expectOK(t, s.ReinforcePlanet("haven", "haven-prime", "F-5"))
	if g := s.State().System("haven").Planet("haven-prime").Defense.Garrison; g != 12 {
		t.Errorf("expected garrison 12 after reinforcement, got %d", g)
	}
	expectReject(t, s, s.ReinforcePlanet("haven", "haven-prime", "F-5"), ReasonNoTroops)
}

func TestSelection(t *testing.T) {
	s := newSim(t)

	expectOK(t, s.SelectSystem("kessler-belt"))
	if e := lastEntry(t, s); e.Kind != intel.KindScan {
		t.Errorf("selecting an unscanned system reports an unknown signal, got %s", e.Kind)
	}
	expectReject(t, s, s.SelectObject("asteroids"), ReasonNotFound)

	expectOK(t, s.SelectSystem("haven"))
	expectOK(t, s.SelectObject("haven-prime"))
	expectOK(t, s.SelectFleet(prospector))
	expectReject(t, s, s.SelectFleet(raiders), ReasonNotOwned)

	st := s.State()
	if st.SelectedSystemID != "haven" || st.SelectedSystemObject != "haven-prime" || st.SelectedFleetID != prospector {
		t.Errorf("unexpected selection %q %q %q", st.SelectedSystemID, st.SelectedSystemObject, st.SelectedFleetID)
	}
}

func TestSaveLoadRestoresExactState(t *testing.T) {
	s := newSim(t)
	expectOK(t, s.MoveFleet(prospector, "kessler-belt"))
	expectOK(t, s.EndTurn())
	expectOK(t, s.SelectSystem("kessler-belt"))

	saved := s.State()
	expectOK(t, s.SaveGame())
	if !reflect.DeepEqual(saved, s.State()) {
		t.Fatal("saving changed the state")
	}

	expectOK(t, s.EndTurn())
	expectOK(t, s.EndTurn())
	expectOK(t, s.LoadGame())

	if !reflect.DeepEqual(saved, s.State()) {
		t.Error("loaded state differs from the saved state")
	}
}

func TestLoadFailuresLeaveStateAlone(t *testing.T) {
	store := persistence.NewMemoryStore()
	s, err := New(Options{Gen: world.CoreOnlyConfig(42), Store: store})
	if err != nil {
		t.Fatal(err)
	}
	expectReject(t, s, s.LoadGame(), ReasonNoSave)

	expectOK(t, s.MoveFleet(prospector, "kessler-belt"))
	store.Put(persistence.SaveKey, persistence.Record{Data: []byte(`{"version": 2, "galaxy": `), Codec: persistence.CodecJSON})

	before := s.State()
	expectReject(t, s, s.LoadGame(), ReasonCorruptSave)
	after := s.State()

	if after.IntelLog.Len() != before.IntelLog.Len()+1 {
		t.Errorf("expected exactly one new entry, got %d -> %d", before.IntelLog.Len(), after.IntelLog.Len())
	}
	if !reflect.DeepEqual(withoutJournal(before), withoutJournal(after)) {
		t.Error("a corrupt load changed the game")
	}
}

func TestSaveWithoutStore(t *testing.T) {
	s, err := New(Options{Gen: world.CoreOnlyConfig(1)})
	if err != nil {
		t.Fatal(err)
	}
	expectReject(t, s, s.SaveGame(), ReasonStorageFailure)
	expectReject(t, s, s.LoadGame(), ReasonStorageFailure)
}

func TestNewGame(t *testing.T) {
	s := newSim(t)
	expectOK(t, s.MoveFleet(prospector, "kessler-belt"))
	expectOK(t, s.EndTurn())

	expectOK(t, s.NewGame())
	st := s.State()
	if st.Turn != 1 || st.Fleets[prospector].Location != "haven" {
		t.Errorf("new game should start over, got turn %d at %s", st.Turn, st.Fleets[prospector].Location)
	}
}
