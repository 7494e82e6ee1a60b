package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talgya/hexfleet/internal/engine"
	"github.com/talgya/hexfleet/internal/persistence"
	"github.com/talgya/hexfleet/internal/world"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, secret string) (*Server, http.Handler) {
	t.Helper()
	sim, err := engine.New(engine.Options{Gen: world.CoreOnlyConfig(42), Store: persistence.NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	srv := &Server{Sim: sim, AdminSecret: secret, Limiter: NewRateLimiter(100, 100)}
	return srv, srv.Handler()
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := IssueToken(testSecret, "tests", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func do(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	_, h := newTestServer(t, testSecret)
	rec := do(h, http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["turn"] != float64(1) || body["phase"] != "PLAYER" || body["home_system_id"] != "haven" {
		t.Errorf("unexpected status %v", body)
	}
	if _, ok := body["clock"]; ok {
		t.Error("no clock configured, none should be reported")
	}
}

func TestGalaxyHidesUnscannedSystems(t *testing.T) {
	_, h := newTestServer(t, testSecret)
	rec := do(h, http.MethodGet, "/api/v1/galaxy", "", "")

	var systems []systemView
	if err := json.Unmarshal(rec.Body.Bytes(), &systems); err != nil {
		t.Fatal(err)
	}
	if len(systems) != 10 {
		t.Fatalf("expected 10 systems, got %d", len(systems))
	}
	for _, v := range systems {
		switch {
		case v.ID == "haven" && (!v.Known || v.Name != "Haven" || len(v.Planets) != 1):
			t.Errorf("home should be fully visible, got %+v", v)
		case v.ID != "haven" && (v.Known || v.Name != "" || v.Planets != nil || v.Station != nil):
			t.Errorf("%s leaked intel: %+v", v.ID, v)
		}
	}
	for i := 1; i < len(systems); i++ {
		a, b := systems[i-1].Coord, systems[i].Coord
		if a.R > b.R || (a.R == b.R && a.Q > b.Q) {
			t.Fatalf("galaxy not in row order at %d", i)
		}
	}
}

func TestSystemAndFleets(t *testing.T) {
	_, h := newTestServer(t, testSecret)

	if rec := do(h, http.MethodGet, "/api/v1/systems/nowhere", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/v1/systems/haven", "", "")
	var sys systemView
	if err := json.Unmarshal(rec.Body.Bytes(), &sys); err != nil {
		t.Fatal(err)
	}
	if len(sys.Fleets) != 2 {
		t.Errorf("expected prospector and station at haven, got %v", sys.Fleets)
	}

	// The raiders sit in an unscanned system.
	rec = do(h, http.MethodGet, "/api/v1/fleets", "", "")
	var fleets []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &fleets); err != nil {
		t.Fatal(err)
	}
	if len(fleets) != 2 {
		t.Fatalf("expected 2 visible fleets, got %d", len(fleets))
	}
	if fleets[0]["role"] != "MINER" || fleets[0]["mining_tier"] != float64(1) {
		t.Errorf("unexpected prospector view %v", fleets[0])
	}
}

func TestAdminAuth(t *testing.T) {
	_, h := newTestServer(t, testSecret)
	body := `{"target":"kessler-belt"}`

	if rec := do(h, http.MethodPost, "/api/v1/fleets/F-1/move", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/fleets/F-1/move", "Bearer nonsense", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
	forged, _ := IssueToken("other-secret", "tests", time.Minute)
	if rec := do(h, http.MethodPost, "/api/v1/fleets/F-1/move", "Bearer "+forged, body); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}
	expired, _ := IssueToken(testSecret, "tests", -time.Minute)
	if rec := do(h, http.MethodPost, "/api/v1/fleets/F-1/move", "Bearer "+expired, body); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token: expected 401, got %d", rec.Code)
	}

	_, closed := newTestServer(t, "")
	if rec := do(closed, http.MethodPost, "/api/v1/fleets/F-1/move", bearer(t), body); rec.Code != http.StatusForbidden {
		t.Errorf("no secret: expected 403, got %d", rec.Code)
	}
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	if _, err := IssueToken("", "tests", time.Minute); err == nil {
		t.Error("expected an error without a secret")
	}
}

func TestMoveAndEndTurn(t *testing.T) {
	srv, h := newTestServer(t, testSecret)
	auth := bearer(t)

	rec := do(h, http.MethodPost, "/api/v1/fleets/F-1/move", auth, `{"target":"kessler-belt"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var res engine.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.OK {
		t.Errorf("expected success, got %+v", res)
	}

	rec = do(h, http.MethodPost, "/api/v1/fleets/F-1/move", auth, `{"target":"ashfall"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("non-adjacent move: expected 409, got %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Reason != engine.ReasonNotAdjacent {
		t.Errorf("expected NOT_ADJACENT, got %s", res.Reason)
	}

	if rec := do(h, http.MethodPost, "/api/v1/turn/end", auth, ""); rec.Code != http.StatusOK {
		t.Fatalf("end turn: expected 200, got %d", rec.Code)
	}
	st := srv.Sim.State()
	if st.Turn != 2 || st.Resources.TieredMetals.T1 != 1 {
		t.Errorf("expected turn 2 with 1 T1 mined, got turn %d %v", st.Turn, st.Resources.TieredMetals)
	}
}

func TestBuildShortfallReportsAmounts(t *testing.T) {
	_, h := newTestServer(t, testSecret)
	rec := do(h, http.MethodPost, "/api/v1/fleets", bearer(t), `{"blueprint":"frigate","system":"haven"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var res engine.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Reason != engine.ReasonInsufficientResources || res.Needed == nil || res.Needed.T1 != 15 {
		t.Errorf("unexpected refusal %+v", res)
	}

	if rec := do(h, http.MethodPost, "/api/v1/fleets", bearer(t), `{"blueprint":"warp-gate"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown blueprint: expected 404, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/fleets", bearer(t), `{blueprint`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", rec.Code)
	}
}

func TestSaveLoadEndpoints(t *testing.T) {
	_, h := newTestServer(t, testSecret)
	auth := bearer(t)

	if rec := do(h, http.MethodPost, "/api/v1/game/load", auth, ""); rec.Code != http.StatusNotFound {
		t.Errorf("load before save: expected 404, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/game/save", auth, ""); rec.Code != http.StatusOK {
		t.Errorf("save: expected 200, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/game/load", auth, ""); rec.Code != http.StatusOK {
		t.Errorf("load: expected 200, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/speed", auth, `{"speed":2}`); rec.Code != http.StatusConflict {
		t.Errorf("speed without a clock: expected 409, got %d", rec.Code)
	}
}

func TestIntelSince(t *testing.T) {
	_, h := newTestServer(t, testSecret)
	do(h, http.MethodPost, "/api/v1/select/system", bearer(t), `{"id":"haven"}`)

	rec := do(h, http.MethodGet, "/api/v1/intel?since=2", "", "")
	var entries []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the selection entry, got %d", len(entries))
	}
	if rec := do(h, http.MethodGet, "/api/v1/intel?since=x", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAdminRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)
	srv.Limiter = NewRateLimiter(0.5, 2)
	h := srv.Handler()
	auth := bearer(t)

	for i := 0; i < 2; i++ {
		if rec := do(h, http.MethodPost, "/api/v1/game/save", auth, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := do(h, http.MethodPost, "/api/v1/game/save", auth, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3" {
		t.Errorf("expected Retry-After 3, got %q", rec.Header().Get("Retry-After"))
	}

	// Reads are not limited.
	if rec := do(h, http.MethodGet, "/api/v1/status", "", ""); rec.Code != http.StatusOK {
		t.Errorf("status: expected 200, got %d", rec.Code)
	}
}
