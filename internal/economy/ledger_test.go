package economy

import "testing"

func TestCanAffordAndPay(t *testing.T) {
	res := Resources{TieredMetals: Metals{T1: 20, T2: 5}}
	frigate := Metals{T1: 15, T2: 5}

	if !CanAfford(res, frigate) {
		t.Fatal("expected to afford a frigate")
	}
	Pay(&res, frigate)
	if res.TieredMetals != (Metals{T1: 5}) {
		t.Errorf("expected T1 5 left, got %v", res.TieredMetals)
	}
	if CanAfford(res, frigate) {
		t.Error("should not afford a second frigate")
	}
}

func TestShortfall(t *testing.T) {
	res := Resources{TieredMetals: Metals{T1: 3, T3: 9}}
	got := Shortfall(res, Metals{T1: 15, T2: 5, T3: 2})
	want := Metals{T1: 12, T2: 5}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRefundFloorsPerTier(t *testing.T) {
	cases := []struct {
		cost, want Metals
	}{
		{Metals{T1: 15, T2: 5}, Metals{T1: 7, T2: 2}},
		{Metals{T1: 10}, Metals{T1: 5}},
		{Metals{T1: 1, T2: 1, T3: 1}, Metals{}},
		{Metals{T1: 60, T2: 35, T3: 15}, Metals{T1: 30, T2: 17, T3: 7}},
	}
	for _, c := range cases {
		if got := Refund(c.cost); got != c.want {
			t.Errorf("Refund(%v): expected %v, got %v", c.cost, c.want, got)
		}
	}
}

func TestCreditIgnoresNonPositive(t *testing.T) {
	var res Resources
	Credit(&res, T2, 4)
	Credit(&res, T2, -3)
	Credit(&res, T1, 0)
	if res.TieredMetals != (Metals{T2: 4}) {
		t.Errorf("expected T2 4, got %v", res.TieredMetals)
	}
	CreditAll(&res, Metals{T1: 1, T3: 2})
	if res.TieredMetals != (Metals{T1: 1, T2: 4, T3: 2}) {
		t.Errorf("unexpected balance %v", res.TieredMetals)
	}
}

func TestMetalsString(t *testing.T) {
	if s := (Metals{T1: 15, T2: 5}).String(); s != "T1 15, T2 5" {
		t.Errorf("got %q", s)
	}
	if s := (Metals{}).String(); s != "nothing" {
		t.Errorf("got %q", s)
	}
}

func TestTierRank(t *testing.T) {
	for _, tier := range Tiers {
		if TierFromRank(tier.Rank()) != tier {
			t.Errorf("rank round trip failed for %s", tier)
		}
	}
	if Tier("T4").Valid() || Tier("T4").Rank() != 0 {
		t.Error("T4 should be invalid")
	}
}
