package compat

import (
	"testing"

	"github.com/elissoncardoso1/All-Press/protocol"
)

func TestSeededEntryCount(t *testing.T) {
	if got := len(All()); got != 9 {
		t.Fatalf("registry holds %d entries, want 9", got)
	}
}

// Every entry must keep its primary inside the supported set and its
// fallbacks as a subset of the supported set.
func TestRegistryConsistency(t *testing.T) {
	for _, e := range All() {
		supported := make(map[string]bool, len(e.SupportedProtocols))
		for _, p := range e.SupportedProtocols {
			supported[p] = true
		}
		if !supported[e.PrimaryProtocol] {
			t.Errorf("%s %s: primary %s not in supported set", e.Vendor, e.Model, e.PrimaryProtocol)
		}
		for _, p := range e.FallbackProtocols {
			if !supported[p] {
				t.Errorf("%s %s: fallback %s not in supported set", e.Vendor, e.Model, p)
			}
		}
	}
}

func TestRecommendedProtocol(t *testing.T) {
	cases := []struct {
		vendor protocol.Vendor
		model  string
		want   string
	}{
		{protocol.VendorHP, "DesignJet T1200", "HPGL2"},
		{protocol.VendorHP, "DesignJet T3500", "HPGL2"},
		{protocol.VendorCanon, "imagePROGRAF TX-3000", "PostScript"},
		{protocol.VendorCanon, "imagePROGRAF PRO-6000", "PostScript"},
		{protocol.VendorEpson, "SureColor T7700", "PostScript"},
		// unknown-model defaults
		{protocol.VendorHP, "DesignJet UnknownX", "HPGL2"},
		{protocol.VendorGeneric, "anything", "PostScript"},
		{protocol.VendorEpson, "Stylus Pro 9900", "PostScript"},
	}
	for _, tc := range cases {
		if got := RecommendedProtocol(tc.vendor, tc.model); got != tc.want {
			t.Errorf("RecommendedProtocol(%s, %q) = %q, want %q", tc.vendor, tc.model, got, tc.want)
		}
	}
}

func TestLookupTolerantOfMakeModelStrings(t *testing.T) {
	// CUPS reports make-and-model with the vendor prefix and driver suffix.
	e, ok := Lookup(protocol.VendorHP, "HP DesignJet T1200 PS")
	if !ok {
		t.Fatal("make-and-model string should resolve to the T1200 entry")
	}
	if e.Model != "DesignJet T1200" {
		t.Errorf("resolved model = %q", e.Model)
	}

	if _, ok := Lookup(protocol.VendorCanon, "Canon imagePROGRAF TX-4000"); !ok {
		t.Error("Canon TX-4000 make-and-model should resolve")
	}
	if _, ok := Lookup(protocol.VendorHP, "LaserJet 4000"); ok {
		t.Error("LaserJet should not match any plotter entry")
	}
}

func TestIsCompatible(t *testing.T) {
	if !IsCompatible(protocol.VendorHP, "DesignJet T1200", "HPGL2") {
		t.Error("T1200 supports HPGL2")
	}
	if !IsCompatible(protocol.VendorHP, "DesignJet T1200", "PostScript") {
		t.Error("T1200 supports PostScript")
	}
	if IsCompatible(protocol.VendorHP, "DesignJet T1200", "ESC/P") {
		t.Error("T1200 does not support ESC/P")
	}
	if IsCompatible(protocol.VendorHP, "Unknown", "PostScript") {
		t.Error("unknown models are not compatible with anything")
	}
	if IsCompatible(protocol.VendorCanon, "imagePROGRAF PRO-6000", "HPGL2") {
		t.Error("PRO-6000 dropped HPGL2 support")
	}
}

func TestFallbacks(t *testing.T) {
	got := Fallbacks(protocol.VendorEpson, "SureColor T5200")
	want := []string{"ESC/P", "PDF"}
	if len(got) != len(want) {
		t.Fatalf("Fallbacks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fallbacks = %v, want %v", got, want)
		}
	}

	unknown := Fallbacks(protocol.VendorGeneric, "nope")
	wantUnknown := []string{"PostScript", "HPGL2", "ESC/P"}
	for i := range wantUnknown {
		if unknown[i] != wantUnknown[i] {
			t.Fatalf("unknown fallbacks = %v, want %v", unknown, wantUnknown)
		}
	}
}

func TestQuirks(t *testing.T) {
	q := Quirks(protocol.VendorHP, "DesignJet T1200")
	if q["paper_feed_delay"] != "500ms" {
		t.Errorf("T1200 paper_feed_delay = %q, want 500ms", q["paper_feed_delay"])
	}
	if len(Quirks(protocol.VendorGeneric, "mystery")) != 0 {
		t.Error("unknown models have no quirks")
	}

	// mutation of the returned map must not leak into the registry
	q["paper_feed_delay"] = "0ms"
	if Quirks(protocol.VendorHP, "DesignJet T1200")["paper_feed_delay"] != "500ms" {
		t.Error("Quirks should return a copy")
	}
}

func TestAvailableProtocolsHoistsPrimary(t *testing.T) {
	got := AvailableProtocols(protocol.VendorCanon, "imagePROGRAF TX-3000")
	if len(got) == 0 || got[0] != "PostScript" {
		t.Fatalf("AvailableProtocols = %v, want PostScript first", got)
	}
	seen := map[string]int{}
	for _, p := range got {
		seen[p]++
		if seen[p] > 1 {
			t.Errorf("protocol %s duplicated in %v", p, got)
		}
	}
}

func TestRequiresPreprocessing(t *testing.T) {
	if !RequiresPreprocessing(protocol.VendorHP, "DesignJet T2300") {
		t.Error("DesignJets require preprocessing")
	}
	if RequiresPreprocessing(protocol.VendorEpson, "SureColor T7200") {
		t.Error("SureColor does not require preprocessing")
	}
	if RequiresPreprocessing(protocol.VendorGeneric, "unknown") {
		t.Error("unknown models default to no preprocessing")
	}
}
