// Package compat is the static per-model compatibility knowledge base for
// wide-format plotters. It maps (vendor, model) to the protocols a device
// speaks, the designated primary, the fallback ordering, and per-model
// quirks. The registry is populated at build time and never mutated at
// runtime, so all queries are lock-free.
package compat

import (
	"strings"

	"github.com/elissoncardoso1/All-Press/protocol"
)

// Entry describes the protocol compatibility of a single plotter model.
type Entry struct {
	Vendor                protocol.Vendor   `json:"vendor"`
	Model                 string            `json:"model"`
	SupportedProtocols    []string          `json:"supported_protocols"`
	PrimaryProtocol       string            `json:"primary_protocol"`
	FallbackProtocols     []string          `json:"fallback_protocols"`
	RequiresPreprocessing bool              `json:"requires_preprocessing"`
	Quirks                map[string]string `json:"quirks,omitempty"`
}

// registry holds the seeded knowledge base, keyed by normalized
// "<VENDOR>_<model>" strings.
var registry = map[string]Entry{}

func init() {
	seed := []Entry{
		// HP DesignJet family
		{
			Vendor:                protocol.VendorHP,
			Model:                 "DesignJet T1200",
			SupportedProtocols:    []string{"HPGL2", "PostScript", "PDF"},
			PrimaryProtocol:       "HPGL2",
			FallbackProtocols:     []string{"PostScript", "PDF"},
			RequiresPreprocessing: true,
			Quirks: map[string]string{
				"paper_feed_delay": "500ms",
				"pen_warmup":       "true",
			},
		},
		{
			Vendor:                protocol.VendorHP,
			Model:                 "DesignJet T2300",
			SupportedProtocols:    []string{"HPGL2", "PostScript", "PDF"},
			PrimaryProtocol:       "HPGL2",
			FallbackProtocols:     []string{"PostScript", "PDF"},
			RequiresPreprocessing: true,
			Quirks: map[string]string{
				"paper_feed_delay":  "300ms",
				"color_calibration": "required",
			},
		},
		{
			Vendor:                protocol.VendorHP,
			Model:                 "DesignJet T3500",
			SupportedProtocols:    []string{"HPGL2", "PostScript", "PDF"},
			PrimaryProtocol:       "HPGL2",
			FallbackProtocols:     []string{"PostScript", "PDF"},
			RequiresPreprocessing: true,
			Quirks: map[string]string{
				"paper_feed_delay": "200ms",
				"high_speed_mode":  "true",
			},
		},

		// Canon imagePROGRAF family
		{
			Vendor:             protocol.VendorCanon,
			Model:              "imagePROGRAF TX-3000",
			SupportedProtocols: []string{"PostScript", "PDF", "HPGL2"},
			PrimaryProtocol:    "PostScript",
			FallbackProtocols:  []string{"PDF", "HPGL2"},
			Quirks: map[string]string{
				"icc_profile_required":   "true",
				"ultrachrome_ink_support": "true",
			},
		},
		{
			Vendor:             protocol.VendorCanon,
			Model:              "imagePROGRAF TX-4000",
			SupportedProtocols: []string{"PostScript", "PDF", "HPGL2"},
			PrimaryProtocol:    "PostScript",
			FallbackProtocols:  []string{"PDF", "HPGL2"},
			Quirks: map[string]string{
				"icc_profile_required": "true",
				"lucia_pro_ink":        "true",
			},
		},
		{
			Vendor:             protocol.VendorCanon,
			Model:              "imagePROGRAF PRO-6000",
			SupportedProtocols: []string{"PostScript", "PDF"},
			PrimaryProtocol:    "PostScript",
			FallbackProtocols:  []string{"PDF"},
			Quirks: map[string]string{
				"12_color_ink":       "true",
				"professional_grade": "true",
			},
		},

		// Epson SureColor family
		{
			Vendor:             protocol.VendorEpson,
			Model:              "SureColor T5200",
			SupportedProtocols: []string{"PostScript", "ESC/P", "PDF"},
			PrimaryProtocol:    "PostScript",
			FallbackProtocols:  []string{"ESC/P", "PDF"},
			Quirks: map[string]string{
				"max_roll_width": "1118mm",
				"surecolor_mode": "true",
			},
		},
		{
			Vendor:             protocol.VendorEpson,
			Model:              "SureColor T7200",
			SupportedProtocols: []string{"PostScript", "ESC/P", "PDF"},
			PrimaryProtocol:    "PostScript",
			FallbackProtocols:  []string{"ESC/P", "PDF"},
			Quirks: map[string]string{
				"max_roll_width":  "1118mm",
				"ultrachrome_xd2": "true",
			},
		},
		{
			Vendor:             protocol.VendorEpson,
			Model:              "SureColor T7700",
			SupportedProtocols: []string{"PostScript", "ESC/P", "PDF"},
			PrimaryProtocol:    "PostScript",
			FallbackProtocols:  []string{"ESC/P", "PDF"},
			Quirks: map[string]string{
				"max_roll_width":    "1118mm",
				"dual_roll_support": "true",
			},
		},
	}

	for _, e := range seed {
		registry[key(e.Vendor, e.Model)] = e
	}
}

// normalize folds a model string for key matching: lower-cased with
// spaces and dashes collapsed to underscores, so CUPS make-and-model
// strings like "HP DesignJet T1200 PS" still resolve.
func normalize(model string) string {
	s := strings.ToLower(model)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func key(vendor protocol.Vendor, model string) string {
	return string(vendor) + "_" + normalize(model)
}

// lookup resolves an entry by exact normalized key first, then by
// substring: device-reported model strings usually embed the catalog
// model name alongside vendor prefixes and PS/PDF suffixes.
func lookup(vendor protocol.Vendor, model string) (Entry, bool) {
	if e, ok := registry[key(vendor, model)]; ok {
		return e, true
	}
	norm := normalize(model)
	for _, e := range registry {
		if e.Vendor == vendor && strings.Contains(norm, normalize(e.Model)) {
			return e, true
		}
	}
	return Entry{}, false
}

// IsCompatible reports whether the registry knows the model and lists the
// protocol among its supported set.
func IsCompatible(vendor protocol.Vendor, model, proto string) bool {
	e, ok := lookup(vendor, model)
	if !ok {
		return false
	}
	for _, p := range e.SupportedProtocols {
		if p == proto {
			return true
		}
	}
	return false
}

// RecommendedProtocol returns the model's designated primary protocol.
// Unknown models default to HPGL2 for HP and PostScript otherwise.
func RecommendedProtocol(vendor protocol.Vendor, model string) string {
	if e, ok := lookup(vendor, model); ok {
		return e.PrimaryProtocol
	}
	if vendor == protocol.VendorHP {
		return "HPGL2"
	}
	return "PostScript"
}

// Fallbacks returns the ordered fallback protocol list for the model.
// Unknown models get the universal ordering.
func Fallbacks(vendor protocol.Vendor, model string) []string {
	if e, ok := lookup(vendor, model); ok {
		out := make([]string, len(e.FallbackProtocols))
		copy(out, e.FallbackProtocols)
		return out
	}
	return []string{"PostScript", "HPGL2", "ESC/P"}
}

// Quirks returns the per-model quirk mapping; empty for unknown models.
func Quirks(vendor protocol.Vendor, model string) map[string]string {
	e, ok := lookup(vendor, model)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(e.Quirks))
	for k, v := range e.Quirks {
		out[k] = v
	}
	return out
}

// RequiresPreprocessing reports whether the model needs the raster
// conversion step before synthesis. Unknown models report false.
func RequiresPreprocessing(vendor protocol.Vendor, model string) bool {
	e, ok := lookup(vendor, model)
	return ok && e.RequiresPreprocessing
}

// Lookup exposes the raw entry for callers that need the full record.
func Lookup(vendor protocol.Vendor, model string) (Entry, bool) {
	return lookup(vendor, model)
}

// AvailableProtocols returns the ordered protocol list for a model with
// the recommended protocol hoisted to position 0.
func AvailableProtocols(vendor protocol.Vendor, model string) []string {
	primary := RecommendedProtocol(vendor, model)
	out := []string{primary}
	for _, p := range Fallbacks(vendor, model) {
		if p != primary {
			out = append(out, p)
		}
	}
	return out
}

// All returns every seeded entry. Order is unspecified.
func All() []Entry {
	out := make([]Entry, 0, len(registry))
	for _, e := range registry {
		out = append(out, e)
	}
	return out
}
