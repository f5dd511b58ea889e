package protocol

import (
	"bytes"
	"fmt"
)

// hpglMediaCodes maps media sizes to HP-GL page-select codes.
// A0 runs from roll media on every supported DesignJet.
var hpglMediaCodes = map[MediaSize]string{
	SizeA0:      "ROL",
	SizeA1:      "A1P",
	SizeA2:      "A2P",
	SizeA3:      "A3P",
	SizeA4:      "A4P",
	SizeLetter:  "LETTERP",
	SizeLegal:   "LEGALP",
	SizeTabloid: "11x17P",
}

var hpglResolutions = map[int]bool{300: true, 600: true, 1200: true}

// HPGLGenerator emits HP-GL or HP-GL/2 command streams. The dialect is
// fixed at construction: HP-GL/2 adds the enter/exit escapes and
// multi-pen color support.
type HPGLGenerator struct {
	hpgl2 bool
	caps  Capabilities
}

// NewHPGLGenerator creates a generator for the HP-GL family.
func NewHPGLGenerator(hpgl2 bool) *HPGLGenerator {
	g := &HPGLGenerator{hpgl2: hpgl2}
	g.caps = Capabilities{
		Vendor:               VendorHP,
		SupportedSizes:       []MediaSize{SizeA0, SizeA1, SizeA2, SizeA3, SizeA4, SizeLetter},
		SupportedResolutions: []int{300, 600, 1200},
		SupportedColors:      []ColorMode{ModeMonochrome},
		SupportsDuplex:       false,
		SupportsBooklet:      false,
		MaxPaperWidthMM:      1118, // 44 inch roll
		MaxPaperHeightMM:     1600,
	}
	if hpgl2 {
		g.caps.SupportedColors = append(g.caps.SupportedColors, ModeColor)
	}
	return g
}

// Header emits the plotter setup envelope: reset, setup mode, HP-GL/2
// entry when applicable, origin positioning, media select, page scale and
// pen selection.
func (g *HPGLGenerator) Header(caps Capabilities, size MediaSize, mode ColorMode, dpi int) ([]byte, error) {
	if !g.ValidateMediaSize(size) {
		return nil, fmt.Errorf("%w: media size %s", ErrUnsupportedConfig, size)
	}
	if !g.ValidateResolution(dpi) {
		return nil, fmt.Errorf("%w: resolution %d dpi", ErrUnsupportedConfig, dpi)
	}
	if !g.ValidateColorMode(mode) {
		return nil, fmt.Errorf("%w: color mode %s", ErrUnsupportedConfig, mode)
	}

	var buf bytes.Buffer
	buf.WriteString("\x1b.@") // reset
	buf.WriteString("ES")     // enter setup mode
	if g.hpgl2 {
		buf.WriteString("\x1b%0B") // enter HP-GL/2 mode
	}
	buf.WriteString("PU0,0;")
	buf.WriteString("PA0,0;")
	fmt.Fprintf(&buf, "PM%s;", hpglMediaCodes[size])
	fmt.Fprintf(&buf, "PS%d;", dpi)
	if g.hpgl2 && mode == ModeColor {
		buf.WriteString("MC3;") // multi-color, 3 pens
	}
	buf.WriteString("SP1;")
	return buf.Bytes(), nil
}

// Page passes the supplied data through. HP-GL needs the raster converted
// to pen vectors upstream (NeedsPreprocessing is true), so by the time a
// page reaches the generator it is already PA/PU/PD command text.
func (g *HPGLGenerator) Page(raster []byte, width, height, dpi int) ([]byte, error) {
	if !g.ValidateResolution(dpi) {
		return nil, fmt.Errorf("%w: resolution %d dpi", ErrUnsupportedConfig, dpi)
	}
	out := make([]byte, len(raster))
	copy(out, raster)
	return out, nil
}

// Footer emits pen-up, plot-mode exit, HP-GL/2 exit when applicable, and
// the final reset.
func (g *HPGLGenerator) Footer() []byte {
	var buf bytes.Buffer
	buf.WriteString("PU;")
	buf.WriteString("\x1bE")
	if g.hpgl2 {
		buf.WriteString("\x1b%0A")
	}
	buf.WriteString("\x1b.@")
	return buf.Bytes()
}

func (g *HPGLGenerator) ValidateMediaSize(size MediaSize) bool {
	_, ok := hpglMediaCodes[size]
	return ok
}

func (g *HPGLGenerator) ValidateResolution(dpi int) bool {
	return hpglResolutions[dpi]
}

func (g *HPGLGenerator) ValidateColorMode(mode ColorMode) bool {
	return mode == ModeMonochrome || (g.hpgl2 && mode == ModeColor)
}

func (g *HPGLGenerator) Name() string {
	if g.hpgl2 {
		return "HPGL2"
	}
	return "HPGL"
}

func (g *HPGLGenerator) Capabilities() Capabilities {
	return g.caps
}

// OptimizeForVendor is a pass-through for HP devices. DesignJets consume
// the plain command stream; there is no post-synthesis compression step.
func (g *HPGLGenerator) OptimizeForVendor(data []byte) []byte {
	return data
}

// NeedsPreprocessing reports true: HP-GL payloads require the upstream
// raster-to-vector conversion before page generation.
func (g *HPGLGenerator) NeedsPreprocessing() bool {
	return true
}
