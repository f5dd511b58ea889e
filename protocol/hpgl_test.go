package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHPGLHeaderEnvelope(t *testing.T) {
	g := NewHPGLGenerator(true)
	header, err := g.Header(g.Capabilities(), SizeA1, ModeColor, 1200)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}

	if !bytes.HasPrefix(header, []byte("\x1b.@")) {
		t.Errorf("header should begin with reset escape, got %q", header[:4])
	}
	s := string(header)
	for _, want := range []string{"\x1b%0B", "PU0,0;", "PA0,0;", "PMA1P;", "PS1200;", "MC3;", "SP1;"} {
		if !strings.Contains(s, want) {
			t.Errorf("header missing %q:\n%q", want, s)
		}
	}
}

func TestHPGLHeaderMonochromeOmitsMultiPen(t *testing.T) {
	g := NewHPGLGenerator(true)
	header, err := g.Header(g.Capabilities(), SizeA4, ModeMonochrome, 600)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	if strings.Contains(string(header), "MC3;") {
		t.Error("monochrome header should not select multi-color pens")
	}
}

func TestHPGLDialectEscapes(t *testing.T) {
	g1 := NewHPGLGenerator(false)
	header, err := g1.Header(g1.Capabilities(), SizeA4, ModeMonochrome, 300)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	if strings.Contains(string(header), "\x1b%0B") {
		t.Error("plain HPGL header should not enter HP-GL/2 mode")
	}
	if strings.Contains(string(g1.Footer()), "\x1b%0A") {
		t.Error("plain HPGL footer should not exit HP-GL/2 mode")
	}
	if g1.Name() != "HPGL" {
		t.Errorf("Name() = %q, want HPGL", g1.Name())
	}

	g2 := NewHPGLGenerator(true)
	if g2.Name() != "HPGL2" {
		t.Errorf("Name() = %q, want HPGL2", g2.Name())
	}
}

func TestHPGLFooterEndsWithReset(t *testing.T) {
	g := NewHPGLGenerator(true)
	footer := g.Footer()
	if !bytes.HasSuffix(footer, []byte("\x1b.@")) {
		t.Errorf("footer should end with reset, got %q", footer)
	}
	if !bytes.HasPrefix(footer, []byte("PU;")) {
		t.Errorf("footer should begin with pen-up, got %q", footer)
	}
}

func TestHPGLValidation(t *testing.T) {
	g2 := NewHPGLGenerator(true)
	g1 := NewHPGLGenerator(false)

	cases := []struct {
		size MediaSize
		want bool
	}{
		{SizeA0, true},
		{SizeA1, true},
		{SizeA4, true},
		{SizeLetter, true},
		{SizeB2, false},
		{SizeA5, false},
	}
	for _, tc := range cases {
		if got := g2.ValidateMediaSize(tc.size); got != tc.want {
			t.Errorf("ValidateMediaSize(%s) = %v, want %v", tc.size, got, tc.want)
		}
	}

	if !g2.ValidateResolution(1200) || g2.ValidateResolution(720) {
		t.Error("HPGL resolutions should be {300, 600, 1200}")
	}
	if !g2.ValidateColorMode(ModeColor) {
		t.Error("HP-GL/2 should accept color")
	}
	if g1.ValidateColorMode(ModeColor) {
		t.Error("plain HPGL should reject color")
	}
	if !g1.ValidateColorMode(ModeMonochrome) {
		t.Error("plain HPGL should accept monochrome")
	}
}

func TestHPGLHeaderUnsupportedConfig(t *testing.T) {
	g := NewHPGLGenerator(true)
	if _, err := g.Header(g.Capabilities(), SizeB2, ModeMonochrome, 600); !errors.Is(err, ErrUnsupportedConfig) {
		t.Errorf("B2 header error = %v, want ErrUnsupportedConfig", err)
	}
	if _, err := g.Header(g.Capabilities(), SizeA4, ModeMonochrome, 720); !errors.Is(err, ErrUnsupportedConfig) {
		t.Errorf("720 dpi header error = %v, want ErrUnsupportedConfig", err)
	}
	g1 := NewHPGLGenerator(false)
	if _, err := g1.Header(g1.Capabilities(), SizeA4, ModeColor, 600); !errors.Is(err, ErrUnsupportedConfig) {
		t.Errorf("color on plain HPGL error = %v, want ErrUnsupportedConfig", err)
	}
}

// Validated inputs must always generate: header generation succeeds for
// every size the generator validates.
func TestHPGLValidationGenerationMonotonic(t *testing.T) {
	g := NewHPGLGenerator(true)
	all := []MediaSize{SizeA0, SizeA1, SizeA2, SizeA3, SizeA4, SizeA5, SizeB2, SizeLetter, SizeLegal, SizeTabloid}
	for _, size := range all {
		if !g.ValidateMediaSize(size) {
			continue
		}
		if _, err := g.Header(g.Capabilities(), size, ModeMonochrome, 600); err != nil {
			t.Errorf("Header(%s) failed for validated size: %v", size, err)
		}
	}
}

func TestHPGLPagePassThrough(t *testing.T) {
	g := NewHPGLGenerator(true)
	in := []byte("PA10,10;PD;PA20,20;PU;")
	out, err := g.Page(in, 100, 100, 600)
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("Page should pass through pre-converted commands, got %q", out)
	}
	// fresh slice, not an alias
	out[0] = 'X'
	if in[0] == 'X' {
		t.Error("Page must return a copy, not alias the input")
	}
}

func TestHPGLMetadata(t *testing.T) {
	g := NewHPGLGenerator(true)
	if !g.NeedsPreprocessing() {
		t.Error("HPGL requires raster-to-vector preprocessing")
	}
	caps := g.Capabilities()
	if caps.Vendor != VendorHP {
		t.Errorf("capabilities vendor = %s, want HP", caps.Vendor)
	}
	if caps.MaxPaperWidthMM != 1118 {
		t.Errorf("max paper width = %g, want 1118", caps.MaxPaperWidthMM)
	}
	data := []byte{1, 2, 3}
	if !bytes.Equal(g.OptimizeForVendor(data), data) {
		t.Error("OptimizeForVendor should pass data through unchanged")
	}
}
