package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPostScriptHeaderProlog(t *testing.T) {
	g := NewPostScriptGenerator(VendorGeneric)
	header, err := g.Header(g.Capabilities(), SizeA4, ModeColor, 600)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	s := string(header)

	if !strings.HasPrefix(s, "%!PS-Adobe-3.0\n") {
		t.Errorf("header should start with the DSC magic, got %q", s[:20])
	}
	for _, want := range []string{
		"/PageSize [595 842]",
		"/ColorModel /DeviceRGB",
		"/HWResolution [600 600]",
		">> setpagedevice",
		"%%EndProlog",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("header missing %q:\n%s", want, s)
		}
	}
}

func TestPostScriptHeaderMonochrome(t *testing.T) {
	g := NewPostScriptGenerator(VendorGeneric)
	header, err := g.Header(g.Capabilities(), SizeLetter, ModeMonochrome, 300)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	s := string(header)
	if !strings.Contains(s, "/ColorModel /DeviceGray") {
		t.Error("monochrome header should select DeviceGray")
	}
	if !strings.Contains(s, "/PageSize [612 792]") {
		t.Error("Letter header should carry 612x792 points")
	}
}

func TestPostScriptVendorHints(t *testing.T) {
	cases := []struct {
		vendor Vendor
		want   string
		absent string
	}{
		{VendorCanon, "<< /ColorRenderingType 1 >> setuserparams", "/Optimize"},
		{VendorEpson, "<< /Optimize true >> setuserparams", "/ColorRenderingType"},
		{VendorGeneric, "%%EndProlog", "setuserparams"},
	}
	for _, tc := range cases {
		g := NewPostScriptGenerator(tc.vendor)
		header, err := g.Header(g.Capabilities(), SizeA2, ModeColor, 600)
		if err != nil {
			t.Fatalf("Header(%s) returned error: %v", tc.vendor, err)
		}
		s := string(header)
		if !strings.Contains(s, tc.want) {
			t.Errorf("%s header missing %q", tc.vendor, tc.want)
		}
		if strings.Contains(s, tc.absent) {
			t.Errorf("%s header should not contain %q", tc.vendor, tc.absent)
		}
	}
}

func TestPostScriptPageAndFooter(t *testing.T) {
	g := NewPostScriptGenerator(VendorEpson)
	raster := []byte{0xFF, 0xD8, 0xFF, 0xE0} // JPEG magic
	page, err := g.Page(raster, 2480, 3508, 300)
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	s := string(page)
	if !strings.Contains(s, "gsave\n2480 3508 scale\n") {
		t.Errorf("page missing scale operator:\n%s", s[:64])
	}
	if !strings.Contains(s, "currentfile /DCTDecode filter\nimage\n") {
		t.Error("page missing DCTDecode image invocation")
	}
	if !bytes.HasSuffix(page, raster) {
		t.Error("page should append raster bytes after the image operator")
	}

	footer := g.Footer()
	if string(footer) != "grestore\nshowpage\n%%EOF\n" {
		t.Errorf("footer = %q", footer)
	}
}

func TestPostScriptValidation(t *testing.T) {
	g := NewPostScriptGenerator(VendorCanon)
	for _, size := range []MediaSize{SizeA0, SizeA1, SizeA2, SizeA3, SizeA4, SizeLetter, SizeLegal, SizeTabloid} {
		if !g.ValidateMediaSize(size) {
			t.Errorf("ValidateMediaSize(%s) = false, want true", size)
		}
	}
	for _, size := range []MediaSize{SizeA5, SizeB2, SizeB0, SizeCustom} {
		if g.ValidateMediaSize(size) {
			t.Errorf("ValidateMediaSize(%s) = true, want false", size)
		}
	}
	for _, dpi := range []int{300, 600, 720, 1200} {
		if !g.ValidateResolution(dpi) {
			t.Errorf("ValidateResolution(%d) = false, want true", dpi)
		}
	}
	if g.ValidateResolution(150) {
		t.Error("150 dpi should not validate")
	}
	if !g.ValidateColorMode(ModeColor) || !g.ValidateColorMode(ModeMonochrome) {
		t.Error("PostScript should accept both color and monochrome")
	}
	if g.ValidateColorMode(ModeCMYK) {
		t.Error("CMYK mode should not validate")
	}
}

func TestPostScriptUnsupportedConfig(t *testing.T) {
	g := NewPostScriptGenerator(VendorEpson)
	if _, err := g.Header(g.Capabilities(), SizeB2, ModeColor, 600); !errors.Is(err, ErrUnsupportedConfig) {
		t.Errorf("B2 header error = %v, want ErrUnsupportedConfig", err)
	}
	if _, err := g.Page(nil, 100, 100, 150); !errors.Is(err, ErrUnsupportedConfig) {
		t.Errorf("150 dpi page error = %v, want ErrUnsupportedConfig", err)
	}
}

func TestPostScriptMetadata(t *testing.T) {
	g := NewPostScriptGenerator(VendorCanon)
	if g.NeedsPreprocessing() {
		t.Error("PostScript carries raster directly, no preprocessing")
	}
	if g.Name() != "PostScript" {
		t.Errorf("Name() = %q", g.Name())
	}
	if got := g.Capabilities().Model; got != "imagePROGRAF" {
		t.Errorf("Canon capabilities model = %q, want imagePROGRAF", got)
	}
	if got := NewPostScriptGenerator(VendorEpson).Capabilities().Model; got != "SureColor" {
		t.Errorf("Epson capabilities model = %q, want SureColor", got)
	}
}
