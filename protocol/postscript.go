package protocol

import (
	"bytes"
	"fmt"
	"time"
)

var postscriptResolutions = map[int]bool{300: true, 600: true, 720: true, 1200: true}

// PostScriptGenerator emits PostScript Level 3 envelopes carrying
// DCT-compressed raster pages. It is parameterized by the target vendor
// so the prolog can include vendor-specific setuserparams hints.
type PostScriptGenerator struct {
	vendor Vendor
	caps   Capabilities
}

// NewPostScriptGenerator creates a PostScript generator tuned for the
// given vendor.
func NewPostScriptGenerator(vendor Vendor) *PostScriptGenerator {
	g := &PostScriptGenerator{vendor: vendor}
	model := ""
	switch vendor {
	case VendorCanon:
		model = "imagePROGRAF"
	case VendorEpson:
		model = "SureColor"
	}
	g.caps = Capabilities{
		Vendor: vendor,
		Model:  model,
		SupportedSizes: []MediaSize{
			SizeA0, SizeA1, SizeA2, SizeA3, SizeA4,
			SizeLetter, SizeLegal, SizeTabloid,
		},
		SupportedResolutions: []int{300, 600, 720, 1200},
		SupportedColors:      []ColorMode{ModeMonochrome, ModeColor},
		SupportsDuplex:       false,
		SupportsBooklet:      false,
		MaxPaperWidthMM:      1118,
		MaxPaperHeightMM:     1600,
	}
	return g
}

// Header emits the DSC prolog: setpagedevice with page dimensions, color
// model and hardware resolution, followed by the vendor hint block.
func (g *PostScriptGenerator) Header(caps Capabilities, size MediaSize, mode ColorMode, dpi int) ([]byte, error) {
	if !g.ValidateMediaSize(size) {
		return nil, fmt.Errorf("%w: media size %s", ErrUnsupportedConfig, size)
	}
	if !g.ValidateResolution(dpi) {
		return nil, fmt.Errorf("%w: resolution %d dpi", ErrUnsupportedConfig, dpi)
	}
	if !g.ValidateColorMode(mode) {
		return nil, fmt.Errorf("%w: color mode %s", ErrUnsupportedConfig, mode)
	}

	width, height, _ := MediaDimensions(size)

	var buf bytes.Buffer
	buf.WriteString("%!PS-Adobe-3.0\n")
	buf.WriteString("%%Creator: All-Press\n")
	fmt.Fprintf(&buf, "%%%%CreationDate: %d\n", time.Now().Unix())
	buf.WriteString("<<\n")
	fmt.Fprintf(&buf, "  /PageSize [%g %g]\n", width, height)
	buf.WriteString("  /MediaClass (plain)\n")
	if mode == ModeColor {
		buf.WriteString("  /ColorModel /DeviceRGB\n")
	} else {
		buf.WriteString("  /ColorModel /DeviceGray\n")
	}
	fmt.Fprintf(&buf, "  /HWResolution [%d %d]\n", dpi, dpi)
	buf.WriteString(">> setpagedevice\n\n")

	switch g.vendor {
	case VendorCanon:
		buf.WriteString("% Canon imagePROGRAF settings\n")
		buf.WriteString("<< /ColorRenderingType 1 >> setuserparams\n")
	case VendorEpson:
		buf.WriteString("% Epson SureColor settings\n")
		buf.WriteString("<< /Optimize true >> setuserparams\n")
	}

	buf.WriteString("%%EndProlog\n\n")
	return buf.Bytes(), nil
}

// Page emits the image operator envelope and appends the raster bytes,
// which are decoded on-device through the DCTDecode filter.
func (g *PostScriptGenerator) Page(raster []byte, width, height, dpi int) ([]byte, error) {
	if !g.ValidateResolution(dpi) {
		return nil, fmt.Errorf("%w: resolution %d dpi", ErrUnsupportedConfig, dpi)
	}
	var buf bytes.Buffer
	buf.WriteString("gsave\n")
	fmt.Fprintf(&buf, "%d %d scale\n", width, height)
	buf.WriteString("currentfile /DCTDecode filter\n")
	buf.WriteString("image\n")
	buf.Write(raster)
	return buf.Bytes(), nil
}

// Footer closes the page and the document.
func (g *PostScriptGenerator) Footer() []byte {
	return []byte("grestore\nshowpage\n%%EOF\n")
}

func (g *PostScriptGenerator) ValidateMediaSize(size MediaSize) bool {
	_, _, ok := MediaDimensions(size)
	return ok
}

func (g *PostScriptGenerator) ValidateResolution(dpi int) bool {
	return postscriptResolutions[dpi]
}

func (g *PostScriptGenerator) ValidateColorMode(mode ColorMode) bool {
	return mode == ModeMonochrome || mode == ModeColor
}

func (g *PostScriptGenerator) Name() string {
	return "PostScript"
}

func (g *PostScriptGenerator) Capabilities() Capabilities {
	return g.caps
}

// OptimizeForVendor is currently a pass-through for every vendor. Canon
// and Epson RIPs accept the plain stream; rendering hints are already
// carried in the header's setuserparams block.
func (g *PostScriptGenerator) OptimizeForVendor(data []byte) []byte {
	return data
}

// NeedsPreprocessing reports false: the PostScript envelope carries the
// raster directly.
func (g *PostScriptGenerator) NeedsPreprocessing() bool {
	return false
}
