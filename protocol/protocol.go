// Package protocol synthesizes vendor-specific plotter byte streams.
// Each generator produces a complete wire payload as header + page(s) +
// footer for one protocol family (HP-GL/2 or PostScript). Generators are
// stateless: a single instance may serve many jobs concurrently, and every
// call returns a fresh byte slice.
package protocol

import (
	"errors"
	"fmt"
)

// Vendor identifies a plotter manufacturer family.
type Vendor string

const (
	VendorHP      Vendor = "HP"
	VendorCanon   Vendor = "Canon"
	VendorEpson   Vendor = "Epson"
	VendorGeneric Vendor = "Generic"
)

// MediaSize is a named paper size.
type MediaSize string

const (
	SizeA0      MediaSize = "A0"
	SizeA1      MediaSize = "A1"
	SizeA2      MediaSize = "A2"
	SizeA3      MediaSize = "A3"
	SizeA4      MediaSize = "A4"
	SizeA5      MediaSize = "A5"
	SizeB0      MediaSize = "B0"
	SizeB1      MediaSize = "B1"
	SizeB2      MediaSize = "B2"
	SizeB3      MediaSize = "B3"
	SizeB4      MediaSize = "B4"
	SizeB5      MediaSize = "B5"
	SizeLetter  MediaSize = "Letter"
	SizeLegal   MediaSize = "Legal"
	SizeTabloid MediaSize = "Tabloid"
	SizeCustom  MediaSize = "Custom"
)

// ColorMode is the requested color handling for a job.
type ColorMode string

const (
	ModeMonochrome ColorMode = "monochrome"
	ModeColor      ColorMode = "color"
	ModeRGB        ColorMode = "rgb"
	ModeCMYK       ColorMode = "cmyk"
)

// ParseMediaSize maps a user-facing media string to a MediaSize.
// Unrecognized strings fall back to A4, matching the submission default.
func ParseMediaSize(s string) MediaSize {
	switch s {
	case "A0":
		return SizeA0
	case "A1":
		return SizeA1
	case "A2":
		return SizeA2
	case "A3":
		return SizeA3
	case "A4", "":
		return SizeA4
	case "A5":
		return SizeA5
	case "B0":
		return SizeB0
	case "B1":
		return SizeB1
	case "B2":
		return SizeB2
	case "B3":
		return SizeB3
	case "B4":
		return SizeB4
	case "B5":
		return SizeB5
	case "Letter", "letter":
		return SizeLetter
	case "Legal", "legal":
		return SizeLegal
	case "Tabloid", "tabloid", "11x17":
		return SizeTabloid
	}
	return MediaSize(s)
}

// ParseColorMode maps a user-facing color string to a ColorMode.
// Anything that is not explicitly color is treated as monochrome.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "color", "Color", "rgb", "RGB":
		return ModeColor
	case "cmyk", "CMYK":
		return ModeCMYK
	}
	return ModeMonochrome
}

// DPIForQuality maps the 1-5 quality level to a print resolution.
func DPIForQuality(quality int) int {
	switch {
	case quality >= 5:
		return 1200
	case quality >= 3:
		return 600
	default:
		return 300
	}
}

// Capabilities describes what a generator (and by extension the device
// driven through it) can produce.
type Capabilities struct {
	Vendor               Vendor            `json:"vendor"`
	Model                string            `json:"model"`
	SupportedSizes       []MediaSize       `json:"supported_sizes"`
	SupportedResolutions []int             `json:"supported_resolutions"`
	SupportedColors      []ColorMode       `json:"supported_colors"`
	SupportsDuplex       bool              `json:"supports_duplex"`
	SupportsBooklet      bool              `json:"supports_booklet"`
	MaxPaperWidthMM      float64           `json:"max_paper_width_mm"`
	MaxPaperHeightMM     float64           `json:"max_paper_height_mm"`
	CustomAttributes     map[string]string `json:"custom_attributes,omitempty"`
}

// ErrUnsupportedConfig is returned by generation methods when asked for a
// media size, resolution, or color mode the generator cannot produce.
// Callers are expected to gate on the Validate* methods first; validated
// inputs never trip this error.
var ErrUnsupportedConfig = errors.New("unsupported configuration")

// ErrUnknownProtocol is returned by NewGenerator for protocol names
// outside the closed {HPGL, HPGL2, PostScript, ESC/P} family.
var ErrUnknownProtocol = errors.New("unknown protocol")

// Generator is the uniform contract every protocol family implements.
// Validation methods return a boolean and never fail; generation methods
// return ErrUnsupportedConfig for inputs that would not validate.
type Generator interface {
	Header(caps Capabilities, size MediaSize, mode ColorMode, dpi int) ([]byte, error)
	Page(raster []byte, width, height, dpi int) ([]byte, error)
	Footer() []byte

	ValidateMediaSize(size MediaSize) bool
	ValidateResolution(dpi int) bool
	ValidateColorMode(mode ColorMode) bool

	Name() string
	Capabilities() Capabilities
	OptimizeForVendor(data []byte) []byte
	NeedsPreprocessing() bool
}

// NewGenerator resolves a protocol name and target vendor to a generator.
// HPGL and HPGL2 select the HP-GL family (dialect by name); PostScript is
// parameterized by vendor so it can emit vendor hint blocks.
func NewGenerator(name string, vendor Vendor) (Generator, error) {
	switch name {
	case "HPGL", "HPGL2":
		return NewHPGLGenerator(name == "HPGL2"), nil
	case "PostScript":
		return NewPostScriptGenerator(vendor), nil
	case "ESC/P":
		return nil, fmt.Errorf("%w: ESC/P generator not implemented", ErrUnknownProtocol)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
	}
}

// pageDimensions holds the PostScript point dimensions for each named size.
var pageDimensions = map[MediaSize][2]float64{
	SizeA0:      {2384, 3370},
	SizeA1:      {1684, 2384},
	SizeA2:      {1191, 1684},
	SizeA3:      {842, 1191},
	SizeA4:      {595, 842},
	SizeLetter:  {612, 792},
	SizeLegal:   {612, 1008},
	SizeTabloid: {792, 1224},
}

// MediaDimensions returns the page dimensions in PostScript points
// (1/72 inch) for a named size. ok is false for sizes without an entry.
func MediaDimensions(size MediaSize) (width, height float64, ok bool) {
	dims, ok := pageDimensions[size]
	if !ok {
		return 0, 0, false
	}
	return dims[0], dims[1], true
}

// PixelDimensions returns the raster dimensions of a page at the given DPI.
func PixelDimensions(size MediaSize, dpi int) (width, height int, ok bool) {
	w, h, ok := MediaDimensions(size)
	if !ok {
		return 0, 0, false
	}
	return int(w / 72.0 * float64(dpi)), int(h / 72.0 * float64(dpi)), true
}
