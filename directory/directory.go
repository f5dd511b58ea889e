// Package directory maintains the device directory: every printer the
// spooler knows about, enriched with network reachability, vendor
// classification and protocol knowledge. The directory is the single
// writer of device records; workers only read through it.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elissoncardoso1/All-Press/compat"
	"github.com/elissoncardoso1/All-Press/protocol"
	"github.com/elissoncardoso1/All-Press/spool"
)

// ErrUnknownDevice is returned when a URI was not enumerated in the most
// recent discovery pass.
var ErrUnknownDevice = errors.New("unknown device")

// Device is one directory record. IsOnline is authoritative only as of
// LastProbe: a powered-off networked device can still be reported idle by
// the spooler, which is exactly what the network tier corrects for.
type Device struct {
	Name         string          `json:"name"`
	URI          string          `json:"uri"`
	MakeModel    string          `json:"make_model"`
	Location     string          `json:"location"`
	Description  string          `json:"description"`
	Vendor       protocol.Vendor `json:"vendor"`
	IsPlotter    bool            `json:"is_plotter"`
	IsOnline     bool            `json:"is_online"`
	SpoolerState int             `json:"spooler_state"`
	StateReasons []string        `json:"state_reasons,omitempty"`
	LastProbe    time.Time       `json:"last_probe"`
}

// AdvancedInfo combines a device record with registry-provided protocol
// knowledge and the recommended generator's capability set. Derived once
// per device per discovery pass and cached by URI.
type AdvancedInfo struct {
	Device                Device                `json:"device"`
	Protocols             []string              `json:"protocols"` // recommended first
	Recommended           string                `json:"recommended"`
	Quirks                map[string]string     `json:"quirks,omitempty"`
	Capabilities          protocol.Capabilities `json:"capabilities"`
	RequiresPreprocessing bool                  `json:"requires_preprocessing"`
}

// Directory discovers and classifies printers. A single mutex guards both
// the device map and the advanced-info cache.
type Directory struct {
	gateway       spool.Gateway
	logger        spool.Logger
	dialTimeout   time.Duration
	snmpCommunity string

	// netProbe dials host:port and reports reachability. Tests replace it
	// to simulate unroutable hosts.
	netProbe func(host, port string, timeout time.Duration) bool

	mu       sync.Mutex
	devices  map[string]Device
	advanced map[string]AdvancedInfo

	onStatus func(Device)
}

// New creates a directory over the given spooler gateway. dialTimeout
// bounds the network reachability dial; zero selects the 2 second default.
func New(gateway spool.Gateway, dialTimeout time.Duration, logger spool.Logger) *Directory {
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	return &Directory{
		gateway:       gateway,
		logger:        logger,
		dialTimeout:   dialTimeout,
		snmpCommunity: "public",
		netProbe:      probeTCP,
		devices:       make(map[string]Device),
		advanced:      make(map[string]AdvancedInfo),
	}
}

// SetSNMPCommunity sets the community string used for identity queries
// during subnet sweeps.
func (d *Directory) SetSNMPCommunity(community string) {
	if community != "" {
		d.snmpCommunity = community
	}
}

// SetStatusCallback registers a callback fired whenever a device's online
// flag or spooler state changes between discovery passes. Fired outside
// the directory mutex.
func (d *Directory) SetStatusCallback(fn func(Device)) {
	d.mu.Lock()
	d.onStatus = fn
	d.mu.Unlock()
}

// DetectVendor classifies a make-and-model string by case-insensitive
// substring match.
func DetectVendor(makeModel string) protocol.Vendor {
	m := strings.ToLower(makeModel)
	switch {
	case strings.Contains(m, "hp"), strings.Contains(m, "hewlett"), strings.Contains(m, "designjet"):
		return protocol.VendorHP
	case strings.Contains(m, "canon"), strings.Contains(m, "imageprograf"):
		return protocol.VendorCanon
	case strings.Contains(m, "epson"), strings.Contains(m, "surecolor"):
		return protocol.VendorEpson
	}
	return protocol.VendorGeneric
}

// plotterKeywords mark wide-format devices that need protocol synthesis
// instead of plain pass-through submission.
var plotterKeywords = []string{
	"designjet", "imageprograf", "surecolor",
	"plotter", "wide format", "large format",
}

// IsPlotter reports whether the make-and-model string names a wide-format
// device.
func IsPlotter(makeModel string) bool {
	m := strings.ToLower(makeModel)
	for _, kw := range plotterKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

// Discover enumerates spooler printers and runs the two-tier reachability
// check on each. URIs absent from this pass are evicted from the device
// map and the advanced-info cache, so cached info never outlives the pass
// that produced it.
func (d *Directory) Discover(ctx context.Context) ([]Device, error) {
	printers, err := d.gateway.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate printers: %w", err)
	}

	fresh := make(map[string]Device, len(printers))
	out := make([]Device, 0, len(printers))
	for _, p := range printers {
		dev := d.probeDevice(p)
		fresh[dev.URI] = dev
		out = append(out, dev)
	}

	var changed []Device
	d.mu.Lock()
	for uri, dev := range fresh {
		if prev, ok := d.devices[uri]; ok {
			if prev.IsOnline != dev.IsOnline || prev.SpoolerState != dev.SpoolerState {
				changed = append(changed, dev)
			}
		}
	}
	for uri := range d.devices {
		if _, ok := fresh[uri]; !ok {
			delete(d.advanced, uri)
		}
	}
	for uri := range d.advanced {
		if _, ok := fresh[uri]; !ok {
			delete(d.advanced, uri)
		}
	}
	d.devices = fresh
	cb := d.onStatus
	d.mu.Unlock()

	if cb != nil {
		for _, dev := range changed {
			cb(dev)
		}
	}
	if d.logger != nil {
		d.logger.Info("Discovery pass complete", "devices", len(out))
	}
	return out, nil
}

// probeDevice runs both reachability tiers for one enumerated printer.
func (d *Directory) probeDevice(p spool.Printer) Device {
	dev := Device{
		Name:         p.Name,
		URI:          p.URI,
		MakeModel:    p.MakeModel,
		Location:     p.Location,
		Description:  p.Description,
		Vendor:       DetectVendor(p.MakeModel),
		IsPlotter:    IsPlotter(p.MakeModel),
		SpoolerState: p.State,
		StateReasons: p.StateReasons,
		LastProbe:    time.Now(),
	}

	ready := spoolerReady(p)
	if !ready {
		dev.IsOnline = false
		return dev
	}

	host, port, network := splitNetworkURI(p.URI)
	if !network {
		// local URIs (usb, file) trust the spooler state
		dev.IsOnline = true
		return dev
	}

	dev.IsOnline = d.netProbe(host, port, d.dialTimeout)
	if !dev.IsOnline && d.logger != nil {
		d.logger.Warn("Device unreachable despite spooler-ready state",
			"name", p.Name, "uri", p.URI)
	}
	return dev
}

// spoolerReady reports tier one: operational spooler state and no
// offline/shutdown/paused state reason.
func spoolerReady(p spool.Printer) bool {
	if p.State != spool.StateIdle && p.State != spool.StateProcessing {
		return false
	}
	for _, r := range p.StateReasons {
		lr := strings.ToLower(r)
		if strings.Contains(lr, "offline") || strings.Contains(lr, "shutdown") || strings.Contains(lr, "paused") {
			return false
		}
	}
	return true
}

// Devices returns a snapshot of the current directory.
func (d *Directory) Devices() []Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Device, 0, len(d.devices))
	for _, dev := range d.devices {
		out = append(out, dev)
	}
	return out
}

// Device looks up one record by URI.
func (d *Directory) Device(uri string) (Device, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, ok := d.devices[uri]
	return dev, ok
}

// AdvancedInfo resolves the cached advanced record for a URI, deriving it
// on a cache miss. The URI must have been enumerated in the most recent
// discovery pass.
func (d *Directory) AdvancedInfo(uri string) (AdvancedInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if info, ok := d.advanced[uri]; ok {
		return info, nil
	}
	dev, ok := d.devices[uri]
	if !ok {
		return AdvancedInfo{}, fmt.Errorf("%w: %s", ErrUnknownDevice, uri)
	}

	info := deriveAdvancedInfo(dev)
	d.advanced[uri] = info
	if d.logger != nil {
		d.logger.Debug("Derived advanced info", "uri", uri,
			"vendor", string(info.Device.Vendor), "recommended", info.Recommended)
	}
	return info, nil
}

// deriveAdvancedInfo builds the advanced record: registry protocols with
// the recommended hoisted first, quirks, and the recommended generator's
// capability set.
func deriveAdvancedInfo(dev Device) AdvancedInfo {
	info := AdvancedInfo{
		Device:                dev,
		Recommended:           compat.RecommendedProtocol(dev.Vendor, dev.MakeModel),
		Protocols:             compat.AvailableProtocols(dev.Vendor, dev.MakeModel),
		Quirks:                compat.Quirks(dev.Vendor, dev.MakeModel),
		RequiresPreprocessing: compat.RequiresPreprocessing(dev.Vendor, dev.MakeModel),
	}
	if gen, err := protocol.NewGenerator(info.Recommended, dev.Vendor); err == nil {
		info.Capabilities = gen.Capabilities()
	}
	return info
}

// SelectProtocol picks the wire protocol for a job targeting this device:
// the registry recommendation when present, otherwise a vendor default.
func SelectProtocol(info AdvancedInfo) string {
	if info.Recommended != "" {
		return info.Recommended
	}
	if info.Device.Vendor == protocol.VendorHP {
		return "HPGL2"
	}
	return "PostScript"
}

// ValidateDocument checks a plotter job's options against the device's
// chosen generator. Size and color mismatches are fatal; a resolution
// mismatch is logged as a warning and tolerated, since most plotters
// resample internally.
func (d *Directory) ValidateDocument(info AdvancedInfo, opts spool.Options) error {
	gen, err := protocol.NewGenerator(SelectProtocol(info), info.Device.Vendor)
	if err != nil {
		return fmt.Errorf("resolve generator: %w", err)
	}

	size := protocol.ParseMediaSize(opts.MediaSize)
	mode := protocol.ParseColorMode(opts.ColorMode)
	dpi := protocol.DPIForQuality(opts.Quality)

	if !gen.ValidateMediaSize(size) {
		return fmt.Errorf("unsupported media size %q for %s", opts.MediaSize, gen.Name())
	}
	if !gen.ValidateColorMode(mode) {
		return fmt.Errorf("unsupported color mode %q for %s", opts.ColorMode, gen.Name())
	}
	if !gen.ValidateResolution(dpi) && d.logger != nil {
		d.logger.Warn("Resolution outside device set, device will resample",
			"dpi", dpi, "protocol", gen.Name())
	}
	return nil
}

// Monitor runs discovery passes at the given interval until the context
// is cancelled. Status changes fire the registered callback.
func (d *Directory) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Discover(ctx); err != nil && d.logger != nil {
				d.logger.Error("Monitoring discovery failed", "error", err.Error())
			}
		}
	}
}
