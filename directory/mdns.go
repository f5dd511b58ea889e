package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
)

// mdnsServiceTypes are the DNS-SD service types network printers
// advertise.
var mdnsServiceTypes = []string{"_ipp._tcp", "_ipps._tcp", "_printer._tcp"}

// BrowseMDNS browses mDNS/DNS-SD for printer services until the context
// is cancelled or the wait elapses, then resolves each discovered host
// through the gateway's attribute fetch. Duplicate addresses are folded.
func (d *Directory) BrowseMDNS(ctx context.Context, wait time.Duration) ([]Device, error) {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	browseCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	addrs := make(chan string, 64)
	for _, st := range mdnsServiceTypes {
		st := st
		go func() {
			resolver, err := zeroconf.NewResolver(nil)
			if err != nil {
				if d.logger != nil {
					d.logger.Warn("mDNS resolver error", "error", err.Error())
				}
				return
			}
			entries := make(chan *zeroconf.ServiceEntry)
			go func() {
				for e := range entries {
					for _, ip := range e.AddrIPv4 {
						select {
						case addrs <- ip.String():
						case <-browseCtx.Done():
							return
						}
					}
				}
			}()
			if err := resolver.Browse(browseCtx, st, "local.", entries); err != nil && d.logger != nil {
				d.logger.Warn("mDNS browse error", "service", st, "error", err.Error())
			}
		}()
	}

	seen := map[string]bool{}
	var found []Device
	for {
		select {
		case <-browseCtx.Done():
			if d.logger != nil {
				d.logger.Info("mDNS browse complete", "found", len(found))
			}
			return found, nil
		case ip := <-addrs:
			if seen[ip] {
				continue
			}
			seen[ip] = true
			dev, ok := d.resolveMDNSHost(ctx, ip)
			if ok {
				found = append(found, dev)
			}
		}
	}
}

// resolveMDNSHost builds a device record for one mDNS-advertised address.
func (d *Directory) resolveMDNSHost(ctx context.Context, ip string) (Device, bool) {
	uri := fmt.Sprintf("ipp://%s:631/ipp/print", ip)
	dev := Device{
		URI:       uri,
		Name:      ip,
		IsOnline:  true,
		LastProbe: time.Now(),
	}
	if p, err := d.gateway.PrinterAttributes(ctx, uri); err == nil {
		if p.Name != "" {
			dev.Name = p.Name
		}
		dev.MakeModel = p.MakeModel
		dev.Location = p.Location
		dev.SpoolerState = p.State
	}
	dev.Vendor = DetectVendor(dev.MakeModel)
	dev.IsPlotter = IsPlotter(dev.MakeModel)
	return dev, true
}
