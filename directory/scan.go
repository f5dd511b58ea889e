package directory

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// ScanSubnet sweeps hosts 1..254 of a /24 subnet ("192.168.1") looking
// for print devices. The host range is split across NumCPU goroutines;
// each host is probed on the IPP, raw-socket and LPD ports. Hosts with
// 631 open get their printer attributes fetched through the gateway, and
// hosts that answer on a print port but yield no usable make-and-model
// fall back to an SNMP identity query.
func (d *Directory) ScanSubnet(ctx context.Context, subnet string, timeout time.Duration) ([]Device, error) {
	if timeout <= 0 {
		timeout = d.dialTimeout
	}

	hosts := make(chan int, 254)
	for i := 1; i <= 254; i++ {
		hosts <- i
	}
	close(hosts)

	var (
		mu    sync.Mutex
		found []Device
		wg    sync.WaitGroup
	)
	workers := runtime.NumCPU()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range hosts {
				select {
				case <-ctx.Done():
					return
				default:
				}
				ip := fmt.Sprintf("%s.%d", subnet, host)
				dev, ok := d.scanHost(ctx, ip, timeout)
				if !ok {
					continue
				}
				mu.Lock()
				found = append(found, dev)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return found, err
	}
	if d.logger != nil {
		d.logger.Info("Subnet sweep complete", "subnet", subnet, "found", len(found))
	}
	return found, nil
}

// scanHost probes one address and builds a device record for it if any
// print port answers.
func (d *Directory) scanHost(ctx context.Context, ip string, timeout time.Duration) (Device, bool) {
	open := probePorts(ip, []string{"631", "9100", "515"}, timeout)
	if len(open) == 0 {
		return Device{}, false
	}

	dev := Device{
		URI:       fmt.Sprintf("socket://%s:9100", ip),
		Name:      ip,
		IsOnline:  true,
		LastProbe: time.Now(),
	}

	if open[0] == "631" {
		uri := fmt.Sprintf("ipp://%s:631/ipp/print", ip)
		dev.URI = uri
		if p, err := d.gateway.PrinterAttributes(ctx, uri); err == nil {
			if p.Name != "" {
				dev.Name = p.Name
			}
			dev.MakeModel = p.MakeModel
			dev.Location = p.Location
			dev.SpoolerState = p.State
		} else if d.logger != nil {
			d.logger.Debug("IPP attribute fetch failed during sweep",
				"ip", ip, "error", err.Error())
		}
	}

	if dev.MakeModel == "" {
		if ident, err := snmpIdentity(ip, d.snmpCommunity, timeout); err == nil && ident != "" {
			dev.MakeModel = ident
		}
	}

	dev.Vendor = DetectVendor(dev.MakeModel)
	dev.IsPlotter = IsPlotter(dev.MakeModel)
	return dev, true
}
