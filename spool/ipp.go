package spool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPrinting/goipp"
)

// IPPGateway talks to a CUPS-style IPP endpoint over HTTP. It implements
// Gateway using four IPP operations: CUPS-Get-Printers, Print-Job,
// Cancel-Job and Get-Printer-Attributes.
type IPPGateway struct {
	endpoint string // e.g. "http://localhost:631"
	client   *http.Client
	logger   Logger
}

// NewIPPGateway creates a gateway against the given IPP endpoint.
// requestTimeout bounds each HTTP round trip; spooler submissions of
// large payloads may legitimately take a while, so keep it generous.
func NewIPPGateway(endpoint string, requestTimeout time.Duration, logger Logger) *IPPGateway {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &IPPGateway{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
	}
}

// roundTrip encodes the IPP message, appends the optional document body,
// posts it, and decodes the IPP response.
func (g *IPPGateway) roundTrip(ctx context.Context, url string, msg *goipp.Message, body io.Reader) (*goipp.Message, error) {
	encoded, err := msg.EncodeBytes()
	if err != nil {
		return nil, fmt.Errorf("encode ipp request: %w", err)
	}

	var reqBody io.Reader = bytes.NewReader(encoded)
	if body != nil {
		reqBody = io.MultiReader(bytes.NewReader(encoded), body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", goipp.ContentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipp endpoint returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ipp response: %w", err)
	}

	rsp := &goipp.Message{}
	if err := rsp.DecodeBytes(data); err != nil {
		return nil, fmt.Errorf("decode ipp response: %w", err)
	}
	if goipp.Status(rsp.Code) >= 0x0100 {
		return rsp, fmt.Errorf("ipp: %s", goipp.Status(rsp.Code))
	}
	return rsp, nil
}

func operationAttrs(msg *goipp.Message, printerURI string) {
	msg.Operation.Add(goipp.MakeAttribute("attributes-charset",
		goipp.TagCharset, goipp.String("utf-8")))
	msg.Operation.Add(goipp.MakeAttribute("attributes-natural-language",
		goipp.TagLanguage, goipp.String("en-US")))
	if printerURI != "" {
		msg.Operation.Add(goipp.MakeAttribute("printer-uri",
			goipp.TagURI, goipp.String(printerURI)))
	}
}

// Enumerate lists all spooler destinations via CUPS-Get-Printers.
func (g *IPPGateway) Enumerate(ctx context.Context) ([]Printer, error) {
	msg := goipp.NewRequest(goipp.DefaultVersion, goipp.OpCupsGetPrinters, 1)
	operationAttrs(msg, "")
	rq := goipp.Attribute{Name: "requested-attributes"}
	for _, kw := range []string{
		"printer-name", "printer-uri-supported", "device-uri",
		"printer-make-and-model", "printer-location", "printer-info",
		"printer-state", "printer-state-reasons",
	} {
		rq.Values.Add(goipp.TagKeyword, goipp.String(kw))
	}
	msg.Operation.Add(rq)

	rsp, err := g.roundTrip(ctx, g.endpoint+"/", msg, nil)
	if err != nil {
		return nil, err
	}

	var printers []Printer
	for _, grp := range rsp.Groups {
		if grp.Tag != goipp.TagPrinterGroup {
			continue
		}
		printers = append(printers, printerFromAttrs(grp.Attrs))
	}
	if g.logger != nil {
		g.logger.Debug("Enumerated spooler printers", "count", len(printers))
	}
	return printers, nil
}

// printerFromAttrs maps one IPP printer attribute group to a Printer.
// The device URI is preferred over the spooler-local URI so reachability
// probing targets the physical device.
func printerFromAttrs(attrs goipp.Attributes) Printer {
	p := Printer{LastUpdated: time.Now()}
	var localURI string
	for _, a := range attrs {
		if len(a.Values) == 0 {
			continue
		}
		v := a.Values[0].V
		switch a.Name {
		case "printer-name":
			p.Name = v.String()
		case "printer-uri-supported":
			localURI = v.String()
		case "device-uri":
			p.URI = v.String()
		case "printer-make-and-model":
			p.MakeModel = v.String()
		case "printer-location":
			p.Location = v.String()
		case "printer-info":
			p.Description = v.String()
		case "printer-state":
			if i, ok := v.(goipp.Integer); ok {
				p.State = int(i)
			}
		case "printer-state-reasons":
			for _, val := range a.Values {
				p.StateReasons = append(p.StateReasons, val.V.String())
			}
		}
	}
	if p.URI == "" {
		p.URI = localURI
	}
	return p
}

// Submit sends the file to the named printer via Print-Job and returns
// the spooler-assigned job id.
func (g *IPPGateway) Submit(ctx context.Context, printer, filePath string, opts Options) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	printerURI := g.endpoint + "/printers/" + printer
	msg := goipp.NewRequest(goipp.DefaultVersion, goipp.OpPrintJob, 1)
	operationAttrs(msg, printerURI)
	msg.Operation.Add(goipp.MakeAttribute("requesting-user-name",
		goipp.TagName, goipp.String("allpress")))
	msg.Operation.Add(goipp.MakeAttribute("job-name",
		goipp.TagName, goipp.String(filepath.Base(filePath))))
	msg.Operation.Add(goipp.MakeAttribute("document-format",
		goipp.TagMimeType, goipp.String("application/octet-stream")))

	msg.Job.Add(goipp.MakeAttribute("media",
		goipp.TagKeyword, goipp.String(opts.MediaSize)))
	msg.Job.Add(goipp.MakeAttribute("copies",
		goipp.TagInteger, goipp.Integer(max(opts.Copies, 1))))
	colorMode := "monochrome"
	if opts.ColorMode == "color" {
		colorMode = "color"
	}
	msg.Job.Add(goipp.MakeAttribute("print-color-mode",
		goipp.TagKeyword, goipp.String(colorMode)))
	if opts.Duplex != "" && opts.Duplex != "none" {
		msg.Job.Add(goipp.MakeAttribute("sides",
			goipp.TagKeyword, goipp.String("two-sided-"+opts.Duplex)))
	}

	rsp, err := g.roundTrip(ctx, printerURI, msg, f)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	for _, a := range rsp.Job {
		if a.Name == "job-id" && len(a.Values) > 0 {
			if id, ok := a.Values[0].V.(goipp.Integer); ok && int(id) > 0 {
				if g.logger != nil {
					g.logger.Info("Print job submitted", "printer", printer, "spool_id", int(id))
				}
				return int(id), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: response carried no job-id", ErrRejected)
}

// Cancel cancels a spooler job by id.
func (g *IPPGateway) Cancel(ctx context.Context, spoolID int) error {
	msg := goipp.NewRequest(goipp.DefaultVersion, goipp.OpCancelJob, 1)
	operationAttrs(msg, g.endpoint+"/")
	msg.Operation.Add(goipp.MakeAttribute("job-id",
		goipp.TagInteger, goipp.Integer(spoolID)))
	_, err := g.roundTrip(ctx, g.endpoint+"/", msg, nil)
	return err
}

// PrinterAttributes fetches a single printer's attributes by URI.
func (g *IPPGateway) PrinterAttributes(ctx context.Context, uri string) (Printer, error) {
	msg := goipp.NewRequest(goipp.DefaultVersion, goipp.OpGetPrinterAttributes, 1)
	operationAttrs(msg, uri)
	rq := goipp.Attribute{Name: "requested-attributes"}
	for _, kw := range []string{
		"printer-name", "printer-make-and-model", "printer-location",
		"printer-state", "printer-state-reasons",
	} {
		rq.Values.Add(goipp.TagKeyword, goipp.String(kw))
	}
	msg.Operation.Add(rq)

	rsp, err := g.roundTrip(ctx, uri, msg, nil)
	if err != nil {
		return Printer{}, err
	}
	p := printerFromAttrs(rsp.Printer)
	if p.URI == "" {
		p.URI = uri
	}
	return p, nil
}
