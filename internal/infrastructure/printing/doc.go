// Package printing turns bill snapshots into PDF statements.
//
// A statement is rendered to HTML with html/template, printed to PDF through
// headless Chrome (chromedp) and uploaded to object storage. BillExporter
// ties the three steps together and implements the bill Exporter port.
//
// Example usage:
//
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer renderer.Close()
//
//	exporter := NewBillExporter(renderer, storage.NewStubObjectStorage(""))
//	result, err := exporter.Export(ctx, snapshot)
package printing
