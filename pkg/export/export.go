// Package export renders a comparison of tools into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/compare"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "html"}

// Payload is a rendered export.
type Payload struct {
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Supported reports whether format can be rendered.
func Supported(format string) bool {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Render builds the export document for tools in the requested format.
func Render(format string, tools []catalog.Tool) (Payload, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	res := compare.Assemble(tools)

	switch format {
	case "json":
		content, err := renderJSON(res)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Format: format, Filename: "comparison.json", ContentType: "application/json", Content: content}, nil
	case "csv":
		content, err := renderCSV(res)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Format: format, Filename: "comparison.csv", ContentType: "text/csv", Content: content}, nil
	case "html":
		content, err := renderHTML(res)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Format: format, Filename: "comparison.html", ContentType: "text/html; charset=utf-8", Content: content}, nil
	default:
		return Payload{}, fmt.Errorf("unsupported export format: %s", format)
	}
}

type jsonDocument struct {
	Tools            []catalog.Tool       `json:"tools"`
	Features         []string             `json:"features"`
	FeatureMatrix    []compare.FeatureRow `json:"featureMatrix"`
	PriceMatrix      []compare.PriceRow   `json:"priceMatrix"`
	EstimatedSavings string               `json:"estimatedSavings"`
}

func renderJSON(res compare.Result) (string, error) {
	doc := jsonDocument{
		Tools:            res.Tools,
		Features:         res.Features,
		FeatureMatrix:    compare.Matrix(res),
		PriceMatrix:      compare.PriceMatrix(res),
		EstimatedSavings: compare.EstimateSavings(res.Tools).StringFixed(2),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// renderCSV writes one row per tool: identity, one column per tier price and
// one yes/no column per feature.
func renderCSV(res compare.Result) (string, error) {
	prices := compare.PriceMatrix(res)
	features := compare.Matrix(res)

	header := []string{"id", "name", "category", "website"}
	for _, row := range prices {
		header = append(header, string(row.Tier))
	}
	header = append(header, res.Features...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, t := range res.Tools {
		record := []string{t.ID, t.Name, t.Category, t.Website}
		for _, row := range prices {
			cell := ""
			if p := row.Cells[i]; p != nil {
				cell = p.String()
			}
			record = append(record, cell)
		}
		for _, row := range features {
			if row.Present[i] {
				record = append(record, "yes")
			} else {
				record = append(record, "no")
			}
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
