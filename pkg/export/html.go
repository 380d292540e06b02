package export

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stackprice/stackprice/pkg/compare"
)

func renderHTML(res compare.Result) (string, error) {
	doc := element(atom.Html, nil)
	head := element(atom.Head, nil)
	head.AppendChild(element(atom.Meta, map[string]string{"charset": "utf-8"}))
	head.AppendChild(withText(element(atom.Title, nil), "Tool comparison"))
	doc.AppendChild(head)

	body := element(atom.Body, nil)
	body.AppendChild(withText(element(atom.H1, nil), "Tool comparison"))
	body.AppendChild(priceTable(res))
	body.AppendChild(featureTable(res))
	body.AppendChild(withText(element(atom.P, map[string]string{"class": "savings"}),
		"Estimated savings: $"+compare.EstimateSavings(res.Tools).StringFixed(2)))
	doc.AppendChild(body)

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n")
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func priceTable(res compare.Result) *html.Node {
	table := element(atom.Table, map[string]string{"class": "prices"})
	table.AppendChild(headerRow("Tier", res))
	tbody := element(atom.Tbody, nil)
	for _, row := range compare.PriceMatrix(res) {
		tr := element(atom.Tr, map[string]string{"data-tier": string(row.Tier)})
		tr.AppendChild(withText(element(atom.Th, nil), string(row.Tier)))
		for _, cell := range row.Cells {
			text := "-"
			if cell != nil {
				if v, ok := cell.Value(); ok {
					text = "$" + v.StringFixed(2)
				} else {
					text = cell.String()
				}
			}
			tr.AppendChild(withText(element(atom.Td, nil), text))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table
}

func featureTable(res compare.Result) *html.Node {
	table := element(atom.Table, map[string]string{"class": "features"})
	table.AppendChild(headerRow("Feature", res))
	tbody := element(atom.Tbody, nil)
	for _, row := range compare.Matrix(res) {
		tr := element(atom.Tr, nil)
		tr.AppendChild(withText(element(atom.Th, nil), row.Feature))
		for _, present := range row.Present {
			text := "no"
			if present {
				text = "yes"
			}
			tr.AppendChild(withText(element(atom.Td, nil), text))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return table
}

func headerRow(first string, res compare.Result) *html.Node {
	thead := element(atom.Thead, nil)
	tr := element(atom.Tr, nil)
	tr.AppendChild(withText(element(atom.Th, nil), first))
	for _, t := range res.Tools {
		tr.AppendChild(withText(element(atom.Th, map[string]string{"data-tool": t.ID}), t.Name))
	}
	thead.AppendChild(tr)
	return thead
}

func element(a atom.Atom, attrs map[string]string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}
	return n
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}
