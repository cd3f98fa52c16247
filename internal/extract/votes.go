package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/legisla/internal/model"
	"golang.org/x/net/html"
)

// column positions of the roll-call table
type columns struct {
	deputy, block, province, vote int
}

// defaultColumns is the layout used when the table has no usable header:
// the last four cells are deputy, block, province and vote
var defaultColumns = columns{deputy: -4, block: -3, province: -2, vote: -1}

// RollCallExtractor parses a votation detail page into vote records
type RollCallExtractor struct{}

// NewRollCallExtractor creates a roll-call extractor
func NewRollCallExtractor() *RollCallExtractor {
	return &RollCallExtractor{}
}

// Extract returns the votes listed on a votation page, presiding row included.
// An unknown vote label fails the whole page.
func (e *RollCallExtractor) Extract(htmlContent string, votationID string) ([]model.VoteRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table, cols := findRollCallTable(doc)
	if table == nil {
		return nil, fmt.Errorf("roll-call table not found")
	}

	var records []model.VoteRecord
	var rowErr error

	table.Find("tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		n := cells.Length()
		if n < 4 {
			return true
		}

		cell := func(idx int) string {
			if idx < 0 {
				idx = n + idx
			}
			if idx < 0 || idx >= n {
				return ""
			}
			return nodeText(cells.Get(idx))
		}

		label := cell(cols.vote)
		choice, err := model.ParseVoteChoice(label)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}

		records = append(records, model.VoteRecord{
			VotationID: votationID,
			Deputy:     cell(cols.deputy),
			Block:      cell(cols.block),
			Province:   cell(cols.province),
			Choice:     choice,
		})
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return records, nil
}

// findRollCallTable picks the first table whose header names a block column
func findRollCallTable(doc *goquery.Document) (*goquery.Selection, columns) {
	var found *goquery.Selection
	cols := defaultColumns

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headers := table.Find("thead th")
		if headers.Length() == 0 {
			return true
		}

		c := columns{deputy: -1, block: -1, province: -1, vote: -1}
		headers.Each(func(i int, th *goquery.Selection) {
			h := strings.ToUpper(nodeText(th.Get(0)))
			switch {
			case strings.Contains(h, "DIPUTADO"):
				c.deputy = i
			case strings.Contains(h, "BLOQUE"):
				c.block = i
			case strings.Contains(h, "PROVINCIA"):
				c.province = i
			case strings.Contains(h, "VOT"):
				c.vote = i
			}
		})

		if c.block < 0 {
			return true
		}
		found = table
		if c.deputy >= 0 && c.vote >= 0 {
			if c.province < 0 {
				c.province = len(headers.Nodes) // out of range reads as empty
			}
			cols = c
		}
		return false
	})

	if found == nil {
		// Fall back to any table with body rows
		t := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find("tbody tr").Length() > 0
		}).First()
		if t.Length() > 0 {
			found = t
		}
	}

	return found, cols
}

// nodeText returns the visible text of a node with whitespace collapsed,
// skipping script and style content
func nodeText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return cleanText(buf.String())
}
