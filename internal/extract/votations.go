package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/legisla/internal/model"
)

const listDateLayout = "02/01/2006"

// VotationListExtractor parses the search results page of the chamber's
// voting site into votation metadata
type VotationListExtractor struct {
	selector string
}

// NewVotationListExtractor creates an extractor for the search results table
func NewVotationListExtractor() *VotationListExtractor {
	return &VotationListExtractor{
		selector: "tbody#container-actas tr",
	}
}

// Extract returns one VotationMetadata per result row.
// Rows without an id or with fewer than three cells are skipped.
func (e *VotationListExtractor) Extract(htmlContent string) ([]model.VotationMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find(e.selector)
	if table.Length() == 0 && doc.Find("tbody#container-actas").Length() == 0 {
		return nil, fmt.Errorf("votation table not found")
	}

	var votations []model.VotationMetadata
	var parseErr error

	table.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		id := strings.TrimSpace(row.AttrOr("id", ""))
		cells := row.Find("td")
		if id == "" || cells.Length() < 3 {
			return true
		}

		rawDate := cleanText(cells.Eq(0).Text())
		if len(rawDate) > 10 {
			rawDate = rawDate[:10]
		}
		date, err := time.Parse(listDateLayout, rawDate)
		if err != nil {
			parseErr = fmt.Errorf("votation %s: parse date %q: %w", id, rawDate, err)
			return false
		}

		kind := cleanText(cells.Eq(2).Text())
		votations = append(votations, model.VotationMetadata{
			ID:       id,
			Date:     date,
			Title:    cleanText(cells.Eq(1).Text()),
			Type:     kind,
			Result:   resultFromType(kind),
			Scrape:   model.StageUnscraped,
			Analysis: model.StageUnanalyzed,
		})
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return votations, nil
}

// resultFromType maps the listed type column to the official result
func resultFromType(kind string) string {
	if strings.EqualFold(kind, string(model.ChoiceAffirmative)) {
		return "positive"
	}
	return "negative"
}

// cleanText collapses whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
