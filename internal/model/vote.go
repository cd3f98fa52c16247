package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// VoteChoice is how a deputy voted, using the labels published by the chamber
type VoteChoice string

const (
	ChoiceAffirmative VoteChoice = "AFIRMATIVO"
	ChoiceNegative    VoteChoice = "NEGATIVO"
	ChoiceAbstention  VoteChoice = "ABSTENCION"
	ChoiceNotVoted    VoteChoice = "SIN VOTAR"
	ChoiceAbsent      VoteChoice = "AUSENTE"
	ChoicePresiding   VoteChoice = "PRESIDENTE" // Chair of the session, not an ordinary vote
)

// Choices lists every known vote choice in display order
var Choices = []VoteChoice{
	ChoiceAffirmative,
	ChoiceNegative,
	ChoiceAbstention,
	ChoiceNotVoted,
	ChoiceAbsent,
	ChoicePresiding,
}

// IsCast reports whether the choice is an up/down vote
func (c VoteChoice) IsCast() bool {
	return c == ChoiceAffirmative || c == ChoiceNegative
}

// ParseVoteChoice maps a label from the source site to a VoteChoice.
// Case, surrounding whitespace and accents are ignored.
func ParseVoteChoice(s string) (VoteChoice, error) {
	key := strings.ToUpper(strings.Join(strings.Fields(stripAccents(s)), " "))
	for _, c := range Choices {
		if string(c) == key {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown vote choice %q", s)
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// VoteRecord is one deputy's vote in one votation
type VoteRecord struct {
	VotationID string     `json:"votation_id"`
	Deputy     string     `json:"deputy"`
	Block      string     `json:"block"`
	Province   string     `json:"province"`
	Choice     VoteChoice `json:"vote"`
}

// IsPresiding reports whether the record belongs to the session chair
func (r VoteRecord) IsPresiding() bool {
	return r.Choice == ChoicePresiding
}

// ScrapeStage tracks whether a votation's roll call has been fetched
type ScrapeStage string

const (
	StageUnscraped ScrapeStage = "unscraped"
	StageScraped   ScrapeStage = "scraped"
)

// AnalysisStage tracks whether a votation took part in a successful analysis run
type AnalysisStage string

const (
	StageUnanalyzed AnalysisStage = "unanalyzed"
	StageAnalyzed   AnalysisStage = "analyzed"
)

// VotationMetadata describes one recorded chamber vote
type VotationMetadata struct {
	ID       string        `json:"id"`
	Date     time.Time     `json:"date"`
	Title    string        `json:"title"`
	Type     string        `json:"type"`
	Result   string        `json:"result"` // Official result as listed by the site
	Scrape   ScrapeStage   `json:"scrape_stage"`
	Analysis AnalysisStage `json:"analysis_stage"`
}

// Loaded reports whether the roll call has been stored
func (m VotationMetadata) Loaded() bool {
	return m.Scrape == StageScraped
}

// Analyzed reports whether the votation was included in an analysis run
func (m VotationMetadata) Analyzed() bool {
	return m.Analysis == StageAnalyzed
}
