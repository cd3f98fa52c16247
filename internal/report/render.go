package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/ppiankov/legisla/internal/analysis"
	"github.com/ppiankov/legisla/internal/cache"
	"github.com/ppiankov/legisla/internal/model"
)

// Format is an output format of the report command
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatMarkdown, FormatCSV:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json, md or csv)", s)
}

// statisticsHeader is the column order of statistics.csv
var statisticsHeader = []string{
	"block", "deputy", "average_loyalty", "total_votes", "total_participation",
	"officialism_support", "accerted", "absent", "not_voted", "abstention",
}

// Renderer renders dashboards and memoizes output per run inputs
type Renderer struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRenderer creates a renderer. A nil cache disables memoization.
func NewRenderer(c cache.Cache, ttl time.Duration) *Renderer {
	return &Renderer{cache: c, ttl: ttl}
}

// InputKey identifies the inputs of a run: grouping, governing block and the
// analyzed votations. Runs over the same inputs render identically.
func InputKey(run *analysis.Run) string {
	parts := []string{run.GroupBy, run.Governing}
	parts = append(parts, run.AnalyzedIDs()...)
	return cache.Key(parts...)
}

// Render writes run in format. Dashboard formats use d; csv writes the statistics rows.
func (r *Renderer) Render(w io.Writer, format Format, run *analysis.Run, d *Dashboard) error {
	key := cache.Key(string(format), InputKey(run))
	if r.cache != nil {
		if out, found := r.cache.Get(key); found {
			_, err := w.Write(out)
			return err
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJSON:
		err = WriteJSON(&buf, d)
	case FormatCSV:
		err = WriteStatisticsCSV(&buf, run.Statistics)
	case FormatMarkdown:
		err = WriteMarkdown(&buf, d)
	case FormatTable:
		err = WriteTable(&buf, d)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}

	if r.cache != nil {
		_ = r.cache.Set(key, buf.Bytes(), r.ttl)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteStatisticsCSV writes statistics rows with the published column names
func WriteStatisticsCSV(w io.Writer, stats []model.DeputyStatistics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(statisticsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range stats {
		row := []string{
			s.Block,
			s.Deputy,
			strconv.FormatFloat(s.AverageLoyalty, 'f', -1, 64),
			strconv.Itoa(s.TotalVotes),
			strconv.Itoa(s.TotalParticipation),
			strconv.FormatFloat(s.OfficialismSupport, 'f', -1, 64),
			strconv.Itoa(s.Accerted),
			strconv.Itoa(s.Absent),
			strconv.Itoa(s.NotVoted),
			strconv.Itoa(s.Abstention),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes the dashboard as a Markdown document
func WriteMarkdown(w io.Writer, d *Dashboard) error {
	var b strings.Builder

	b.WriteString("# Legislative vote analysis\n\n")
	fmt.Fprintf(&b, "Run `%s`, governing block **%s**, grouped by `%s`.\n\n", d.RunID, d.GoverningBlock, d.GroupBy)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Votations analyzed | %d |\n", d.Votations)
	if d.Skipped > 0 {
		fmt.Fprintf(&b, "| Votations skipped | %d |\n", d.Skipped)
	}
	fmt.Fprintf(&b, "| General cohesion | %s |\n", percent(d.GeneralCohesion))
	fmt.Fprintf(&b, "| Most cohesive block | %s |\n", orDash(d.MostCohesiveBlock))
	fmt.Fprintf(&b, "| Latest votation | %s |\n", latest(d))
	b.WriteString("\n")

	if len(d.Composition) > 0 {
		fmt.Fprintf(&b, "## Chamber composition (%d deputies)\n\n", d.ChamberSize)
		b.WriteString("| Block | Deputies | Share |\n|---|---:|---:|\n")
		for _, s := range d.Composition {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", s.Block, s.Deputies, s.Percent)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Loyalty ranking\n\nDeputies with at least %d of %d votations (%d qualify).\n\n",
		d.RankingThreshold, d.Votations, d.Qualifying)
	writeMarkdownRanking(&b, "Most loyal", d.MostLoyal)
	writeMarkdownRanking(&b, "Least loyal", d.LeastLoyal)

	if len(d.MostAbsent) > 0 {
		fmt.Fprintf(&b, "## Absences\n\nAverage absences: %.1f\n\n", d.AverageAbsences)
		b.WriteString("| # | Deputy | Block | Absent | Of total |\n|---:|---|---|---:|---:|\n")
		for i, s := range d.MostAbsent {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %s |\n", i+1, s.Deputy, s.Block, s.Absent, share(s.Absent, s.TotalParticipation))
		}
		b.WriteString("\n")
	}

	if len(d.TopPredictors) > 0 {
		b.WriteString("## Top predictors\n\n")
		b.WriteString("| # | Deputy | Block | Votes | Correct | Accuracy |\n|---:|---|---|---:|---:|---:|\n")
		for i, s := range d.TopPredictors {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %d | %s |\n", i+1, s.Deputy, s.Block, s.TotalVotes, s.Accerted, share(s.Accerted, s.TotalVotes))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownRanking(b *strings.Builder, title string, rows []model.DeputyStatistics) {
	fmt.Fprintf(b, "### %s\n\n", title)
	if len(rows) == 0 {
		b.WriteString("No deputy qualifies.\n\n")
		return
	}
	b.WriteString("| # | Deputy | Block | Loyalty | Votes |\n|---:|---|---|---:|---:|\n")
	for i, s := range rows {
		fmt.Fprintf(b, "| %d | %s | %s | %s | %d |\n", i+1, s.Deputy, s.Block, percent(s.AverageLoyalty), s.TotalVotes)
	}
	b.WriteString("\n")
}

// WriteTable writes the dashboard as terminal tables
func WriteTable(w io.Writer, d *Dashboard) error {
	summary := newTable(w, "Summary")
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.AppendRows([]table.Row{
		{"Votations analyzed", d.Votations},
		{"Votations skipped", d.Skipped},
		{"General cohesion", percent(d.GeneralCohesion)},
		{"Most cohesive block", orDash(d.MostCohesiveBlock)},
		{"Latest votation", latest(d)},
	})
	summary.Render()

	if len(d.Composition) > 0 {
		comp := newTable(w, fmt.Sprintf("Chamber composition (%d deputies)", d.ChamberSize))
		comp.AppendHeader(table.Row{"Block", "Deputies", "Share"})
		for _, s := range d.Composition {
			comp.AppendRow(table.Row{s.Block, s.Deputies, fmt.Sprintf("%.1f%%", s.Percent)})
		}
		comp.SetColumnConfigs(rightAlign(2, 3))
		comp.Render()
	}

	writeRankingTable(w, "Most loyal", d.MostLoyal)
	writeRankingTable(w, "Least loyal", d.LeastLoyal)

	if len(d.MostAbsent) > 0 {
		abs := newTable(w, fmt.Sprintf("Most absences (average %.1f)", d.AverageAbsences))
		abs.AppendHeader(table.Row{"#", "Deputy", "Block", "Absent", "Of total"})
		for i, s := range d.MostAbsent {
			abs.AppendRow(table.Row{i + 1, s.Deputy, s.Block, s.Absent, share(s.Absent, s.TotalParticipation)})
		}
		abs.SetColumnConfigs(rightAlign(4, 5))
		abs.Render()
	}

	if len(d.TopPredictors) > 0 {
		pred := newTable(w, "Top predictors")
		pred.AppendHeader(table.Row{"#", "Deputy", "Block", "Votes", "Correct", "Accuracy"})
		for i, s := range d.TopPredictors {
			pred.AppendRow(table.Row{i + 1, s.Deputy, s.Block, s.TotalVotes, s.Accerted, share(s.Accerted, s.TotalVotes)})
		}
		pred.SetColumnConfigs(rightAlign(4, 5, 6))
		pred.Render()
	}

	return nil
}

// WriteDeputiesTable writes a deputy listing as a terminal table
func WriteDeputiesTable(w io.Writer, list DeputyList) {
	title := "All deputies"
	if list.Block != "" {
		title = list.Block
	}
	t := newTable(w, fmt.Sprintf("%s: %d deputies, loyalty %s, officialism support %s",
		title, list.Deputies, percent(list.MeanLoyalty), percent(list.MeanOfficialism)))
	t.AppendHeader(table.Row{"Deputy", "Block", "Loyalty", "Officialism", "Accuracy", "Votes", "Absent", "Not voted", "Abstention"})
	for _, s := range list.Rows {
		t.AppendRow(table.Row{
			s.Deputy, s.Block,
			percent(s.AverageLoyalty), percent(s.OfficialismSupport), share(s.Accerted, s.TotalVotes),
			s.TotalVotes, s.Absent, s.NotVoted, s.Abstention,
		})
	}
	t.SetColumnConfigs(rightAlign(3, 4, 5, 6, 7, 8, 9))
	t.Render()
}

func writeRankingTable(w io.Writer, title string, rows []model.DeputyStatistics) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Deputy", "Block", "Loyalty", "Votes"})
	for i, s := range rows {
		t.AppendRow(table.Row{i + 1, s.Deputy, s.Block, percent(s.AverageLoyalty), s.TotalVotes})
	}
	t.SetColumnConfigs(rightAlign(4, 5))
	t.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func rightAlign(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, len(columns))
	for i, n := range columns {
		configs[i] = table.ColumnConfig{Number: n, Align: text.AlignRight}
	}
	return configs
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func share(part, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func latest(d *Dashboard) string {
	if d.LatestVotation == nil {
		return "-"
	}
	return d.LatestVotation.Format("02/01/2006")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
