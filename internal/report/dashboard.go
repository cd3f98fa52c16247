package report

import (
	"sort"
	"time"

	"github.com/ppiankov/legisla/internal/analysis"
	"github.com/ppiankov/legisla/internal/model"
)

const (
	rankingSize   = 5
	absenceSize   = 10
	predictorSize = 10
)

// BlockShare is a block's seat count in a votation
type BlockShare struct {
	Block    string  `json:"block"`
	Deputies int     `json:"deputies"`
	Percent  float64 `json:"percent"`
}

// BlockSummary aggregates the statistics rows of one block
type BlockSummary struct {
	Block              string  `json:"block"`
	Deputies           int     `json:"deputies"`
	MeanLoyalty        float64 `json:"mean_loyalty"`
	MeanOfficialism    float64 `json:"mean_officialism_support"`
	TotalAbsences      int     `json:"total_absences"`
	TotalParticipation int     `json:"total_participation"`
}

// Dashboard is the summary view of an analysis run
type Dashboard struct {
	RunID             string                   `json:"run_id"`
	GeneratedAt       time.Time                `json:"generated_at"`
	GroupBy           string                   `json:"group_by"`
	GoverningBlock    string                   `json:"governing_block"`
	Votations         int                      `json:"votations"`
	Skipped           int                      `json:"skipped"`
	GeneralCohesion   float64                  `json:"general_cohesion"`
	MostCohesiveBlock string                   `json:"most_cohesive_block"`
	LatestVotation    *time.Time               `json:"latest_votation,omitempty"`
	ChamberSize       int                      `json:"chamber_size"`
	Composition       []BlockShare             `json:"composition"`
	Blocks            []BlockSummary           `json:"blocks"`
	RankingThreshold  int                      `json:"ranking_threshold"`
	Qualifying        int                      `json:"qualifying"`
	MostLoyal         []model.DeputyStatistics `json:"most_loyal"`
	LeastLoyal        []model.DeputyStatistics `json:"least_loyal"`
	MostAbsent        []model.DeputyStatistics `json:"most_absent"`
	AverageAbsences   float64                  `json:"average_absences"`
	TopPredictors     []model.DeputyStatistics `json:"top_predictors"`
}

// Build derives the dashboard of run. latestVotes is the stored roll call of
// the most recent votation, presiding row included, and may be empty.
func Build(run *analysis.Run, latestVotes []model.VoteRecord) *Dashboard {
	stats := run.Statistics

	d := &Dashboard{
		RunID:          run.ID,
		GeneratedAt:    time.Now().UTC(),
		GroupBy:        run.GroupBy,
		GoverningBlock: run.Governing,
		Votations:      len(run.Votations),
		Skipped:        len(run.Skipped),
		Composition:    []BlockShare{},
		MostLoyal:      []model.DeputyStatistics{},
		LeastLoyal:     []model.DeputyStatistics{},
		MostAbsent:     []model.DeputyStatistics{},
		TopPredictors:  []model.DeputyStatistics{},
	}

	for _, v := range run.Votations {
		if v.Date.IsZero() {
			continue
		}
		if d.LatestVotation == nil || v.Date.After(*d.LatestVotation) {
			date := v.Date
			d.LatestVotation = &date
		}
	}

	if len(stats) > 0 {
		sum := 0.0
		for _, s := range stats {
			sum += s.AverageLoyalty
		}
		d.GeneralCohesion = sum / float64(len(stats))
	}

	d.Blocks = Blocks(stats)
	bestLoyalty := -1.0
	for _, b := range d.Blocks {
		if b.MeanLoyalty > bestLoyalty {
			bestLoyalty = b.MeanLoyalty
			d.MostCohesiveBlock = b.Block
		}
	}

	d.ChamberSize, d.Composition = composition(latestVotes)

	d.RankingThreshold = d.Votations / 2
	var qualifying []model.DeputyStatistics
	for _, s := range stats {
		if s.TotalVotes >= d.RankingThreshold {
			qualifying = append(qualifying, s)
		}
	}
	d.Qualifying = len(qualifying)

	d.MostLoyal = head(sortedBy(qualifying, func(a, b model.DeputyStatistics) bool {
		if a.AverageLoyalty != b.AverageLoyalty {
			return a.AverageLoyalty > b.AverageLoyalty
		}
		return a.TotalVotes > b.TotalVotes
	}), rankingSize)

	d.LeastLoyal = head(sortedBy(qualifying, func(a, b model.DeputyStatistics) bool {
		if a.AverageLoyalty != b.AverageLoyalty {
			return a.AverageLoyalty < b.AverageLoyalty
		}
		return a.TotalVotes < b.TotalVotes
	}), rankingSize)

	d.MostAbsent = head(sortedBy(qualifying, func(a, b model.DeputyStatistics) bool {
		return a.Absent > b.Absent
	}), absenceSize)

	if len(qualifying) > 0 {
		total := 0
		for _, s := range qualifying {
			total += s.Absent
		}
		d.AverageAbsences = float64(total) / float64(len(qualifying))
	}

	d.TopPredictors = head(sortedBy(stats, func(a, b model.DeputyStatistics) bool {
		if a.TotalVotes != b.TotalVotes {
			return a.TotalVotes > b.TotalVotes
		}
		return a.Accerted > b.Accerted
	}), predictorSize)

	return d
}

// Blocks summarizes statistics rows per block, ordered by block name
func Blocks(stats []model.DeputyStatistics) []BlockSummary {
	index := make(map[string]int)
	var out []BlockSummary
	loyalty := make(map[string]float64)
	official := make(map[string]float64)

	for _, s := range stats {
		i, ok := index[s.Block]
		if !ok {
			i = len(out)
			index[s.Block] = i
			out = append(out, BlockSummary{Block: s.Block})
		}
		out[i].Deputies++
		out[i].TotalAbsences += s.Absent
		out[i].TotalParticipation += s.TotalParticipation
		loyalty[s.Block] += s.AverageLoyalty
		official[s.Block] += s.OfficialismSupport
	}

	for i := range out {
		n := float64(out[i].Deputies)
		out[i].MeanLoyalty = loyalty[out[i].Block] / n
		out[i].MeanOfficialism = official[out[i].Block] / n
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Block < out[j].Block })
	if out == nil {
		out = []BlockSummary{}
	}
	return out
}

// composition counts seats per block in a roll call. Percentages are relative
// to the number of distinct deputies.
func composition(records []model.VoteRecord) (int, []BlockShare) {
	deputies := make(map[string]bool)
	counts := make(map[string]int)
	for _, r := range records {
		deputies[r.Deputy] = true
		counts[r.Block]++
	}

	shares := make([]BlockShare, 0, len(counts))
	for block, n := range counts {
		shares = append(shares, BlockShare{
			Block:    block,
			Deputies: n,
			Percent:  float64(n) / float64(len(deputies)) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Deputies != shares[j].Deputies {
			return shares[i].Deputies > shares[j].Deputies
		}
		return shares[i].Block < shares[j].Block
	})
	return len(deputies), shares
}

// sortedBy returns a stably sorted copy; ties keep the (block, deputy) input order
func sortedBy(stats []model.DeputyStatistics, less func(a, b model.DeputyStatistics) bool) []model.DeputyStatistics {
	out := make([]model.DeputyStatistics, len(stats))
	copy(out, stats)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func head(stats []model.DeputyStatistics, n int) []model.DeputyStatistics {
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}
