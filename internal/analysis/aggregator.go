package analysis

import (
	"fmt"
	"sort"

	"github.com/ppiankov/legisla/internal/model"
)

// groupKey identifies a statistical bucket. Block is empty when grouping by deputy only.
type groupKey struct {
	block  string
	deputy string
}

// tally accumulates counts for one bucket
type tally struct {
	participation int
	loyal         int
	cast          int
	officialism   int
	accerted      int
	absent        int
	notVoted      int
	abstention    int
	lastBlock     string
	blocks        map[string]struct{}
}

// Aggregator combines classified votes from every votation into per-deputy statistics
type Aggregator struct {
	groupBy string
}

// NewAggregator creates an aggregator for the given grouping mode
// (model.GroupByBlockDeputy or model.GroupByDeputy)
func NewAggregator(groupBy string) (*Aggregator, error) {
	switch groupBy {
	case "", model.GroupByBlockDeputy:
		return &Aggregator{groupBy: model.GroupByBlockDeputy}, nil
	case model.GroupByDeputy:
		return &Aggregator{groupBy: model.GroupByDeputy}, nil
	default:
		return nil, fmt.Errorf("unknown grouping mode %q (supported: %s, %s)", groupBy, model.GroupByBlockDeputy, model.GroupByDeputy)
	}
}

// Aggregate folds classified votes into one DeputyStatistics per bucket.
//
// average_loyalty and officialism_support are means over every classified
// vote of the bucket, absences included. In block_deputy mode a deputy who
// changes block is reported once per block name exactly as recorded.
// Votes must be given in votation order for the deputy-only block to be the latest.
func (a *Aggregator) Aggregate(votes []model.ClassifiedVote) []model.DeputyStatistics {
	tallies := make(map[groupKey]*tally)

	for _, v := range votes {
		key := groupKey{deputy: v.Deputy}
		if a.groupBy == model.GroupByBlockDeputy {
			key.block = v.Block
		}

		t, ok := tallies[key]
		if !ok {
			t = &tally{blocks: make(map[string]struct{})}
			tallies[key] = t
		}

		t.participation++
		if v.IsLoyal {
			t.loyal++
		}
		if v.Choice.IsCast() {
			t.cast++
		}
		if v.SupportedOfficialism {
			t.officialism++
		}
		if v.WasCorrectPrediction {
			t.accerted++
		}
		switch v.Choice {
		case model.ChoiceAbsent:
			t.absent++
		case model.ChoiceNotVoted:
			t.notVoted++
		case model.ChoiceAbstention:
			t.abstention++
		}
		t.lastBlock = v.Block
		t.blocks[v.Block] = struct{}{}
	}

	stats := make([]model.DeputyStatistics, 0, len(tallies))
	for key, t := range tallies {
		s := model.DeputyStatistics{
			Block:              t.lastBlock,
			Deputy:             key.deputy,
			AverageLoyalty:     float64(t.loyal) / float64(t.participation),
			TotalVotes:         t.cast,
			TotalParticipation: t.participation,
			OfficialismSupport: float64(t.officialism) / float64(t.participation),
			Accerted:           t.accerted,
			Absent:             t.absent,
			NotVoted:           t.notVoted,
			Abstention:         t.abstention,
		}
		if a.groupBy == model.GroupByDeputy {
			s.Blocks = sortedKeys(t.blocks)
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Block != stats[j].Block {
			return stats[i].Block < stats[j].Block
		}
		return stats[i].Deputy < stats[j].Deputy
	})

	return stats
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
