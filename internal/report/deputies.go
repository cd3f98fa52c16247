package report

import (
	"sort"
	"strings"

	"github.com/ppiankov/legisla/internal/model"
)

// DeputyList is a filtered listing of statistics rows ordered by loyalty
type DeputyList struct {
	Block           string                   `json:"block,omitempty"`
	Deputies        int                      `json:"deputies"`
	MeanLoyalty     float64                  `json:"mean_loyalty"`
	MeanOfficialism float64                  `json:"mean_officialism_support"`
	Rows            []model.DeputyStatistics `json:"rows"`
}

// ListDeputies returns the rows of block (all rows when block is empty),
// highest loyalty first. Block matching ignores case.
func ListDeputies(stats []model.DeputyStatistics, block string) DeputyList {
	list := DeputyList{Block: block, Rows: []model.DeputyStatistics{}}

	names := make(map[string]bool)
	for _, s := range stats {
		if block != "" && !strings.EqualFold(s.Block, block) {
			continue
		}
		list.Rows = append(list.Rows, s)
		names[s.Deputy] = true
		list.MeanLoyalty += s.AverageLoyalty
		list.MeanOfficialism += s.OfficialismSupport
	}

	if n := len(list.Rows); n > 0 {
		list.MeanLoyalty /= float64(n)
		list.MeanOfficialism /= float64(n)
	}
	list.Deputies = len(names)

	sort.SliceStable(list.Rows, func(i, j int) bool {
		return list.Rows[i].AverageLoyalty > list.Rows[j].AverageLoyalty
	})
	return list
}

// FindDeputy returns every row of the named deputy. A deputy who switched
// blocks has one row per block in block_deputy mode.
func FindDeputy(stats []model.DeputyStatistics, name string) []model.DeputyStatistics {
	var rows []model.DeputyStatistics
	for _, s := range stats {
		if strings.EqualFold(strings.TrimSpace(s.Deputy), strings.TrimSpace(name)) {
			rows = append(rows, s)
		}
	}
	return rows
}
