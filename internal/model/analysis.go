package model

// BlockPreference is a block's vote tally and majority preference for one votation
type BlockPreference struct {
	VotationID  string     `json:"votation_id"`
	Block       string     `json:"block"`
	Affirmative int        `json:"affirmatives"`
	Negative    int        `json:"negatives"`
	Abstention  int        `json:"abstentions"`
	NotVoted    int        `json:"not_voted"`
	Absent      int        `json:"absents"`
	Total       int        `json:"count"`
	Preference  VoteChoice `json:"preference"` // AFIRMATIVO or NEGATIVO
}

// ClassifiedVote is a VoteRecord labelled against its block, the governing block
// and the votation outcome
type ClassifiedVote struct {
	VoteRecord
	IsLoyal              bool `json:"loyalty"`
	SupportedOfficialism bool `json:"supported_officialism"`
	WasCorrectPrediction bool `json:"accerted"`
}

// DeputyStatistics aggregates a deputy's classified votes across votations.
// The JSON names are consumed by reports and exports.
type DeputyStatistics struct {
	Block              string   `json:"block"`
	Deputy             string   `json:"deputy"`
	Blocks             []string `json:"blocks,omitempty"` // Set only when grouping by deputy
	AverageLoyalty     float64  `json:"average_loyalty"`
	TotalVotes         int      `json:"total_votes"`
	TotalParticipation int      `json:"total_participation"`
	OfficialismSupport float64  `json:"officialism_support"`
	Accerted           int      `json:"accerted"`
	Absent             int      `json:"absent"`
	NotVoted           int      `json:"not_voted"`
	Abstention         int      `json:"abstention"`
}
