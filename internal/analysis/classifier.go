package analysis

import (
	"github.com/ppiankov/legisla/internal/model"
)

// IsLoyal reports whether a vote matches the block preference.
// Only AFIRMATIVO and NEGATIVO can be loyal.
func IsLoyal(choice, blockPreference model.VoteChoice) bool {
	return (blockPreference == model.ChoiceAffirmative && choice == model.ChoiceAffirmative) ||
		(blockPreference == model.ChoiceNegative && choice == model.ChoiceNegative)
}

// SupportsOfficialism reports whether a vote aligns with the governing block.
//
// The rule is asymmetric and kept as the legacy model defines it. When the
// governing block leans AFIRMATIVO only an explicit affirmative vote (or the
// chair) counts as support. When it leans NEGATIVO anything that is not an
// affirmative vote counts, so absence and abstention "support" the government.
func SupportsOfficialism(choice, governingPreference model.VoteChoice) bool {
	if governingPreference == model.ChoiceAffirmative {
		return choice == model.ChoiceAffirmative || choice == model.ChoicePresiding
	}
	switch choice {
	case model.ChoiceNegative, model.ChoiceAbsent, model.ChoiceNotVoted, model.ChoiceAbstention:
		return true
	}
	return false
}

// VotationOutcome derives the outcome used to score predictions.
//
// Affirmative votes are compared against the full number of ordinary records,
// not against negatives. Affirmatives can never exceed that count, so the
// outcome is NEGATIVO for every non-degenerate votation. This mirrors the
// legacy denominator and is reported as such rather than corrected.
func VotationOutcome(records []model.VoteRecord) model.VoteChoice {
	affirmative := 0
	total := 0
	for _, r := range records {
		if r.IsPresiding() {
			continue
		}
		total++
		if r.Choice == model.ChoiceAffirmative {
			affirmative++
		}
	}
	if affirmative > total {
		return model.ChoiceAffirmative
	}
	return model.ChoiceNegative
}

// Classify labels one ordinary vote record
func Classify(record model.VoteRecord, blockPref, governingPref model.BlockPreference, outcome model.VoteChoice) model.ClassifiedVote {
	return model.ClassifiedVote{
		VoteRecord:           record,
		IsLoyal:              IsLoyal(record.Choice, blockPref.Preference),
		SupportedOfficialism: SupportsOfficialism(record.Choice, governingPref.Preference),
		WasCorrectPrediction: record.Choice == outcome,
	}
}

// ClassifyRecords classifies every ordinary record of one votation.
// Presiding rows are dropped.
func ClassifyRecords(votationID string, records []model.VoteRecord, governingBlock string) ([]model.ClassifiedVote, error) {
	ordinary := make([]model.VoteRecord, 0, len(records))
	for _, r := range records {
		if !r.IsPresiding() {
			ordinary = append(ordinary, r)
		}
	}
	if len(ordinary) == 0 {
		return nil, &EmptyVotationError{VotationID: votationID}
	}

	prefs, err := ResolveBlockPreferences(votationID, ordinary)
	if err != nil {
		return nil, err
	}

	governing, ok := prefs[governingBlock]
	if !ok {
		return nil, &UnknownBlockPreferenceError{VotationID: votationID, Block: governingBlock}
	}

	outcome := VotationOutcome(ordinary)

	classified := make([]model.ClassifiedVote, 0, len(ordinary))
	for _, r := range ordinary {
		classified = append(classified, Classify(r, prefs[r.Block], governing, outcome))
	}
	return classified, nil
}
