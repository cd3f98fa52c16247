package analysis

import (
	"strings"

	"github.com/ppiankov/legisla/internal/model"
)

// ResolveBlockPreferences tallies the records of one votation per block and
// derives each block's majority preference.
//
// Presiding rows are skipped. The preference is AFIRMATIVO only when
// affirmatives strictly outnumber negatives, so ties and blocks that only
// abstained or were absent resolve to NEGATIVO. A votation without ordinary
// records yields *EmptyVotationError and an unrecognized choice yields
// *UnknownChoiceError.
func ResolveBlockPreferences(votationID string, records []model.VoteRecord) (map[string]model.BlockPreference, error) {
	prefs := make(map[string]model.BlockPreference)

	for _, r := range records {
		if r.IsPresiding() {
			continue
		}
		if strings.TrimSpace(r.Block) == "" {
			return nil, &MissingBlockError{VotationID: votationID, Deputy: r.Deputy}
		}

		bp := prefs[r.Block]
		bp.VotationID = votationID
		bp.Block = r.Block
		switch r.Choice {
		case model.ChoiceAffirmative:
			bp.Affirmative++
		case model.ChoiceNegative:
			bp.Negative++
		case model.ChoiceAbstention:
			bp.Abstention++
		case model.ChoiceNotVoted:
			bp.NotVoted++
		case model.ChoiceAbsent:
			bp.Absent++
		default:
			return nil, &UnknownChoiceError{VotationID: votationID, Deputy: r.Deputy, Choice: string(r.Choice)}
		}
		bp.Total++
		prefs[r.Block] = bp
	}

	if len(prefs) == 0 {
		return nil, &EmptyVotationError{VotationID: votationID}
	}

	for block, bp := range prefs {
		bp.Preference = majority(bp.Affirmative, bp.Negative)
		prefs[block] = bp
	}

	return prefs, nil
}

// majority applies the strictly-greater rule shared by block preferences
func majority(affirmative, negative int) model.VoteChoice {
	if affirmative > negative {
		return model.ChoiceAffirmative
	}
	return model.ChoiceNegative
}
