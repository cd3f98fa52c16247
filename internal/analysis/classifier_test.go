package analysis

import (
	"errors"
	"testing"

	"github.com/ppiankov/legisla/internal/model"
)

func TestIsLoyal(t *testing.T) {
	tests := []struct {
		choice model.VoteChoice
		pref   model.VoteChoice
		want   bool
	}{
		{model.ChoiceAffirmative, model.ChoiceAffirmative, true},
		{model.ChoiceNegative, model.ChoiceNegative, true},
		{model.ChoiceAffirmative, model.ChoiceNegative, false},
		{model.ChoiceNegative, model.ChoiceAffirmative, false},
		{model.ChoiceAbstention, model.ChoiceNegative, false},
		{model.ChoiceAbsent, model.ChoiceNegative, false},
		{model.ChoiceNotVoted, model.ChoiceAffirmative, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.choice)+"/"+string(tt.pref), func(t *testing.T) {
			if got := IsLoyal(tt.choice, tt.pref); got != tt.want {
				t.Errorf("IsLoyal(%s, %s) = %v, want %v", tt.choice, tt.pref, got, tt.want)
			}
		})
	}
}

func TestSupportsOfficialism_Asymmetric(t *testing.T) {
	tests := []struct {
		choice    model.VoteChoice
		governing model.VoteChoice
		want      bool
	}{
		{model.ChoiceAffirmative, model.ChoiceAffirmative, true},
		{model.ChoicePresiding, model.ChoiceAffirmative, true},
		{model.ChoiceNegative, model.ChoiceAffirmative, false},
		{model.ChoiceAbsent, model.ChoiceAffirmative, false},
		{model.ChoiceAbstention, model.ChoiceAffirmative, false},
		{model.ChoiceNegative, model.ChoiceNegative, true},
		{model.ChoiceAbsent, model.ChoiceNegative, true},
		{model.ChoiceNotVoted, model.ChoiceNegative, true},
		{model.ChoiceAbstention, model.ChoiceNegative, true},
		{model.ChoiceAffirmative, model.ChoiceNegative, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.choice)+"/"+string(tt.governing), func(t *testing.T) {
			if got := SupportsOfficialism(tt.choice, tt.governing); got != tt.want {
				t.Errorf("SupportsOfficialism(%s, %s) = %v, want %v", tt.choice, tt.governing, got, tt.want)
			}
		})
	}
}

func TestVotationOutcome_UsesFullDenominator(t *testing.T) {
	// Unanimous affirmative still resolves NEGATIVO because affirmatives
	// are compared against the full record count.
	records := []model.VoteRecord{
		rec("1", "A", "X", model.ChoiceAffirmative),
		rec("1", "B", "X", model.ChoiceAffirmative),
		rec("1", "C", "Y", model.ChoiceAffirmative),
		rec("1", "Chair", "Y", model.ChoicePresiding),
	}

	if got := VotationOutcome(records); got != model.ChoiceNegative {
		t.Errorf("Expected NEGATIVO, got %s", got)
	}
}

func TestClassifyRecords_Scenario(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "A", "X", model.ChoiceAffirmative),
		rec("1", "B", "X", model.ChoiceAffirmative),
		rec("1", "C", "X", model.ChoiceNegative),
	}

	classified, err := ClassifyRecords("1", records, "X")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(classified) != 3 {
		t.Fatalf("Expected 3 classified votes, got %d", len(classified))
	}

	wantLoyal := []bool{true, true, false}
	for i, c := range classified {
		if c.IsLoyal != wantLoyal[i] {
			t.Errorf("Record %d (%s): loyalty %v, want %v", i, c.Deputy, c.IsLoyal, wantLoyal[i])
		}
	}

	// Governing block X prefers AFIRMATIVO
	if !classified[0].SupportedOfficialism || classified[2].SupportedOfficialism {
		t.Errorf("Unexpected officialism support: %+v", classified)
	}

	// Outcome is NEGATIVO, so only C predicted correctly
	if classified[0].WasCorrectPrediction || !classified[2].WasCorrectPrediction {
		t.Errorf("Unexpected prediction flags: %+v", classified)
	}
}

func TestClassifyRecords_AbsentSupportsNegativeGovernment(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "Gov1", "GOV", model.ChoiceNegative),
		rec("1", "Gov2", "GOV", model.ChoiceNegative),
		rec("1", "Opp", "OPP", model.ChoiceAbsent),
	}

	classified, err := ClassifyRecords("1", records, "GOV")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	opp := classified[2]
	if opp.Deputy != "Opp" {
		t.Fatalf("Unexpected order: %+v", classified)
	}
	if !opp.SupportedOfficialism {
		t.Error("Expected absent deputy to support a NEGATIVO-leaning government")
	}
	if opp.IsLoyal {
		t.Error("Expected absent deputy to never be loyal")
	}
}

func TestClassifyRecords_ExcludesPresiding(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "Chair", "GOV", model.ChoicePresiding),
		rec("1", "A", "GOV", model.ChoiceAffirmative),
	}

	classified, err := ClassifyRecords("1", records, "GOV")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(classified) != 1 || classified[0].Deputy != "A" {
		t.Errorf("Expected only the ordinary record, got %+v", classified)
	}
}

func TestClassifyRecords_UnknownGoverningBlock(t *testing.T) {
	records := []model.VoteRecord{
		rec("3", "A", "X", model.ChoiceAffirmative),
	}

	_, err := ClassifyRecords("3", records, "GOV")
	var unknown *UnknownBlockPreferenceError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownBlockPreferenceError, got %v", err)
	}
	if unknown.Block != "GOV" {
		t.Errorf("Expected block GOV, got %s", unknown.Block)
	}
}

func TestClassifyRecords_Empty(t *testing.T) {
	records := []model.VoteRecord{
		rec("4", "Chair", "GOV", model.ChoicePresiding),
	}

	_, err := ClassifyRecords("4", records, "GOV")
	var empty *EmptyVotationError
	if !errors.As(err, &empty) {
		t.Fatalf("Expected EmptyVotationError, got %v", err)
	}
}
