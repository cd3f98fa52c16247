package analysis

import (
	"errors"
	"testing"

	"github.com/ppiankov/legisla/internal/model"
)

func rec(votation, deputy, block string, choice model.VoteChoice) model.VoteRecord {
	return model.VoteRecord{
		VotationID: votation,
		Deputy:     deputy,
		Block:      block,
		Province:   "BUENOS AIRES",
		Choice:     choice,
	}
}

func TestResolveBlockPreferences_Majority(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "A", "X", model.ChoiceAffirmative),
		rec("1", "B", "X", model.ChoiceAffirmative),
		rec("1", "C", "X", model.ChoiceNegative),
		rec("1", "D", "Y", model.ChoiceNegative),
		rec("1", "E", "Y", model.ChoiceAbsent),
	}

	prefs, err := ResolveBlockPreferences("1", records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	x := prefs["X"]
	if x.Preference != model.ChoiceAffirmative {
		t.Errorf("Expected X preference AFIRMATIVO, got %s", x.Preference)
	}
	if x.Affirmative != 2 || x.Negative != 1 || x.Total != 3 {
		t.Errorf("Unexpected X counts: %+v", x)
	}

	y := prefs["Y"]
	if y.Preference != model.ChoiceNegative {
		t.Errorf("Expected Y preference NEGATIVO, got %s", y.Preference)
	}
	if y.Absent != 1 || y.Total != 2 {
		t.Errorf("Unexpected Y counts: %+v", y)
	}
}

func TestResolveBlockPreferences_TieResolvesNegative(t *testing.T) {
	var records []model.VoteRecord
	for i := 0; i < 5; i++ {
		records = append(records, rec("1", "aff"+string(rune('a'+i)), "X", model.ChoiceAffirmative))
		records = append(records, rec("1", "neg"+string(rune('a'+i)), "X", model.ChoiceNegative))
	}

	prefs, err := ResolveBlockPreferences("1", records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prefs["X"].Preference != model.ChoiceNegative {
		t.Errorf("Expected 5/5 tie to resolve to NEGATIVO, got %s", prefs["X"].Preference)
	}
}

func TestResolveBlockPreferences_AllAbstentionResolvesNegative(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "A", "X", model.ChoiceAbstention),
		rec("1", "B", "X", model.ChoiceAbstention),
	}

	prefs, err := ResolveBlockPreferences("1", records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prefs["X"].Preference != model.ChoiceNegative {
		t.Errorf("Expected NEGATIVO, got %s", prefs["X"].Preference)
	}
	if prefs["X"].Affirmative != 0 || prefs["X"].Negative != 0 {
		t.Errorf("Expected missing categories to default to 0, got %+v", prefs["X"])
	}
}

func TestResolveBlockPreferences_CountsSumToTotal(t *testing.T) {
	choices := []model.VoteChoice{
		model.ChoiceAffirmative, model.ChoiceNegative, model.ChoiceAbstention,
		model.ChoiceNotVoted, model.ChoiceAbsent,
	}
	var records []model.VoteRecord
	for i := 0; i < 37; i++ {
		block := []string{"X", "Y", "Z"}[i%3]
		records = append(records, rec("1", string(rune('A'+i)), block, choices[(i*7)%len(choices)]))
	}

	prefs, err := ResolveBlockPreferences("1", records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	total := 0
	for block, bp := range prefs {
		sum := bp.Affirmative + bp.Negative + bp.Abstention + bp.NotVoted + bp.Absent
		if sum != bp.Total {
			t.Errorf("Block %s: counts sum %d != total %d", block, sum, bp.Total)
		}
		total += bp.Total
	}
	if total != len(records) {
		t.Errorf("Expected %d records across blocks, got %d", len(records), total)
	}
}

func TestResolveBlockPreferences_SkipsPresiding(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "Chair", "X", model.ChoicePresiding),
		rec("1", "A", "X", model.ChoiceNegative),
	}

	prefs, err := ResolveBlockPreferences("1", records)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prefs["X"].Total != 1 {
		t.Errorf("Expected presiding row to be excluded, total=%d", prefs["X"].Total)
	}
}

func TestResolveBlockPreferences_MissingBlock(t *testing.T) {
	records := []model.VoteRecord{
		rec("7", "A", "X", model.ChoiceAffirmative),
		rec("7", "B", "  ", model.ChoiceNegative),
	}

	_, err := ResolveBlockPreferences("7", records)
	var missing *MissingBlockError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingBlockError, got %v", err)
	}
	if missing.Deputy != "B" || missing.VotationID != "7" {
		t.Errorf("Unexpected error fields: %+v", missing)
	}
}

func TestResolveBlockPreferences_Empty(t *testing.T) {
	cases := map[string][]model.VoteRecord{
		"no records":     nil,
		"only presiding": {rec("3", "Chair", "X", model.ChoicePresiding)},
	}
	for name, records := range cases {
		t.Run(name, func(t *testing.T) {
			prefs, err := ResolveBlockPreferences("3", records)
			var empty *EmptyVotationError
			if !errors.As(err, &empty) {
				t.Fatalf("Expected EmptyVotationError, got prefs=%v err=%v", prefs, err)
			}
		})
	}
}

func TestResolveBlockPreferences_UnknownChoice(t *testing.T) {
	records := []model.VoteRecord{
		rec("1", "A", "G", model.ChoiceAffirmative),
		rec("1", "B", "G", model.VoteChoice("BOGUS")),
	}

	prefs, err := ResolveBlockPreferences("1", records)
	var unknown *UnknownChoiceError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownChoiceError, got prefs=%v err=%v", prefs, err)
	}
	if unknown.Deputy != "B" || unknown.Choice != "BOGUS" {
		t.Errorf("Unexpected error fields: %+v", unknown)
	}
	if prefs != nil {
		t.Errorf("Expected no preferences with a corrupt record, got %v", prefs)
	}
}
