package analysis

import "fmt"

// MissingBlockError is returned when a vote record has no block name
type MissingBlockError struct {
	VotationID string
	Deputy     string
}

func (e *MissingBlockError) Error() string {
	return fmt.Sprintf("votation %s: deputy %q has no block", e.VotationID, e.Deputy)
}

// UnknownBlockPreferenceError is returned when a block needed for
// classification has no preference in the votation
type UnknownBlockPreferenceError struct {
	VotationID string
	Block      string
}

func (e *UnknownBlockPreferenceError) Error() string {
	return fmt.Sprintf("votation %s: no preference for block %q", e.VotationID, e.Block)
}

// EmptyVotationError is returned when a votation has no ordinary vote records
type EmptyVotationError struct {
	VotationID string
}

func (e *EmptyVotationError) Error() string {
	return fmt.Sprintf("votation %s: no vote records", e.VotationID)
}

// UnknownChoiceError is returned when a stored vote is not a known choice
type UnknownChoiceError struct {
	VotationID string
	Deputy     string
	Choice     string
}

func (e *UnknownChoiceError) Error() string {
	return fmt.Sprintf("votation %s: deputy %q has unknown vote %q", e.VotationID, e.Deputy, e.Choice)
}
