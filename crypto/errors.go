package crypto

import "fmt"

var (
	// ErrCombineMultiple is the error used when Combine is called with less than two signatures.
	ErrCombineMultiple = fmt.Errorf("must have at least two signatures")

	// ErrCombineOverlap is the error used when Combine is called with overlapping signatures.
	ErrCombineOverlap = fmt.Errorf("overlapping signatures")

	// ErrVoteMismatch is the error used when votes for different blocks or rounds are aggregated.
	ErrVoteMismatch = fmt.Errorf("votes do not certify the same block")

	// ErrRoundMismatch is the error used when timeouts have different rounds.
	ErrRoundMismatch = fmt.Errorf("timeout rounds do not match")

	// ErrNotAQuorum is the error used when the voting power behind a certificate is below the quorum threshold.
	ErrNotAQuorum = fmt.Errorf("not a quorum")

	// ErrWrongType is the error used when an incompatible type is encountered.
	ErrWrongType = fmt.Errorf("incompatible type")
)
