package libra

// NumFaulty returns the maximum number of faulty validators tolerated
// in a system of n equally weighted validators.
func NumFaulty(n int) int {
	return (n - 1) / 3
}

// QuorumSize returns the minimum number of equally weighted validators
// that must agree on a value for it to be considered a quorum.
func QuorumSize(n int) int {
	return n - NumFaulty(n)
}

// QuorumPower returns the minimum accumulated voting power that certifies
// a value, given the total voting power of the validator set.
// A quorum must hold strictly more than 2/3 of the total power.
func QuorumPower(totalPower uint64) uint64 {
	return totalPower*2/3 + 1
}
