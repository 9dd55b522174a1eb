package libra

// PersistentLivenessData is the minimal consensus state that must survive a
// crash to preserve the no-double-vote invariant: the last round this
// validator voted in and the highest certificates it has observed. The block
// certified by HighestQC doubles as the validator's lock.
type PersistentLivenessData struct {
	LastVotedRound Round
	HighestQC      *QuorumCert
	HighestTC      *TimeoutCert
}

// RecoveryData is everything a restarting validator loads from durable
// storage: the persisted liveness data, the last committed root, and the
// speculative blocks and certificates that were saved before the crash.
// Blocks whose ancestry cannot be traced back to the root are discarded by
// the block tree during recovery.
type RecoveryData struct {
	LivenessData PersistentLivenessData
	Root         *Block
	RootQC       QuorumCert
	Blocks       []*Block
	QuorumCerts  []QuorumCert
}
