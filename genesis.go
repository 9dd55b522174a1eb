package libra

var genesisBlock = NewBlock(QuorumCert{}, "", 0, 0, 0)

// GetGenesis returns a pointer to the genesis block,
// the starting point for the committed chain.
func GetGenesis() *Block {
	return genesisBlock
}

// GenesisQC returns the implicit certificate for the genesis block. It
// carries no signature and is accepted by all replicas without verification.
func GenesisQC() QuorumCert {
	return NewQuorumCert(nil, 0, 0, genesisBlock.Hash(), LedgerInfo{})
}
