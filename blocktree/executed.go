package blocktree

import (
	"fmt"

	"github.com/kengeo/libra"
)

// ExecutedBlock is a block paired with the cached result of speculatively
// executing its payload. It exists only while the block is live in the tree;
// pruning a branch drops the cached results with it.
type ExecutedBlock struct {
	block   *libra.Block
	result  libra.StateComputeResult
	execErr error
}

// NewExecutedBlock pairs a block with its execution result.
func NewExecutedBlock(block *libra.Block, result libra.StateComputeResult) *ExecutedBlock {
	return &ExecutedBlock{block: block, result: result}
}

// Block returns the underlying block.
func (eb *ExecutedBlock) Block() *libra.Block {
	return eb.block
}

// ID returns the block's content hash.
func (eb *ExecutedBlock) ID() libra.Hash {
	return eb.block.Hash()
}

// Round returns the block's round.
func (eb *ExecutedBlock) Round() libra.Round {
	return eb.block.Round()
}

// Result returns the cached state compute result.
func (eb *ExecutedBlock) Result() libra.StateComputeResult {
	return eb.result
}

// ExecError returns the cached execution failure, if any.
// A failed speculative execution is not fatal until the block is about to be
// voted on or committed.
func (eb *ExecutedBlock) ExecError() error {
	return eb.execErr
}

func (eb *ExecutedBlock) String() string {
	return fmt.Sprintf("ExecutedBlock{ %s, state: %.6s }", eb.block, eb.result.StateID)
}
