// Package blocktree maintains the speculative tree of uncommitted blocks
// rooted at the last committed block, along with the highest known quorum
// certificates.
package blocktree

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
)

var (
	// ErrInvalidProposal is returned when a block cannot be attached to the
	// live tree, either because its parent is unknown or pruned, or because
	// its round does not increase past the parent's.
	ErrInvalidProposal = errors.New("proposal does not extend the live tree")

	// ErrStaleQC is returned when a certificate is at or below the root round.
	ErrStaleQC = errors.New("quorum certificate is stale")

	// ErrUnknownBlock is returned when a certificate refers to a block that
	// is not in the tree.
	ErrUnknownBlock = errors.New("certified block is not in the tree")
)

// BlockTree stores the blocks between the last committed block and the tips
// of all speculative branches. Every block is speculatively executed when it
// is inserted, and the execution result is cached on the tree node.
//
// A bounded window of recently committed blocks is kept around after pruning
// so that replicas catching up can still fetch them.
type BlockTree struct {
	executor modules.StateComputer
	storage  modules.Storage
	logger   logging.Logger

	mut        sync.Mutex
	blocks     map[libra.Hash]*ExecutedBlock
	children   map[libra.Hash]map[libra.Hash]struct{}
	root       libra.Hash
	highQC     libra.QuorumCert
	highCommit libra.QuorumCert

	pruneBound   uint
	prunedBlocks map[libra.Hash]*ExecutedBlock
	pruneOrder   []libra.Hash
}

// New returns a tree rooted at the genesis block. pruneBound caps how many
// committed blocks are retained after pruning.
func New(pruneBound uint) *BlockTree {
	bt := &BlockTree{
		blocks:       make(map[libra.Hash]*ExecutedBlock),
		children:     make(map[libra.Hash]map[libra.Hash]struct{}),
		pruneBound:   pruneBound,
		prunedBlocks: make(map[libra.Hash]*ExecutedBlock),
	}
	genesis := NewExecutedBlock(libra.GetGenesis(), libra.StateComputeResult{})
	bt.blocks[genesis.ID()] = genesis
	bt.root = genesis.ID()
	bt.highQC = libra.GenesisQC()
	bt.highCommit = libra.GenesisQC()
	return bt
}

// InitModule gives the tree access to the other modules and rebuilds the tree
// from persistent storage if recovery data is available.
func (bt *BlockTree) InitModule(mods *modules.Core) {
	mods.Get(
		&bt.executor,
		&bt.logger,
	)
	if !mods.TryGet(&bt.storage) {
		return
	}
	recovery, err := bt.storage.Load()
	if err != nil {
		bt.logger.Errorf("failed to load recovery data: %v", err)
		return
	}
	if recovery.Root != nil || len(recovery.Blocks) > 0 {
		bt.recover(recovery)
	}
}

// recover rebuilds the tree from persisted blocks. Blocks that no longer
// attach to the recovered root are discarded. A nil root means nothing was
// committed before the crash, so the saved blocks recover onto genesis.
func (bt *BlockTree) recover(data libra.RecoveryData) {
	if data.Root != nil {
		bt.mut.Lock()
		bt.blocks = make(map[libra.Hash]*ExecutedBlock)
		bt.children = make(map[libra.Hash]map[libra.Hash]struct{})
		root := NewExecutedBlock(data.Root, libra.StateComputeResult{
			StateID: data.RootQC.LedgerInfo().StateID(),
		})
		bt.blocks[root.ID()] = root
		bt.root = root.ID()
		bt.highQC = data.RootQC
		bt.highCommit = data.RootQC
		bt.mut.Unlock()
	}

	recovered := 0
	for _, block := range data.Blocks {
		if _, err := bt.Insert(block); err != nil {
			bt.logger.Infof("dropping unrecoverable block %.8s: %v", block.Hash(), err)
			continue
		}
		recovered++
	}
	for _, qc := range data.QuorumCerts {
		if err := bt.InsertQC(qc); err != nil && !errors.Is(err, ErrStaleQC) {
			bt.logger.Infof("dropping unrecoverable QC for round %d: %v", qc.Round(), err)
		}
	}
	bt.logger.Infof("recovered %d blocks on top of root %.8s", recovered, bt.root)
}

// Insert attaches a block to the tree and speculatively executes it against
// its parent's state. Inserting a block that is already present is a no-op
// that returns the existing entry.
//
// The block's embedded certificate is recorded before the block itself, so a
// successful insert also advances the highest known QC when applicable.
func (bt *BlockTree) Insert(block *libra.Block) (*ExecutedBlock, error) {
	bt.mut.Lock()
	defer bt.mut.Unlock()

	if eb, ok := bt.blocks[block.Hash()]; ok {
		return eb, nil
	}

	rootRound := bt.blocks[bt.root].Round()
	if block.Round() <= rootRound {
		return nil, fmt.Errorf("%w: round %d is not past the committed round %d", ErrInvalidProposal, block.Round(), rootRound)
	}

	parent, ok := bt.blocks[block.Parent()]
	if !ok {
		return nil, fmt.Errorf("%w: parent %.8s is unknown or pruned", ErrInvalidProposal, block.Parent())
	}
	if block.Round() <= parent.Round() {
		return nil, fmt.Errorf("%w: round %d does not increase past parent round %d", ErrInvalidProposal, block.Round(), parent.Round())
	}

	if err := bt.insertQC(block.QuorumCert()); err != nil && !errors.Is(err, ErrStaleQC) {
		return nil, err
	}

	eb := NewExecutedBlock(block, libra.StateComputeResult{})
	result, err := bt.executor.Compute(parent.Result().StateID, block)
	if err != nil {
		// The block stays in the tree so that the certified chain remains
		// connected, but the failure is cached and surfaced when a vote or
		// commit touches this block.
		eb.execErr = err
		bt.logger.Infof("speculative execution of block %.8s failed: %v", block.Hash(), err)
	} else {
		eb.result = result
	}

	if bt.storage != nil {
		if err := bt.storage.SaveTree([]*libra.Block{block}, nil); err != nil {
			return nil, fmt.Errorf("failed to persist block: %w", err)
		}
	}

	bt.blocks[block.Hash()] = eb
	bt.addChild(block.Parent(), block.Hash())
	bt.logger.Debugf("inserted block %.8s at round %d", block.Hash(), block.Round())
	return eb, nil
}

// InsertQC records a certificate for a block already in the tree, advancing
// the highest QC and highest commit certificate when the new certificate
// outranks them.
func (bt *BlockTree) InsertQC(qc libra.QuorumCert) error {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return bt.insertQC(qc)
}

func (bt *BlockTree) insertQC(qc libra.QuorumCert) error {
	rootRound := bt.blocks[bt.root].Round()
	if qc.Round() <= rootRound {
		return ErrStaleQC
	}
	if _, ok := bt.blocks[qc.BlockID()]; !ok {
		return fmt.Errorf("%w: block %.8s certified at round %d", ErrUnknownBlock, qc.BlockID(), qc.Round())
	}
	if bt.storage != nil {
		if err := bt.storage.SaveTree(nil, []libra.QuorumCert{qc}); err != nil {
			return fmt.Errorf("failed to persist QC: %w", err)
		}
	}
	if qc.Round() > bt.highQC.Round() {
		bt.highQC = qc
		bt.logger.Debugf("updated highest QC to round %d", qc.Round())
	}
	if qc.LedgerInfo().BlockID() != (libra.Hash{}) && qc.LedgerInfo().Round() > bt.highCommit.LedgerInfo().Round() {
		bt.highCommit = qc
	}
	return nil
}

// Commit makes blockID the new root, returning the newly committed blocks in
// oldest-first order. Branches that do not descend from the new root are
// discarded, and the committed ancestors are moved into the bounded window of
// pruned blocks.
func (bt *BlockTree) Commit(blockID libra.Hash) ([]*ExecutedBlock, error) {
	bt.mut.Lock()
	defer bt.mut.Unlock()

	path := bt.pathFromRoot(blockID)
	if path == nil {
		return nil, fmt.Errorf("%w: cannot commit %.8s", ErrUnknownBlock, blockID)
	}

	keep := bt.descendants(blockID)
	keep[blockID] = struct{}{}

	onPath := make(map[libra.Hash]struct{}, len(path))
	for _, eb := range path {
		onPath[eb.ID()] = struct{}{}
	}

	// Retire abandoned branches before the committed ancestors, and the
	// ancestors oldest first, so the bounded window favors the most recently
	// committed blocks.
	var dropped []libra.Hash
	for id, eb := range bt.blocks {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, ok := onPath[id]; ok {
			continue
		}
		delete(bt.blocks, id)
		delete(bt.children, id)
		bt.retire(eb)
		dropped = append(dropped, id)
	}
	for _, eb := range path {
		if _, ok := keep[eb.ID()]; ok {
			continue
		}
		delete(bt.blocks, eb.ID())
		delete(bt.children, eb.ID())
		bt.retire(eb)
		dropped = append(dropped, eb.ID())
	}
	for _, links := range bt.children {
		for id := range links {
			if _, ok := keep[id]; !ok {
				delete(links, id)
			}
		}
	}
	bt.root = blockID

	if bt.storage != nil {
		if err := bt.storage.PruneTree(dropped); err != nil {
			bt.logger.Errorf("failed to prune persisted blocks: %v", err)
		}
	}

	bt.logger.Debugf("committed %d blocks, new root %.8s", len(path), blockID)
	return path, nil
}

// retire moves a block into the pruned window, evicting the oldest entries
// beyond the bound.
func (bt *BlockTree) retire(eb *ExecutedBlock) {
	bt.prunedBlocks[eb.ID()] = eb
	bt.pruneOrder = append(bt.pruneOrder, eb.ID())
	for uint(len(bt.pruneOrder)) > bt.pruneBound {
		delete(bt.prunedBlocks, bt.pruneOrder[0])
		bt.pruneOrder = bt.pruneOrder[1:]
	}
}

// PathFromRoot returns the blocks between the root (exclusive) and blockID
// (inclusive) in oldest-first order, or nil if blockID does not descend from
// the root.
func (bt *BlockTree) PathFromRoot(blockID libra.Hash) []*ExecutedBlock {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return bt.pathFromRoot(blockID)
}

func (bt *BlockTree) pathFromRoot(blockID libra.Hash) []*ExecutedBlock {
	var path []*ExecutedBlock
	for id := blockID; id != bt.root; {
		eb, ok := bt.blocks[id]
		if !ok {
			return nil
		}
		path = append(path, eb)
		id = eb.Block().Parent()
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Extends reports whether block descends from the block identified by
// ancestor. A block extends itself.
func (bt *BlockTree) Extends(block *libra.Block, ancestor libra.Hash) bool {
	bt.mut.Lock()
	defer bt.mut.Unlock()

	for current := block; current != nil; {
		if current.Hash() == ancestor {
			return true
		}
		if current.Hash() == bt.root {
			return false
		}
		eb, ok := bt.blocks[current.Parent()]
		if !ok {
			return false
		}
		current = eb.Block()
	}
	return false
}

// Get returns the block identified by id from the live tree or, failing that,
// from the pruned window of recently committed blocks.
func (bt *BlockTree) Get(id libra.Hash) (*ExecutedBlock, bool) {
	bt.mut.Lock()
	defer bt.mut.Unlock()

	if eb, ok := bt.blocks[id]; ok {
		return eb, true
	}
	eb, ok := bt.prunedBlocks[id]
	return eb, ok
}

// Root returns the last committed block.
func (bt *BlockTree) Root() *ExecutedBlock {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return bt.blocks[bt.root]
}

// HighQC returns the highest known quorum certificate.
func (bt *BlockTree) HighQC() libra.QuorumCert {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return bt.highQC
}

// HighCommitCert returns the certificate carrying the highest committed
// ledger info.
func (bt *BlockTree) HighCommitCert() libra.QuorumCert {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return bt.highCommit
}

// Len returns the number of live blocks, including the root.
func (bt *BlockTree) Len() int {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return len(bt.blocks)
}

// ChildLinks returns the number of parent-child edges in the live tree.
func (bt *BlockTree) ChildLinks() int {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	n := 0
	for _, links := range bt.children {
		n += len(links)
	}
	return n
}

// PrunedLen returns the number of committed blocks retained for sync requests.
func (bt *BlockTree) PrunedLen() int {
	bt.mut.Lock()
	defer bt.mut.Unlock()
	return len(bt.prunedBlocks)
}

func (bt *BlockTree) addChild(parent, child libra.Hash) {
	links, ok := bt.children[parent]
	if !ok {
		links = make(map[libra.Hash]struct{})
		bt.children[parent] = links
	}
	links[child] = struct{}{}
}

func (bt *BlockTree) descendants(id libra.Hash) map[libra.Hash]struct{} {
	found := make(map[libra.Hash]struct{})
	queue := []libra.Hash{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for child := range bt.children[next] {
			if _, ok := found[child]; ok {
				continue
			}
			found[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return found
}

var _ modules.Module = (*BlockTree)(nil)
