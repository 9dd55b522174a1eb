package cli

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/blocktree"
	"github.com/kengeo/libra/config"
	"github.com/kengeo/libra/consensus"
	"github.com/kengeo/libra/crypto"
	"github.com/kengeo/libra/eventloop"
	"github.com/kengeo/libra/leaderrotation"
	"github.com/kengeo/libra/logging"
	"github.com/kengeo/libra/modules"
	"github.com/kengeo/libra/network"
	"github.com/kengeo/libra/safety"
	"github.com/kengeo/libra/storage"
	"github.com/kengeo/libra/synchronizer"
	"github.com/kengeo/libra/votingmachine"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a local cluster of validators.",
	Long: `Run a cluster of validators in a single process, connected through an
in-process network, and report how many blocks each validator committed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCluster()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("validators", 4, "number of validators to run")
	runCmd.Flags().String("crypto", crypto.NameECDSA, "signature scheme (ecdsa, bls12)")
	runCmd.Flags().String("leader-rotation", "round-robin", "leader rotation scheme (round-robin, weighted, fixed)")
	runCmd.Flags().Duration("duration", 5*time.Second, "how long to run the cluster")
	runCmd.Flags().Duration("view-timeout", 100*time.Millisecond, "initial round duration")
	runCmd.Flags().Duration("max-timeout", 10*time.Second, "upper bound on the round duration")
	runCmd.Flags().Uint64("duration-samples", 100, "number of round durations to sample when estimating the timeout")
	runCmd.Flags().Float64("timeout-multiplier", 1.3, "how much to multiply the timeout by on failed rounds")
	runCmd.Flags().Int64("shared-seed", 0, "seed for randomized leader rotation")
	runCmd.Flags().Uint("prune-bound", 100, "number of committed blocks kept for lagging validators")
	runCmd.Flags().String("storage-dir", "", "persist consensus state under this directory (empty keeps it in memory)")

	cobra.CheckErr(viper.BindPFlags(runCmd.Flags()))
}

// commandGenerator is a CommandQueue that produces a stream of numbered
// commands, standing in for a client workload.
type commandGenerator struct {
	mut  sync.Mutex
	next uint64
}

func (g *commandGenerator) Get(_ context.Context) (libra.Command, bool) {
	g.mut.Lock()
	defer g.mut.Unlock()
	g.next++
	return libra.Command(fmt.Sprintf("command %d", g.next)), true
}

// countingAcceptor accepts every command and counts the committed ones.
type countingAcceptor struct {
	mut       sync.Mutex
	committed int
}

func (a *countingAcceptor) Accept(_ libra.Command) bool { return true }
func (a *countingAcceptor) Proposed(_ libra.Command)    {}

func (a *countingAcceptor) Committed(_ libra.Command) {
	a.mut.Lock()
	defer a.mut.Unlock()
	a.committed++
}

func (a *countingAcceptor) count() int {
	a.mut.Lock()
	defer a.mut.Unlock()
	return a.committed
}

// chainExecutor derives each block's state id by hashing the block into its
// parent's state, so that diverging histories yield diverging state ids.
type chainExecutor struct{}

func (chainExecutor) Compute(parentStateID libra.Hash, block *libra.Block) (libra.StateComputeResult, error) {
	h := sha256.New()
	h.Write(parentStateID[:])
	blockHash := block.Hash()
	h.Write(blockHash[:])
	var stateID libra.Hash
	h.Sum(stateID[:0])
	return libra.StateComputeResult{StateID: stateID, Version: uint64(block.Round())}, nil
}

func (chainExecutor) Commit(_ []*libra.Block, _ libra.LedgerInfo) error { return nil }

type validator struct {
	id        libra.ID
	eventLoop *eventloop.EventLoop
	sync      *synchronizer.Synchronizer
	acceptor  *countingAcceptor
}

func runCluster() error {
	var (
		n          = viper.GetInt("validators")
		scheme     = viper.GetString("crypto")
		duration   = viper.GetDuration("duration")
		storageDir = viper.GetString("storage-dir")
	)
	if n < 4 {
		return fmt.Errorf("a cluster needs at least 4 validators to tolerate a fault, got %d", n)
	}

	keys := make([]libra.PrivateKey, n)
	vs := config.NewValidatorSet()
	for i := range keys {
		key, err := crypto.GeneratePrivateKey(scheme)
		if err != nil {
			return fmt.Errorf("failed to generate key for validator %d: %w", i+1, err)
		}
		keys[i] = key
		vs.AddValidator(libra.ID(i+1), key.Public(), 1)
	}

	net := network.NewNetwork()
	validators := make([]*validator, n)
	for i := range validators {
		v, err := buildValidator(libra.ID(i+1), keys[i], vs, net, storageDir)
		if err != nil {
			return err
		}
		validators[i] = v
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	for _, v := range validators {
		wg.Add(1)
		go func(v *validator) {
			defer wg.Done()
			v.sync.Start(ctx)
			v.eventLoop.Run(ctx)
		}(v)
	}
	wg.Wait()

	for _, v := range validators {
		fmt.Printf("validator %d committed %d blocks, stopped at round %d\n",
			v.id, v.acceptor.count(), v.sync.Round())
	}
	return nil
}

func buildValidator(id libra.ID, key libra.PrivateKey, vs *config.ValidatorSet, net *network.Network, storageDir string) (*validator, error) {
	v := &validator{
		id:        id,
		eventLoop: eventloop.New(1000),
		acceptor:  &countingAcceptor{},
		sync: synchronizer.New(synchronizer.NewViewDuration(
			viper.GetUint64("duration-samples"),
			float64(viper.GetDuration("view-timeout").Milliseconds()),
			float64(viper.GetDuration("max-timeout").Milliseconds()),
			viper.GetFloat64("timeout-multiplier"),
		)),
	}

	var store modules.Storage
	if storageDir == "" {
		store = storage.NewMemory()
	} else {
		dir := filepath.Join(storageDir, fmt.Sprintf("validator-%d", id))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		var err error
		store, err = storage.NewFileStorage(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage for validator %d: %w", id, err)
		}
	}

	var base modules.CryptoBase
	switch viper.GetString("crypto") {
	case crypto.NameBLS12:
		base = crypto.NewBLS12()
	default:
		base = crypto.NewECDSA()
	}

	rotation, err := leaderRotation(viper.GetString("leader-rotation"))
	if err != nil {
		return nil, err
	}

	builder := modules.NewBuilder(id, key)
	builder.Options().SetSharedRandomSeed(viper.GetInt64("shared-seed"))
	builder.Add(
		v.eventLoop,
		logging.New(fmt.Sprintf("validator%d", id)),
		vs,
		store,
		chainExecutor{},
		crypto.NewCache(base, 2*vs.Len()),
		blocktree.New(viper.GetUint("prune-bound")),
		votingmachine.New(),
		safety.New(),
		consensus.New(),
		rotation,
		net.Endpoint(),
		v.sync,
		&commandGenerator{},
		v.acceptor,
	)
	builder.Build()
	return v, nil
}

func leaderRotation(name string) (modules.LeaderRotation, error) {
	switch name {
	case "round-robin":
		return leaderrotation.NewRoundRobin(), nil
	case "weighted":
		return leaderrotation.NewWeighted(), nil
	case "fixed":
		return leaderrotation.NewFixed(1), nil
	default:
		return nil, fmt.Errorf("unknown leader rotation scheme '%s'", name)
	}
}
