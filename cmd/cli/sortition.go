package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopy-network/sortition/lib"
	"github.com/canopy-network/sortition/lib/crypto"
	"github.com/canopy-network/sortition/sortition"
	"github.com/canopy-network/sortition/store"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	voteCount, totalVoteCount, period = uint64(0), uint64(0), uint64(0)
)

func init() {
	for _, cmd := range []*cobra.Command{proposeCmd, verifyCmd} {
		cmd.Flags().Uint64Var(&voteCount, "votes", 1, "the vote count of the proposer")
		cmd.Flags().Uint64Var(&totalVoteCount, "total-votes", 1, "the total vote count of the period")
	}
	for _, cmd := range []*cobra.Command{proposeCmd, verifyCmd, difficultyCmd, benchCmd} {
		cmd.Flags().Uint64Var(&period, "period", 0, "the period whose sortition params apply, 0 is latest")
	}
}

var (
	keyCmd = &cobra.Command{
		Use:   "key",
		Short: "print the local vrf public key",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(struct {
				Scheme    string       `json:"scheme"`
				PublicKey lib.HexBytes `json:"publicKey"`
			}{vrfKey.Scheme, vrfKey.PublicKey}, nil)
		},
	}

	difficultyCmd = &cobra.Command{
		Use:   "difficulty <threshold> --period=1",
		Short: "map a vrf threshold onto a vdf difficulty",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			params := loadParams()
			difficulty := sortition.CalculateDifficulty(uint16(argToUint64(args[0])), params)
			writeToConsole(struct {
				Difficulty uint16 `json:"difficulty"`
				Stale      bool   `json:"stale"`
			}{difficulty, sortition.IsStale(difficulty, params)}, nil)
		},
	}

	proposeCmd = &cobra.Command{
		Use:   "propose <level> <period-hash> <vdf-input> --votes=1 --total-votes=1",
		Short: "run the vrf sortition and solve the vdf for a dag block",
		Args:  cobra.MinimumNArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			params := loadParams()
			vrfInput, vdfInput := sortition.MakeVrfInput(argToUint64(args[0]), argToBytes(args[1])), argToBytes(args[2])
			// a kill signal cancels the proof
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			metrics := lib.NewMetricsServer(config.MetricsConfig, l)
			metrics.Start()
			defer metrics.Stop()
			proposer := sortition.NewProposer(vrf, vrfKey.PrivateKey, vrfKey.PublicKey, modulus(), lib.NewVDFService(metrics, l), l)
			s, cancelled, err := proposer.Propose(ctx, params, vrfInput, vdfInput, voteCount, totalVoteCount)
			switch {
			case cancelled:
				l.Warn("Proof cancelled")
				return
			case lib.IsCode(err, lib.SortitionModule, lib.CodeStaleSortition):
				l.Infof("Sortition is stale with threshold %d, not proposing", s.Threshold())
				return
			case err != nil:
				l.Fatal(err.Error())
			}
			writeToConsole(proposal{Sortition: s, Encoded: s.Encode(), ComputationTime: s.ComputationTime.String()}, nil)
		},
	}

	verifyCmd = &cobra.Command{
		Use:   "verify <sortition> <public-key> <level> <period-hash> <vdf-input> --votes=1 --total-votes=1",
		Short: "validate a sortition received from a proposer",
		Args:  cobra.MinimumNArgs(5),
		Run: func(cmd *cobra.Command, args []string) {
			s, err := sortition.Decode(argToBytes(args[0]))
			if err != nil {
				l.Fatal(err.Error())
			}
			pipeline := sortition.NewPipeline(loadParams(), vrf, modulus(), config.ValidationWorkers, nil, l)
			v := pipeline.Run(s, sortition.Candidate{
				PublicKey:      argToBytes(args[1]),
				VrfInput:       sortition.MakeVrfInput(argToUint64(args[2]), argToBytes(args[3])),
				VdfInput:       argToBytes(args[4]),
				VoteCount:      voteCount,
				TotalVoteCount: totalVoteCount,
			})
			writeToConsole(verdict{
				State:      v.State.String(),
				LastPassed: v.LastPassed.String(),
				Expected:   v.Expected,
				Reason:     v.Reason(),
			}, nil)
			if !v.Accepted() {
				os.Exit(1)
			}
		},
	}

	decodeCmd = &cobra.Command{
		Use:   "decode <sortition>",
		Short: "print an encoded sortition as json",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(sortition.Decode(argToBytes(args[0])))
		},
	}

	benchCmd = &cobra.Command{
		Use:   "bench --period=1",
		Short: "measure the vdf proof time of every difficulty in range",
		Run: func(cmd *cobra.Command, args []string) {
			params := loadParams()
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			service, p := lib.NewVDFService(nil, l), message.NewPrinter(language.English)
			for d := uint32(params.VDF.DifficultyMin); d <= uint32(params.VDF.DifficultyMax) && ctx.Err() == nil; d++ {
				puzzle, e := crypto.NewVDFPuzzle(uint32(params.VDF.LambdaBound), uint16(d), crypto.Hash([]byte{byte(d)}), modulus())
				if e != nil {
					l.Fatal(e.Error())
				}
				iterations, e := puzzle.Iterations()
				if e != nil {
					l.Fatal(e.Error())
				}
				outcome, elapsed, err := service.Solve(ctx, puzzle)
				if err != nil {
					l.Fatal(err.Error())
				}
				if outcome.Cancelled() {
					break
				}
				p.Printf("difficulty %d: %d squarings in %s\n", d, iterations, elapsed.Round(time.Millisecond))
			}
		},
	}

	paramsCmd = &cobra.Command{
		Use:   "params",
		Short: "print the sortition params currently in effect",
		Run: func(cmd *cobra.Command, args []string) {
			manager, closeDB := newParamsManager()
			defer closeDB()
			writeToConsole(manager.Current(), nil)
		},
	}

	finalizeCmd = &cobra.Command{
		Use:   "finalize <period> <unique-txs> <total-txs>",
		Short: "record the dag efficiency of a finalized period and adjust the params when due",
		Args:  cobra.MinimumNArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			manager, closeDB := newParamsManager()
			defer closeDB()
			changed, err := manager.OnPeriodFinalized(argToUint64(args[0]), argToUint64(args[1]), argToUint64(args[2]))
			writeToConsole(struct {
				Changed bool             `json:"changed"`
				Current lib.ParamsChange `json:"current"`
			}{changed, manager.Current()}, err)
		},
	}
)

// proposal is the console output of a solved sortition
type proposal struct {
	Sortition       *sortition.VdfSortition `json:"sortition"`
	Encoded         lib.HexBytes            `json:"encoded"`
	ComputationTime string                  `json:"computationTime"`
}

// verdict is the console output of a validation
type verdict struct {
	State      string `json:"state"`
	LastPassed string `json:"lastPassed"`
	Expected   uint16 `json:"expectedDifficulty"`
	Reason     string `json:"reason"`
}

// newParamsManager() opens the database and loads the sortition params history
func newParamsManager() (*sortition.ParamsManager, func()) {
	db, err := store.New(config.StoreConfig, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	manager, err := sortition.NewParamsManager(config.SortitionConfig, db, nil, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	return manager, func() {
		if e := db.Close(); e != nil {
			l.Error(e.Error())
		}
	}
}

// loadParams() returns the params of the --period flag, or the latest params
func loadParams() lib.SortitionParams {
	manager, closeDB := newParamsManager()
	defer closeDB()
	if period == 0 {
		return manager.Params()
	}
	params, err := manager.ParamsForPeriod(period)
	if err != nil {
		l.Fatal(err.Error())
	}
	return params
}

// modulus() returns the configured vdf modulus
func modulus() []byte {
	n, err := config.ModulusBytes()
	if err != nil {
		l.Fatal(err.Error())
	}
	return n
}
