package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/aristath/tradepath/internal/modules/runs"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/aristath/tradepath/internal/modules/universe"
	"github.com/spf13/cobra"
)

// simulateCmd runs one simulation in the foreground
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one simulation and print the result",
	Long: `Run one simulation synchronously. Without --symbols the instruments are
drawn from the catalog for the investment period implied by --years/--months.

Examples:
  tradepath simulate --capital 10000 --years 1 --symbols AAPL,KO,PTON
  tradepath simulate --capital 5000 --years 2 --months 6 --count 6 --seed 42
  tradepath simulate --capital 10000 --years 1 --count 4 --json`,
	RunE: runSimulate,
}

// Command-line flags for simulate
var (
	simCapital      float64
	simYears        int
	simMonths       int
	simSymbols      []string
	simCount        int
	simSeed         int64
	simSellAtOnce   bool
	simClass        string
	simTermination  string
	simContribution float64
	simContribEvery int
	simJSON         bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Float64Var(&simCapital, "capital", 10000, "Starting cash")
	simulateCmd.Flags().IntVar(&simYears, "years", 1, "Run duration in years")
	simulateCmd.Flags().IntVar(&simMonths, "months", 0, "Additional months")
	simulateCmd.Flags().StringSliceVar(&simSymbols, "symbols", nil, "Instruments to trade (default: sampled from the catalog)")
	simulateCmd.Flags().IntVar(&simCount, "count", universe.DefaultCount, "Number of instruments to sample when --symbols is empty")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Sampling seed (0 = time based)")
	simulateCmd.Flags().BoolVar(&simSellAtOnce, "sell-at-once", false, "Allow selling a whole position in one frame")
	simulateCmd.Flags().StringVar(&simClass, "class", "", "Instrument class for horizon scoring (short|long|mixed)")
	simulateCmd.Flags().StringVar(&simTermination, "termination-symbol", "", "Symbol that ends each frame's search (default: last instrument)")
	simulateCmd.Flags().Float64Var(&simContribution, "contribution", 0, "Cash added and rebalanced every --contribution-every frames")
	simulateCmd.Flags().IntVar(&simContribEvery, "contribution-every", 0, "Frames between contributions")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print the result as JSON")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := simulation.Request{
		Class:             universe.Classification(simClass),
		TerminationSymbol: simTermination,
		Symbols:           simSymbols,
		Capital:           simCapital,
		Years:             simYears,
		Months:            simMonths,
		Contribution:      simContribution,
		ContributionEvery: simContribEvery,
	}
	if cmd.Flags().Changed("sell-at-once") {
		req.SellAtOnce = &simSellAtOnce
	}
	if len(req.Symbols) == 0 {
		seed := simSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		period := universe.InvestmentPeriod(simYears, simMonths)
		req.Symbols = a.selector.Select(period, simCount, rand.New(rand.NewSource(seed)))
		a.log.Info().
			Str("period", string(period)).
			Int64("seed", seed).
			Strs("symbols", req.Symbols).
			Msg("Sampled instruments")
	}
	if err := req.Validate(a.cfg.MaxSymbols); err != nil {
		return err
	}

	service := runs.NewService(a.runsStore, a.runner, nil, a.log, a.serviceOptions(ctx)...)

	run, err := a.runsStore.Create(req)
	if err != nil {
		return err
	}
	result, err := service.Execute(ctx, run.ID, req)
	if err != nil {
		return fmt.Errorf("run %s failed: %w", run.ID, err)
	}

	if simJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"run_id": run.ID, "result": result})
	}
	printResult(cmd.OutOrStdout(), run.ID, result)
	return nil
}

func printResult(out io.Writer, runID string, result *simulation.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", runID)
	fmt.Fprintf(w, "Window:\t%s .. %s\n", result.Start.Format("2006-01-02"), result.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Horizon:\t%s\n", result.Horizon)
	fmt.Fprintf(w, "Symbols:\t%s\n", strings.Join(result.Symbols, ", "))
	if len(result.Excluded) > 0 {
		fmt.Fprintf(w, "Excluded:\t%s\n", strings.Join(result.Excluded, ", "))
	}
	fmt.Fprintf(w, "Frames:\t%d (processed %d, skipped %d)\n", result.Frames, result.Processed, result.Skipped)
	fmt.Fprintf(w, "Actions:\t%d (rejected %d)\n", len(result.Actions), result.Rejected)
	fmt.Fprintf(w, "Capital:\t%.2f\n", result.Capital)
	if result.Contributed > 0 {
		fmt.Fprintf(w, "Contributed:\t%.2f\n", result.Contributed)
	}
	fmt.Fprintf(w, "Funds:\t%.2f\n", result.Funds)
	fmt.Fprintf(w, "Final value:\t%.2f (%+.2f%%)\n", result.FinalValue, result.Return()*100)
	_ = w.Flush()

	if len(result.Holdings) == 0 {
		return
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSHARES")
	for _, h := range result.Holdings {
		fmt.Fprintf(w, "%s\t%d\n", h.Symbol, h.Amount)
	}
	_ = w.Flush()
}
