package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/rulenet/internal/packets"
	"github.com/danielpatrickdp/rulenet/internal/propagate"
	"github.com/danielpatrickdp/rulenet/internal/rulefile"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Run one inference step over the rule file",
	Example: `  rulenet infer --rules rules.toml --input "a=0.6,b=0.4"
  rulenet infer --action --seed 7 --input "a=1"`,
	Args: cobra.NoArgs,
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().String("input", "", "chunk strengths as name=value pairs, comma separated")
	rootCmd.AddCommand(inferCmd)
}

func runInfer(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	stim, err := parseInput(input)
	if err != nil {
		return err
	}

	f, err := rulefile.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	db, err := f.Build()
	if err != nil {
		return err
	}

	n, out, err := buildNetwork(db, buildOptions{
		Action:      cfg.Action,
		Temperature: temperatureFor(cmd, f),
		Seed:        cfg.Seed,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if err := n.SetInput(stimulus, stim); err != nil {
		return err
	}
	outs, err := n.Step(cmd.Context(), out)
	if err != nil {
		return err
	}
	d, ok := packets.Payload(outs[out])
	if !ok {
		return fmt.Errorf("%w: %s produced %T", propagate.ErrType, out, outs[out])
	}

	w := cmd.OutOrStdout()
	d.Each(func(k symbols.Symbol, v float64) {
		fmt.Fprintf(w, "%s\t%.4f\n", k, v)
	})
	return nil
}

// temperatureFor prefers an explicit --temperature, then the rule file's
// own setting, then configuration.
func temperatureFor(cmd *cobra.Command, f *rulefile.File) float64 {
	if !cmd.Flags().Changed("temperature") && f.Temperature > 0 {
		return f.Temperature
	}
	return cfg.Temperature
}
