package main

import (
	"fmt"
	"time"

	"github.com/6529-Collections/arctic/internal/arctic"
	"github.com/6529-Collections/arctic/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

type options struct {
	endpoint string
	seconds  uint64
	data     string
	timeout  time.Duration
	seed     uint64
}

func NewRootCmd(cfg config.Config) *cobra.Command {
	opts := options{}

	rootCmd := &cobra.Command{
		Use:               "arctic",
		Short:             "sends randomized json to api endpoints",
		Version:           version,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		Args:              cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				opts.seed = uint64(time.Now().UnixNano())
			}
			return run(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.endpoint, "endpoint", "e", "", "endpoint to POST generated documents to")
	flags.Uint64VarP(&opts.seconds, "time", "t", 0, "how many seconds to keep sending")
	flags.StringVarP(&opts.data, "data", "d", "", "path to the JSON template file")
	flags.DurationVar(&opts.timeout, "timeout", time.Duration(cfg.ArcticRequestTimeoutSeconds)*time.Second, "per-request timeout")
	flags.Uint64Var(&opts.seed, "seed", 0, "random seed, for reproducible runs")
	for _, name := range []string{"endpoint", "time", "data"} {
		if err := rootCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("marking flag %s required: %v", name, err))
		}
	}

	return rootCmd
}

func run(cmd *cobra.Command, opts options) error {
	template, err := arctic.LoadTemplate(opts.data)
	if err != nil {
		return err
	}
	sender, err := arctic.NewSender(opts.endpoint, opts.timeout)
	if err != nil {
		return err
	}

	duration := time.Duration(opts.seconds) * time.Second
	zap.L().Info("starting arctic...",
		zap.Duration("duration", duration),
		zap.String("endpoint", opts.endpoint),
		zap.String("templates", opts.data),
		zap.Uint64("seed", opts.seed),
	)

	runner := arctic.NewRunner(sender, arctic.NewGenerator(opts.seed), template)
	stats := runner.Run(cmd.Context(), duration)

	zap.L().Info("completed data transmission",
		zap.Uint64("seconds", opts.seconds),
		zap.Int("acknowledged", stats.Acknowledged),
		zap.Int("rejected", stats.Rejected),
		zap.Int("errored", stats.Errored),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "completed %d seconds of data transmission (%d sent, %d acknowledged)\n",
		opts.seconds, stats.Total(), stats.Acknowledged)
	return nil
}
