// Copyright (c) 2022-present, DiceDB/SevenDB contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strconv"
	"syscall"

	"github.com/sevenDatabase/sevenbench/config"
	"github.com/sevenDatabase/sevenbench/internal/client"
	"github.com/sevenDatabase/sevenbench/internal/clock"
	"github.com/sevenDatabase/sevenbench/internal/logger"
	"github.com/sevenDatabase/sevenbench/internal/observability"
	"github.com/sevenDatabase/sevenbench/internal/transport"
	"github.com/sevenDatabase/sevenbench/internal/workload"
	"github.com/spf13/cobra"
)

func init() {
	flags := rootCmd.PersistentFlags()

	// Register one flag per config field, driven by the struct tags.
	c := config.BenchConfig{}
	_type := reflect.TypeOf(c)
	for i := 0; i < _type.NumField(); i++ {
		field := _type.Field(i)
		yamlTag := field.Tag.Get("mapstructure")
		descriptionTag := field.Tag.Get("description")
		defaultTag := field.Tag.Get("default")

		switch field.Type.Kind() {
		case reflect.String:
			flags.String(yamlTag, defaultTag, descriptionTag)
		case reflect.Int:
			val, _ := strconv.Atoi(defaultTag)
			flags.Int(yamlTag, val, descriptionTag)
		case reflect.Int64:
			val, _ := strconv.ParseInt(defaultTag, 10, 64)
			flags.Int64(yamlTag, val, descriptionTag)
		case reflect.Bool:
			val, _ := strconv.ParseBool(defaultTag)
			flags.Bool(yamlTag, val, descriptionTag)
		case reflect.Float64:
			val, _ := strconv.ParseFloat(defaultTag, 64)
			flags.Float64(yamlTag, val, descriptionTag)
		case reflect.Slice:
			if field.Type.Elem().Kind() == reflect.String {
				var defVal []string
				if defaultTag != "" {
					defVal = []string{defaultTag}
				}
				flags.StringSlice(yamlTag, defVal, descriptionTag)
			}
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "sevenbench",
	Short: "sevenbench - a benchmarking and correctness-history client for replicated key-value services",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load(cmd.Flags())
		slog.SetDefault(logger.New())
		return runBench()
	},
	SilenceUsage: true,
}

func printConfiguration(cfg *config.BenchConfig, phases []workload.Phase) {
	slog.Info("starting sevenbench", slog.String("version", config.SevenBenchVersion))
	slog.Info("running against", slog.String("host", cfg.Host), slog.Int("port", cfg.Port))
	slog.Info("running with", slog.Int("client-id", cfg.ClientID), slog.Int("phases", len(phases)), slog.Int("keyspace", cfg.Keyspace))
	slog.Info("running with", slog.Bool("history", cfg.History))
}

func runBench() error {
	cfg := config.Config

	phases, err := workload.ParsePhases(cfg.Phases)
	if err != nil {
		return err
	}
	printConfiguration(cfg, phases)

	// Validates the clock parameters up front: a non-positive sync frequency
	// panics here, before the run handshake.
	sim := clock.New(cfg.ClockDriftRate, cfg.ClockUncertainty, cfg.ClockSyncFreq)
	slog.Info("clock simulator configured",
		slog.Float64("drift-us-per-s", cfg.ClockDriftRate),
		slog.Float64("uncertainty-us", sim.Uncertainty()),
		slog.Float64("sync-freq-hz", cfg.ClockSyncFreq))

	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		observability.SetupMetrics(mux)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Warn("metrics endpoint stopped", slog.Any("error", err))
			}
		}()
	}

	tr, err := transport.Dial(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return fmt.Errorf("connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	historyPath := ""
	if cfg.History {
		historyPath = cfg.HistoryFile
	}
	c := client.New(client.Config{
		ClientID:    uint64(cfg.ClientID),
		Phases:      phases,
		Keyspace:    cfg.Keyspace,
		Seed:        cfg.Seed,
		CSVPath:     cfg.CSVFile,
		SummaryPath: cfg.SummaryFile,
		HistoryPath: historyPath,
	}, tr)
	return c.Run(ctx)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
