// Copyright (c) 2022-present, DiceDB/SevenDB contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevenDatabase/sevenbench/internal/verify"
	"github.com/spf13/cobra"
)

var (
	verifyServe   bool
	verifyPort    int
	verifyTimeout time.Duration
)

func init() {
	verifyCmd.Flags().BoolVar(&verifyServe, "serve", false, "serve the visualization over http after checking")
	verifyCmd.Flags().IntVar(&verifyPort, "port", 8080, "port for the visualization server")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Second, "give up searching for a linearization after this long")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <history.json> [history2.json ...]",
	Short: "check exported operation histories for linearizability",
	Long: `Check one or more exported operation histories for linearizability.
Multiple files (one per client) are merged into a single history, ordered by
call time, before checking. An HTML visualization of the (partial)
linearization is written next to the history file.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if len(args) > 1 {
			merged, err := verify.Merge(args)
			if err != nil {
				return err
			}
			slog.Info("merged histories", "count", len(args), "path", merged)
			path = merged
		}

		res, err := verify.Check(path, verifyTimeout)
		if err != nil {
			return err
		}

		slog.Info("history checked",
			"path", res.Path,
			"linearizable", res.Linearizable,
			"operations", res.TotalOps,
			"max-partial", res.MaxPartialLen,
			"visualization", res.HTMLPath)

		if verifyServe {
			addr := fmt.Sprintf(":%d", verifyPort)
			slog.Info("serving visualization", "addr", addr)
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				http.ServeFile(w, r, res.HTMLPath)
			})
			if err := http.ListenAndServe(addr, mux); err != nil {
				return err
			}
		}

		if !res.Linearizable {
			return fmt.Errorf("history %s is not linearizable (%d ops, max partial %d)",
				res.Path, res.TotalOps, res.MaxPartialLen)
		}
		return nil
	},
}
