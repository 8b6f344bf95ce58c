package verify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anishathalye/porcupine"
	"github.com/sevenDatabase/sevenbench/internal/history"
)

// Result summarizes one linearizability check.
type Result struct {
	Path          string
	HTMLPath      string
	Linearizable  bool
	TotalOps      int
	MaxPartialLen int
}

// Load reads and parses a history JSON file.
func Load(path string) ([]history.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("verify: read history: %w", err)
	}
	var ops []history.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("verify: parse %s: %w", path, err)
	}
	return ops, nil
}

// Merge combines several per-client histories into one file, ordered by call
// time, and returns its path (merged-history.json next to the first input).
func Merge(paths []string) (string, error) {
	var all []history.Operation
	for _, path := range paths {
		ops, err := Load(path)
		if err != nil {
			return "", err
		}
		all = append(all, ops...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Call < all[j].Call })

	merged := filepath.Join(filepath.Dir(paths[0]), "merged-history.json")
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(merged, data, 0o644); err != nil {
		return "", fmt.Errorf("verify: write merged history: %w", err)
	}
	return merged, nil
}

func toPorcupine(ops []history.Operation) []porcupine.Operation {
	hist := make([]porcupine.Operation, 0, len(ops))
	for _, op := range ops {
		hist = append(hist, porcupine.Operation{
			ClientId: int(op.ClientID),
			Input:    op.Input,
			Call:     op.Call,
			Output:   op.Output,
			Return:   op.ReturnTime,
		})
	}
	return hist
}

// Check runs the linearizability check on one history file and writes an HTML
// visualization next to it. Visualization failures are logged, not fatal.
func Check(path string, timeout time.Duration) (Result, error) {
	ops, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	if len(ops) == 0 {
		// An empty history is trivially linearizable.
		return Result{Path: path, Linearizable: true}, nil
	}

	model := KVModel()
	res, info := porcupine.CheckOperationsVerbose(model, toPorcupine(ops), timeout)

	maxPartial := 0
	for _, partition := range info.PartialLinearizations() {
		for _, lin := range partition {
			if len(lin) > maxPartial {
				maxPartial = len(lin)
			}
		}
	}

	htmlPath := visualize(path, model, info)

	return Result{
		Path:          path,
		HTMLPath:      htmlPath,
		Linearizable:  res == porcupine.Ok,
		TotalOps:      len(ops),
		MaxPartialLen: maxPartial,
	}, nil
}

func visualize(historyPath string, model porcupine.Model, info porcupine.LinearizationInfo) string {
	base := strings.TrimSuffix(filepath.Base(historyPath), filepath.Ext(historyPath))
	htmlPath := filepath.Join(filepath.Dir(historyPath), base+".html")

	f, err := os.Create(htmlPath)
	if err != nil {
		slog.Warn("failed to create visualization file", "path", htmlPath, "err", err)
		return htmlPath
	}
	defer f.Close()

	if err := porcupine.Visualize(model, info, f); err != nil {
		slog.Warn("failed to generate visualization", "path", htmlPath, "err", err)
	}
	return htmlPath
}
