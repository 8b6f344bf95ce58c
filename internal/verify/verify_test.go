package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sevenDatabase/sevenbench/internal/history"
)

func strptr(s string) *string { return &s }

func writeHistory(t *testing.T, dir, name string, ops []history.Operation) string {
	t.Helper()
	data, err := json.MarshalIndent(ops, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCheckLinearizableHistory(t *testing.T) {
	ops := []history.Operation{
		{ClientID: 1, Input: history.Put("k", "1"), Call: 1, Output: history.Output{Status: "ok"}, ReturnTime: 2},
		{ClientID: 1, Input: history.Get("k"), Call: 3, Output: history.Output{Status: "ok", Value: strptr("1")}, ReturnTime: 4},
		{ClientID: 2, Input: history.Delete("k"), Call: 5, Output: history.Output{Status: "ok"}, ReturnTime: 6},
		{ClientID: 2, Input: history.Get("k"), Call: 7, Output: history.Output{Status: "ok"}, ReturnTime: 8},
	}
	path := writeHistory(t, t.TempDir(), "history.json", ops)

	res, err := Check(path, 10*time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Linearizable {
		t.Fatal("expected linearizable history")
	}
	if res.TotalOps != 4 {
		t.Fatalf("expected 4 operations, got %d", res.TotalOps)
	}
}

func TestCheckNonLinearizableHistory(t *testing.T) {
	// The read observes a value nothing ever wrote.
	ops := []history.Operation{
		{ClientID: 1, Input: history.Put("k", "1"), Call: 1, Output: history.Output{Status: "ok"}, ReturnTime: 2},
		{ClientID: 2, Input: history.Get("k"), Call: 3, Output: history.Output{Status: "ok", Value: strptr("2")}, ReturnTime: 4},
	}
	path := writeHistory(t, t.TempDir(), "history.json", ops)

	res, err := Check(path, 10*time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Linearizable {
		t.Fatal("expected non-linearizable history")
	}
}

func TestCheckConcurrentOverlap(t *testing.T) {
	// Overlapping put and get: the read may observe either the old absence or
	// the new value, so observing the new value must be accepted.
	ops := []history.Operation{
		{ClientID: 1, Input: history.Put("k", "1"), Call: 1, Output: history.Output{Status: "ok"}, ReturnTime: 10},
		{ClientID: 2, Input: history.Get("k"), Call: 2, Output: history.Output{Status: "ok", Value: strptr("1")}, ReturnTime: 9},
	}
	path := writeHistory(t, t.TempDir(), "history.json", ops)

	res, err := Check(path, 10*time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Linearizable {
		t.Fatal("overlapping operations wrongly rejected")
	}
}

func TestCheckEmptyHistory(t *testing.T) {
	path := writeHistory(t, t.TempDir(), "history.json", []history.Operation{})
	res, err := Check(path, time.Second)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Linearizable || res.TotalOps != 0 {
		t.Fatalf("unexpected result for empty history: %+v", res)
	}
}

func TestMergeOrdersByCallTime(t *testing.T) {
	dir := t.TempDir()
	a := writeHistory(t, dir, "a.json", []history.Operation{
		{ClientID: 1, Input: history.Put("k", "1"), Call: 5, Output: history.Output{Status: "ok"}, ReturnTime: 6},
	})
	b := writeHistory(t, dir, "b.json", []history.Operation{
		{ClientID: 2, Input: history.Put("k", "2"), Call: 1, Output: history.Output{Status: "ok"}, ReturnTime: 2},
	})

	merged, err := Merge([]string{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	ops, err := Load(merged)
	if err != nil {
		t.Fatalf("load merged: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 merged operations, got %d", len(ops))
	}
	if ops[0].Call > ops[1].Call {
		t.Fatal("merged history not ordered by call time")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
