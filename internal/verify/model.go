// Package verify checks exported operation histories for linearizability
// using porcupine, and renders the checker's visualization.
package verify

import (
	"fmt"

	"github.com/anishathalye/porcupine"
	"github.com/sevenDatabase/sevenbench/internal/history"
)

// regState is the state of a single register. Histories are partitioned by
// key, so each porcupine partition models exactly one register. The struct is
// comparable on purpose: porcupine compares states while searching.
type regState struct {
	present bool
	value   string
}

// KVModel builds the porcupine model for Put/Get/Delete over string keys.
func KVModel() porcupine.Model {
	return porcupine.Model{
		Init: func() interface{} {
			return regState{}
		},
		Step: func(state, input, output interface{}) (bool, interface{}) {
			st := state.(regState)
			in := input.(history.Input)
			out := output.(history.Output)

			switch in.Kind {
			case "Put":
				return true, regState{present: true, value: in.Value}
			case "Delete":
				return true, regState{}
			case "Get":
				if out.Status != "ok" {
					return false, st
				}
				if !st.present {
					return out.Value == nil, st
				}
				return out.Value != nil && *out.Value == st.value, st
			default:
				return false, st
			}
		},
		DescribeOperation: describeOperation,
		DescribeState:     describeState,
		Partition:         partitionByKey,
	}
}

func describeOperation(input, output interface{}) string {
	in := input.(history.Input)
	out := output.(history.Output)

	switch in.Kind {
	case "Put":
		return fmt.Sprintf("Put(%q, %q)", in.Key, in.Value)
	case "Get":
		if out.Value == nil {
			return fmt.Sprintf("Get(%q) -> nil", in.Key)
		}
		return fmt.Sprintf("Get(%q) -> %q", in.Key, *out.Value)
	case "Delete":
		return fmt.Sprintf("Delete(%q)", in.Key)
	default:
		return fmt.Sprintf("%v -> %v", input, output)
	}
}

func describeState(state interface{}) string {
	st := state.(regState)
	if !st.present {
		return "{}"
	}
	return fmt.Sprintf("{%q}", st.value)
}

func partitionByKey(ops []porcupine.Operation) [][]porcupine.Operation {
	byKey := make(map[string][]porcupine.Operation)
	for _, op := range ops {
		key := op.Input.(history.Input).Key
		byKey[key] = append(byKey[key], op)
	}
	parts := make([][]porcupine.Operation, 0, len(byKey))
	for _, p := range byKey {
		parts = append(parts, p)
	}
	return parts
}
