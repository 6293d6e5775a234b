package flume_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flumehq/flume"
)

func forkBranches() []flume.Node {
	return []flume.Node{
		valueNode("double", func(v int) int { return v * 2 }),
		valueNode("square", func(v int) int { return v * v }),
		valueNode("add5", func(v int) int { return v + 5 }),
	}
}

func TestForkBranchIsolation(t *testing.T) {
	fork := flume.NewFork("math", forkBranches()...)

	contexts, err := fork.Run(context.Background(), flume.Context{"value": 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(contexts) != 3 {
		t.Fatalf("got %d contexts, want 3", len(contexts))
	}

	want := []int{20, 100, 15}
	for i, c := range contexts {
		if got := c["value"]; got != want[i] {
			t.Errorf("branch %d value = %v, want %d", i, got, want[i])
		}
	}
}

func TestForkConcurrentMatchesSequential(t *testing.T) {
	fork := flume.NewFork("math", forkBranches()...).WithLimit(2)

	contexts, err := fork.RunConcurrent(context.Background(), flume.Context{"value": 10})
	if err != nil {
		t.Fatalf("RunConcurrent() error = %v", err)
	}

	want := []int{20, 100, 15}
	for i, c := range contexts {
		if got := c["value"]; got != want[i] {
			t.Errorf("branch %d value = %v, want %d", i, got, want[i])
		}
	}
}

func TestForkNoSharedSubstructure(t *testing.T) {
	mutate := flume.NewNode("mutate").
		WithPrep(func(ctx context.Context, state flume.Context) (any, error) {
			state["shared"].(map[string]any)["touched"] = "yes"
			return nil, nil
		})
	observe := flume.NewNode("observe").
		WithPost(func(ctx context.Context, state flume.Context, prep, result any) (flume.Outcome, error) {
			state.Set("saw", state["shared"].(map[string]any)["touched"])
			return flume.OutcomeDefault, nil
		})

	fork := flume.NewFork("isolated", mutate, observe)
	contexts, err := fork.Run(context.Background(), flume.Context{
		"shared": map[string]any{"touched": "no"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := contexts[1]["saw"]; got != "no" {
		t.Errorf("sibling branch observed mutation: saw = %v, want no", got)
	}
}

func TestForkZeroBranches(t *testing.T) {
	fork := flume.NewFork("empty")

	contexts, err := fork.Run(context.Background(), flume.Context{"value": 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("got %d contexts, want 1", len(contexts))
	}
	if got := contexts[0].Outcome(); got != flume.OutcomeForked {
		t.Errorf("outcome = %q, want %q", got, flume.OutcomeForked)
	}
	if got := contexts[0]["value"]; got != 1 {
		t.Errorf("value = %v, want 1", got)
	}
}

func TestForkBranchFailure(t *testing.T) {
	boom := errors.New("boom")
	fork := flume.NewFork("failing",
		valueNode("fine", func(v int) int { return v }),
		flume.NewNode("broken").WithExec(func(ctx context.Context, prep any) (any, error) {
			return nil, boom
		}),
	)

	if _, err := fork.Run(context.Background(), flume.Context{"value": 1}); !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want wrapped boom", err)
	}
	if _, err := fork.RunConcurrent(context.Background(), flume.Context{"value": 1}); !errors.Is(err, boom) {
		t.Errorf("RunConcurrent error = %v, want wrapped boom", err)
	}
}

func TestJoinDefaultMerge(t *testing.T) {
	join := flume.NewJoin("merge")

	merged, err := join.Run(context.Background(), []flume.Context{
		{"a": 1, "common": "first"},
		{"b": 2, "common": "second"},
		{"c": 3},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if merged["a"] != 1 || merged["b"] != 2 || merged["c"] != 3 {
		t.Errorf("merged = %v, want all branch keys present", merged)
	}
	if got := merged["common"]; got != "second" {
		t.Errorf("common = %v, want later context to win", got)
	}
	if got := merged.Outcome(); got != flume.OutcomeJoined {
		t.Errorf("outcome = %q, want %q", got, flume.OutcomeJoined)
	}
}

func TestJoinDeepMergeNestedMaps(t *testing.T) {
	join := flume.NewJoin("merge")

	merged, err := join.Run(context.Background(), []flume.Context{
		{"stats": map[string]any{"hits": 1, "tag": "x"}},
		{"stats": map[string]any{"misses": 2}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var stats map[string]any
	switch v := merged["stats"].(type) {
	case flume.Context:
		stats = v
	case map[string]any:
		stats = v
	default:
		t.Fatalf("stats has unexpected type %T", merged["stats"])
	}
	if stats["hits"] != 1 || stats["misses"] != 2 || stats["tag"] != "x" {
		t.Errorf("stats = %v, want nested maps merged", stats)
	}
}

func TestForkJoinSum(t *testing.T) {
	fork := flume.NewFork("math", forkBranches()...)
	join := flume.NewJoin("sum").WithJoinFunc(func(ctx context.Context, contexts []flume.Context) (flume.Context, error) {
		total := 0
		for _, c := range contexts {
			v, _, err := flume.GetAs[int](c, "value")
			if err != nil {
				return nil, err
			}
			total += v
		}
		return flume.Context{"total": total}, nil
	})

	contexts, err := fork.Run(context.Background(), flume.Context{"value": 10})
	if err != nil {
		t.Fatalf("fork error = %v", err)
	}
	merged, err := join.Run(context.Background(), contexts)
	if err != nil {
		t.Fatalf("join error = %v", err)
	}
	if got := merged["total"]; got != 135 {
		t.Errorf("total = %v, want 135", got)
	}
}
