package fallback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flumehq/flume"
	"github.com/flumehq/flume/fallback"
)

// runnerFunc adapts a function to flume.Runner for tests.
type runnerFunc struct {
	name string
	fn   func(ctx context.Context, state flume.Context) (flume.Context, error)
}

func (r runnerFunc) Name() string { return r.name }
func (r runnerFunc) Run(ctx context.Context, state flume.Context) (flume.Context, error) {
	return r.fn(ctx, state)
}

func succeeding(name string) flume.Runner {
	return runnerFunc{name: name, fn: func(ctx context.Context, state flume.Context) (flume.Context, error) {
		out := state.Clone()
		out.Set("served_by", name)
		return out, nil
	}}
}

func failing(name string) flume.Runner {
	return runnerFunc{name: name, fn: func(ctx context.Context, state flume.Context) (flume.Context, error) {
		return nil, errors.New(name + " unavailable")
	}}
}

func TestChainFirstLinkSucceeds(t *testing.T) {
	chain := fallback.NewChain("serve",
		fallback.Link{Name: "primary", Runner: succeeding("primary")},
		fallback.Link{Name: "backup", Runner: succeeding("backup")},
	)

	out, err := chain.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["served_by"] != "primary" {
		t.Errorf("served_by = %v, want primary", out["served_by"])
	}
	if out["fallback_link"] != "primary" {
		t.Errorf("fallback_link = %v, want primary", out["fallback_link"])
	}
}

func TestChainFallsThrough(t *testing.T) {
	chain := fallback.NewChain("serve",
		fallback.Link{Name: "primary", Runner: failing("primary")},
		fallback.Link{Name: "backup", Runner: succeeding("backup")},
	)

	out, err := chain.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["fallback_link"] != "backup" {
		t.Errorf("fallback_link = %v, want backup", out["fallback_link"])
	}

	metrics := chain.Metrics()
	if metrics.LinkStats["primary"].Failures != 1 {
		t.Errorf("primary failures = %d, want 1", metrics.LinkStats["primary"].Failures)
	}
	if metrics.LinkStats["backup"].Successes != 1 {
		t.Errorf("backup successes = %d, want 1", metrics.LinkStats["backup"].Successes)
	}
}

func TestChainAllFail(t *testing.T) {
	chain := fallback.NewChain("serve",
		fallback.Link{Name: "a", Runner: failing("a")},
		fallback.Link{Name: "b", Runner: failing("b")},
	)

	_, err := chain.Run(context.Background(), flume.NewContext())
	if err == nil {
		t.Fatal("expected error when all links fail")
	}
}

func TestChainCondition(t *testing.T) {
	chain := fallback.NewChain("serve",
		fallback.Link{
			Name:   "premium",
			Runner: succeeding("premium"),
			Condition: func(ctx context.Context, state flume.Context) bool {
				tier, _, _ := flume.GetAs[string](state, "tier")
				return tier == "premium"
			},
		},
		fallback.Link{Name: "standard", Runner: succeeding("standard")},
	)

	out, err := chain.Run(context.Background(), flume.Context{"tier": "free"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["served_by"] != "standard" {
		t.Errorf("served_by = %v, want standard", out["served_by"])
	}
}

func TestChainTransform(t *testing.T) {
	input := flume.Context{"query": "original"}
	chain := fallback.NewChain("serve",
		fallback.Link{
			Name:   "rewriter",
			Runner: succeeding("rewriter"),
			Transform: func(state flume.Context) flume.Context {
				state.Set("query", "rewritten")
				return state
			},
		},
	)

	out, err := chain.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["query"] != "rewritten" {
		t.Errorf("query = %v, want rewritten", out["query"])
	}
	if input["query"] != "original" {
		t.Errorf("input mutated: query = %v", input["query"])
	}
}

func TestChainNoEligibleLinks(t *testing.T) {
	chain := fallback.NewChain("serve",
		fallback.Link{
			Name:      "never",
			Runner:    succeeding("never"),
			Condition: func(context.Context, flume.Context) bool { return false },
		},
	)

	if _, err := chain.Run(context.Background(), flume.NewContext()); err == nil {
		t.Fatal("expected error when no links are eligible")
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := fallback.NewCircuitBreaker("api", failing("api"),
		fallback.WithMaxFailures(2),
		fallback.WithResetTimeout(time.Minute),
	)

	for i := 0; i < 2; i++ {
		if _, err := cb.Run(context.Background(), flume.NewContext()); err == nil {
			t.Fatal("expected failure")
		}
	}
	if cb.State() != fallback.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	// Open circuit rejects without running the inner runner.
	_, err := cb.Run(context.Background(), flume.NewContext())
	if err == nil {
		t.Fatal("expected rejection while open")
	}

	metrics := cb.Metrics()
	if metrics.TotalFailures != 2 {
		t.Errorf("total failures = %d, want 2 (rejection is not a run)", metrics.TotalFailures)
	}
	if metrics.CircuitOpens != 1 {
		t.Errorf("circuit opens = %d, want 1", metrics.CircuitOpens)
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	healthy := false
	flaky := runnerFunc{name: "flaky", fn: func(ctx context.Context, state flume.Context) (flume.Context, error) {
		if !healthy {
			return nil, errors.New("down")
		}
		return state.Clone(), nil
	}}

	var transitions []string
	cb := fallback.NewCircuitBreaker("api", flaky,
		fallback.WithMaxFailures(1),
		fallback.WithResetTimeout(10*time.Millisecond),
		fallback.WithHalfOpenRequests(2),
		fallback.WithStateChangeCallback(func(from, to fallback.CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)

	// Trip the circuit.
	if _, err := cb.Run(context.Background(), flume.NewContext()); err == nil {
		t.Fatal("expected failure")
	}
	if cb.State() != fallback.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	healthy = true
	time.Sleep(20 * time.Millisecond)

	// Probe requests succeed and close the circuit.
	for i := 0; i < 2; i++ {
		if _, err := cb.Run(context.Background(), flume.NewContext()); err != nil {
			t.Fatalf("probe %d error = %v", i, err)
		}
	}
	if cb.State() != fallback.StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := fallback.NewCircuitBreaker("api", failing("api"),
		fallback.WithMaxFailures(1),
		fallback.WithResetTimeout(5*time.Millisecond),
	)

	_, _ = cb.Run(context.Background(), flume.NewContext())
	time.Sleep(10 * time.Millisecond)

	// The probe fails, reopening the circuit.
	if _, err := cb.Run(context.Background(), flume.NewContext()); err == nil {
		t.Fatal("expected probe failure")
	}
	if cb.State() != fallback.StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
}

func TestChainWrapsNode(t *testing.T) {
	node := flume.NewNode("compute").
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			state.Set("computed", true)
			return flume.OutcomeDefault, nil
		})

	chain := fallback.NewChain("serve", fallback.Link{Name: "node", Runner: node})
	out, err := chain.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["computed"] != true {
		t.Error("node result lost through chain")
	}
}
