package builtin_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/flumehq/flume"
	"github.com/flumehq/flume/builtin"
	"github.com/flumehq/flume/yaml"
)

func buildNode(t *testing.T, builder builtin.Builder, config map[string]any) flume.Node {
	t.Helper()
	node, err := builder.Build(&yaml.NodeDefinition{
		Name:   builder.Metadata().Type + "-test",
		Type:   builder.Metadata().Type,
		Config: config,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return node
}

func TestEcho(t *testing.T) {
	node := buildNode(t, &builtin.EchoBuilder{}, map[string]any{
		"message": "hello",
		"output":  "greeting",
	})

	out, err := node.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["greeting"] != "hello" {
		t.Errorf("greeting = %v, want hello", out["greeting"])
	}
}

func TestDelay(t *testing.T) {
	node := buildNode(t, &builtin.DelayBuilder{}, map[string]any{"duration": "20ms"})

	start := time.Now()
	if _, err := node.Run(context.Background(), flume.NewContext()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 20ms", elapsed)
	}
}

func TestDelayCancelled(t *testing.T) {
	node := buildNode(t, &builtin.DelayBuilder{}, map[string]any{"duration": "1m"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := node.Run(ctx, flume.NewContext()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDelayRejectsBadDuration(t *testing.T) {
	_, err := (&builtin.DelayBuilder{}).Build(&yaml.NodeDefinition{
		Name:   "d",
		Type:   "delay",
		Config: map[string]any{"duration": "soon"},
	})
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestRouterWithRoutes(t *testing.T) {
	node := buildNode(t, &builtin.RouterBuilder{}, map[string]any{
		"path":   "$.review.status",
		"routes": map[string]any{"passed": "publish", "failed": "revise"},
	})

	out, err := node.Run(context.Background(), flume.Context{
		"review": map[string]any{"status": "passed"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Outcome() != flume.Outcome("publish") {
		t.Errorf("outcome = %v, want publish", out.Outcome())
	}
}

func TestRouterValueAsOutcome(t *testing.T) {
	node := buildNode(t, &builtin.RouterBuilder{}, map[string]any{"path": "$.next"})

	out, err := node.Run(context.Background(), flume.Context{"next": "archive"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Outcome() != flume.Outcome("archive") {
		t.Errorf("outcome = %v, want archive", out.Outcome())
	}
}

func TestRouterFallback(t *testing.T) {
	node := buildNode(t, &builtin.RouterBuilder{}, map[string]any{
		"path":     "$.missing",
		"fallback": "dead-letter",
	})

	out, err := node.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Outcome() != flume.Outcome("dead-letter") {
		t.Errorf("outcome = %v, want dead-letter", out.Outcome())
	}
}

func TestTemplate(t *testing.T) {
	node := buildNode(t, &builtin.TemplateBuilder{}, map[string]any{
		"template": "Hello, {{.name}}!",
		"output":   "greeting",
	})

	out, err := node.Run(context.Background(), flume.Context{"name": "Ada"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["greeting"] != "Hello, Ada!" {
		t.Errorf("greeting = %v", out["greeting"])
	}
}

func TestScript(t *testing.T) {
	node := buildNode(t, &builtin.ScriptBuilder{}, map[string]any{
		"source": "return {total = state.price * state.quantity}",
	})

	out, err := node.Run(context.Background(), flume.Context{"price": 3.0, "quantity": 7.0})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["total"] != 21.0 {
		t.Errorf("total = %v, want 21", out["total"])
	}
}

func TestValidateConfigRejectsWrongType(t *testing.T) {
	meta := (&builtin.EchoBuilder{}).Metadata()
	err := builtin.ValidateConfig(&meta, map[string]any{"message": 42})
	if err == nil {
		t.Fatal("expected validation error for numeric message")
	}
}

func TestRegisterAll(t *testing.T) {
	loader := yaml.NewLoader()
	registry := builtin.RegisterAll(loader)

	want := []string{"delay", "echo", "router", "script", "template"}
	got := registry.Types()
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	graph, err := loader.LoadString(`
name: greet
start: hello
nodes:
  - name: hello
    type: echo
    config:
      message: hi
`)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	out, err := graph.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["message"] != "hi" {
		t.Errorf("message = %v, want hi", out["message"])
	}
}

func TestRegisterAllValidatesConfig(t *testing.T) {
	loader := yaml.NewLoader()
	builtin.RegisterAll(loader)

	_, err := loader.LoadString(`
name: bad
start: hello
nodes:
  - name: hello
    type: echo
    config:
      message: 42
`)
	if err == nil || !strings.Contains(err.Error(), "config") {
		t.Fatalf("error = %v, want config validation failure", err)
	}
}
