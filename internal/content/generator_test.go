package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"postpilot/internal/types"
)

type fakeGateway struct {
	outputs []string
	err     error
	calls   int
}

func (g *fakeGateway) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	out := g.outputs[0]
	if len(g.outputs) > 1 {
		g.outputs = g.outputs[1:]
	}
	return out, nil
}

func TestGeneratorRetriesUntilValid(t *testing.T) {
	gw := &fakeGateway{outputs: []string{
		"This output has way too many sentences. It will never pass. Not a chance.",
		`"A crisp single thought about testing"`,
	}}
	g := NewGenerator(gw, 3)

	got, err := g.Tweet(context.Background(), types.Agent{Name: "Botling", Handle: "botling"})
	if err != nil {
		t.Fatalf("Tweet: %v", err)
	}
	if got != "A crisp single thought about testing" {
		t.Errorf("unexpected output %q", got)
	}
	if gw.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", gw.calls)
	}
}

func TestGeneratorExhaustsAttempts(t *testing.T) {
	gw := &fakeGateway{outputs: []string{strings.Repeat("too long ", 30)}}
	g := NewGenerator(gw, 3)

	_, err := g.Reply(context.Background(), types.Agent{Handle: "botling"}, types.CandidateItem{ID: "c1"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if gw.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", gw.calls)
	}
}

func TestGeneratorGatewayError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("overloaded")}
	g := NewGenerator(gw, 2)

	_, err := g.Tweet(context.Background(), types.Agent{Handle: "botling"})
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
	if gw.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", gw.calls)
	}
}
