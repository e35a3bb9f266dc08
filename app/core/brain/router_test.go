package brain

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	name string
	out  string
	err  error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(context.Context, CompletionRequest) (string, error) {
	return p.out, p.err
}

func TestRouterResolvesDefaultProvider(t *testing.T) {
	r := NewRouter("fast")
	r.Register(&fakeProvider{name: "fast", out: "fast output"})
	r.Register(&fakeProvider{name: "slow", out: "slow output"})

	out, err := r.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if out != "fast output" {
		t.Fatalf("default provider not used: %q", out)
	}
}

func TestRouterResolvesNamedProvider(t *testing.T) {
	r := NewRouter("fast")
	r.Register(&fakeProvider{name: "slow", out: "slow output"})

	p, err := r.Resolve("slow")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if p.Name() != "slow" {
		t.Fatalf("wrong provider resolved: %s", p.Name())
	}
}

func TestRouterRejectsUnknownProvider(t *testing.T) {
	r := NewRouter("missing")
	if _, err := r.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestRouterPropagatesProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	r := NewRouter("fast")
	r.Register(&fakeProvider{name: "fast", err: boom})

	if _, err := r.Complete(context.Background(), CompletionRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
