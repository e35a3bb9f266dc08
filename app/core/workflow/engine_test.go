package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

type fakeCaller struct {
	mu sync.Mutex

	generateResp string
	generateErr  error
	critiqueFn   func(idea string) (string, error)
	prioritizeFn func(payload []byte) (string, error)

	prioritizePayload []byte
}

func (f *fakeCaller) Call(_ context.Context, role string, skill string, payload []byte) (gjson.Result, error) {
	switch role {
	case RoleIdea:
		if f.generateErr != nil {
			return gjson.Result{}, f.generateErr
		}
		return gjson.Parse(f.generateResp), nil
	case RoleCritic:
		idea := gjson.GetBytes(payload, "idea").String()
		critique, err := f.critiqueFn(idea)
		if err != nil {
			return gjson.Result{}, err
		}
		body, _ := json.Marshal(map[string]any{"output": map[string]any{"critique": critique}})
		return gjson.ParseBytes(body), nil
	case RolePrioritizer:
		f.mu.Lock()
		f.prioritizePayload = append([]byte(nil), payload...)
		f.mu.Unlock()
		resp, err := f.prioritizeFn(payload)
		if err != nil {
			return gjson.Result{}, err
		}
		return gjson.Parse(resp), nil
	default:
		return gjson.Result{}, fmt.Errorf("unexpected role: %s", role)
	}
}

func echoCritique(idea string) (string, error) {
	return "critique of " + idea, nil
}

func rankInOrder(payload []byte) (string, error) {
	items := gjson.GetBytes(payload, "ideas_with_critiques").Array()
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		out = append(out, map[string]any{
			"idea":      item.Get("idea").String(),
			"rationale": "rationale " + item.Get("idea").String(),
			"rank":      i + 1,
		})
	}
	body, _ := json.Marshal(map[string]any{"output": map[string]any{"prioritized_ideas": out}})
	return string(body), nil
}

func TestRunSortsOutOfOrderRanksAndKeepsRationale(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["compost program","paperless billing","reusable cups"]}}`,
		critiqueFn:   echoCritique,
		prioritizeFn: func([]byte) (string, error) {
			return `{"output":{"prioritized_ideas":[
				{"idea":"compost program","rationale":"high impact, low cost","rank":2},
				{"idea":"paperless billing","rationale":"easiest to roll out","rank":1},
				{"idea":"reusable cups","rationale":"needs buy-in","rank":3}
			]}}`, nil
		},
	}
	engine := NewEngine(caller, 5)

	result, err := engine.Run(context.Background(), "reduce office waste")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Topic != "reduce office waste" {
		t.Fatalf("unexpected topic: %s", result.Topic)
	}
	if result.TotalIdeas != 3 {
		t.Fatalf("total ideas should reflect stage 1 count, got %d", result.TotalIdeas)
	}
	if result.WorkflowID == "" {
		t.Fatal("expected a workflow id")
	}
	if len(result.PrioritizedIdeas) != 3 {
		t.Fatalf("expected 3 prioritized ideas, got %d", len(result.PrioritizedIdeas))
	}
	if result.PrioritizedIdeas[0].Idea != "paperless billing" {
		t.Fatalf("rank 1 should come first, got %q", result.PrioritizedIdeas[0].Idea)
	}
	if result.PrioritizedIdeas[0].Rationale != "easiest to roll out" {
		t.Fatalf("rationale not preserved verbatim: %q", result.PrioritizedIdeas[0].Rationale)
	}
	for i, p := range result.PrioritizedIdeas {
		if p.Rank != i+1 {
			t.Fatalf("ranks must be dense from 1, got %d at position %d", p.Rank, i)
		}
	}
}

func TestRunFailsWhenNoIdeasGenerated(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":[]}}`,
		critiqueFn:   echoCritique,
		prioritizeFn: rankInOrder,
	}
	engine := NewEngine(caller, 5)

	_, err := engine.Run(context.Background(), "anything")
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestRunSurvivesSingleCritiqueFailure(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["a","b","c"]}}`,
		critiqueFn: func(idea string) (string, error) {
			if idea == "b" {
				return "", errors.New("critic unavailable")
			}
			return "critique of " + idea, nil
		},
		prioritizeFn: rankInOrder,
	}
	engine := NewEngine(caller, 5)

	result, err := engine.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("one critique failure must not fail the task: %v", err)
	}
	if result.TotalIdeas != 3 {
		t.Fatalf("total ideas should stay at stage-1 count, got %d", result.TotalIdeas)
	}
	if len(result.PrioritizedIdeas) != 2 {
		t.Fatalf("expected 2 surviving ideas, got %d", len(result.PrioritizedIdeas))
	}

	sent := gjson.GetBytes(caller.prioritizePayload, "ideas_with_critiques").Array()
	if len(sent) != 2 {
		t.Fatalf("prioritizer should receive survivors only, got %d", len(sent))
	}
	if sent[0].Get("idea").String() != "a" || sent[1].Get("idea").String() != "c" {
		t.Fatalf("survivors must keep stage-1 order: %s", caller.prioritizePayload)
	}
}

func TestRunFailsWhenAllCritiquesFail(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["a","b"]}}`,
		critiqueFn: func(string) (string, error) {
			return "", errors.New("critic down")
		},
		prioritizeFn: rankInOrder,
	}
	engine := NewEngine(caller, 5)

	_, err := engine.Run(context.Background(), "topic")
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult when every critique fails, got %v", err)
	}
}

func TestRunRederivesRanksFromOrderOnDuplicates(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["a","b","c"]}}`,
		critiqueFn:   echoCritique,
		prioritizeFn: func([]byte) (string, error) {
			return `{"output":{"prioritized_ideas":[
				{"idea":"c","rationale":"r1","rank":1},
				{"idea":"a","rationale":"r2","rank":1},
				{"idea":"b","rationale":"r3","rank":2}
			]}}`, nil
		},
	}
	engine := NewEngine(caller, 5)

	result, err := engine.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	wantOrder := []string{"c", "a", "b"}
	for i, p := range result.PrioritizedIdeas {
		if p.Idea != wantOrder[i] {
			t.Fatalf("returned order is ground truth on duplicate ranks; position %d got %q", i, p.Idea)
		}
		if p.Rank != i+1 {
			t.Fatalf("ranks must be re-derived dense, got %d at %d", p.Rank, i)
		}
	}
}

func TestRunNormalizesRankGaps(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["a","b"]}}`,
		critiqueFn:   echoCritique,
		prioritizeFn: func([]byte) (string, error) {
			return `{"output":{"prioritized_ideas":[
				{"idea":"b","rationale":"r","rank":30},
				{"idea":"a","rationale":"r","rank":10}
			]}}`, nil
		},
	}
	engine := NewEngine(caller, 5)

	result, err := engine.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.PrioritizedIdeas[0].Idea != "a" || result.PrioritizedIdeas[0].Rank != 1 {
		t.Fatalf("unique ranks should sort then renumber: %+v", result.PrioritizedIdeas)
	}
	if result.PrioritizedIdeas[1].Rank != 2 {
		t.Fatalf("expected dense rank 2, got %d", result.PrioritizedIdeas[1].Rank)
	}
}

func TestRunAcceptsPartialRanking(t *testing.T) {
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["a","b","c","d"]}}`,
		critiqueFn:   echoCritique,
		prioritizeFn: func([]byte) (string, error) {
			return `{"output":{"prioritized_ideas":[
				{"idea":"d","rationale":"top pick","rank":1},
				{"idea":"a","rationale":"runner up","rank":2}
			]}}`, nil
		},
	}
	engine := NewEngine(caller, 5)

	result, err := engine.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("partial ranking is valid output: %v", err)
	}
	if len(result.PrioritizedIdeas) != 2 {
		t.Fatalf("expected the subset as-is, got %d", len(result.PrioritizedIdeas))
	}
	if result.TotalIdeas != 4 {
		t.Fatalf("total ideas should stay 4, got %d", result.TotalIdeas)
	}
}

func TestRunPropagatesStageErrors(t *testing.T) {
	remoteErr := errors.New("retry budget exhausted")
	caller := &fakeCaller{
		generateResp: `{"output":{"ideas":["a"]}}`,
		critiqueFn:   echoCritique,
		prioritizeFn: func([]byte) (string, error) {
			return "", remoteErr
		},
	}
	engine := NewEngine(caller, 5)

	_, err := engine.Run(context.Background(), "topic")
	if !errors.Is(err, remoteErr) {
		t.Fatalf("expected prioritize error to propagate, got %v", err)
	}
}
