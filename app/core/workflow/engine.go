package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"brainforge/app/core/fanout"
	"brainforge/app/core/remote"
	"brainforge/app/pkg/logger"
)

// ErrEmptyResult marks a stage that produced zero usable items. Downstream
// stages have nothing to operate on, so the run fails rather than completing
// with an empty result.
var ErrEmptyResult = errors.New("stage produced no usable items")

// Caller sends one skill request to a worker role. Satisfied by
// remote.Client; tests substitute fakes.
type Caller interface {
	Call(ctx context.Context, role string, skill string, payload []byte) (gjson.Result, error)
}

// Engine drives the fixed pipeline: generate, critique each idea,
// prioritize the critiqued set.
type Engine struct {
	caller              Caller
	critiqueConcurrency int
}

func NewEngine(caller Caller, critiqueConcurrency int) *Engine {
	if critiqueConcurrency <= 0 {
		critiqueConcurrency = 5
	}
	return &Engine{caller: caller, critiqueConcurrency: critiqueConcurrency}
}

func (e *Engine) Run(ctx context.Context, topic string) (Result, error) {
	workflowID := uuid.NewString()
	ctx = remote.WithMeta(ctx, remote.Meta{WorkflowID: workflowID})
	logger.Info("Workflow %s: starting for topic %q", workflowID, topic)

	ideas, err := e.generate(ctx, topic)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Workflow %s: %d ideas generated", workflowID, len(ideas))

	critiqued, err := e.critique(ctx, workflowID, ideas)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Workflow %s: %d of %d ideas critiqued", workflowID, len(critiqued), len(ideas))

	prioritized, err := e.prioritize(ctx, critiqued)
	if err != nil {
		return Result{}, err
	}
	logger.Info("Workflow %s: completed with %d prioritized ideas", workflowID, len(prioritized))

	return Result{
		Topic:            topic,
		TotalIdeas:       len(ideas),
		PrioritizedIdeas: prioritized,
		WorkflowID:       workflowID,
	}, nil
}

func (e *Engine) generate(ctx context.Context, topic string) ([]string, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "topic", topic)
	if err != nil {
		return nil, err
	}
	resp, err := e.caller.Call(ctx, RoleIdea, SkillGenerate, payload)
	if err != nil {
		return nil, err
	}

	var ideas []string
	for _, item := range resp.Get("output.ideas").Array() {
		if idea := strings.TrimSpace(item.String()); idea != "" {
			ideas = append(ideas, idea)
		}
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("generate stage: %w", ErrEmptyResult)
	}
	return ideas, nil
}

// critique fans out one call per idea. Per-idea failures drop that idea and
// the stage proceeds with the remainder; only an empty survivor set fails it.
func (e *Engine) critique(ctx context.Context, workflowID string, ideas []string) ([]IdeaCritique, error) {
	outcomes := fanout.Map(ctx, ideas, e.critiqueConcurrency, func(ctx context.Context, _ int, idea string) (string, error) {
		payload, err := sjson.SetBytes([]byte(`{}`), "idea", idea)
		if err != nil {
			return "", err
		}
		resp, err := e.caller.Call(ctx, RoleCritic, SkillCritique, payload)
		if err != nil {
			return "", err
		}
		critique := strings.TrimSpace(resp.Get("output.critique").String())
		if critique == "" {
			return "", fmt.Errorf("critique missing from response")
		}
		return critique, nil
	})

	critiqued := make([]IdeaCritique, 0, len(ideas))
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			logger.Error("Workflow %s: dropping idea %d/%d: %v", workflowID, i+1, len(ideas), outcome.Err)
			continue
		}
		critiqued = append(critiqued, IdeaCritique{Idea: ideas[i], Critique: outcome.Value})
	}
	if len(critiqued) == 0 {
		return nil, fmt.Errorf("critique stage: %w", ErrEmptyResult)
	}
	return critiqued, nil
}

func (e *Engine) prioritize(ctx context.Context, critiqued []IdeaCritique) ([]PrioritizedIdea, error) {
	payload, err := json.Marshal(struct {
		IdeasWithCritiques []IdeaCritique `json:"ideas_with_critiques"`
	}{IdeasWithCritiques: critiqued})
	if err != nil {
		return nil, err
	}

	resp, err := e.caller.Call(ctx, RolePrioritizer, SkillPrioritize, payload)
	if err != nil {
		return nil, err
	}

	items := resp.Get("output.prioritized_ideas").Array()
	prioritized := make([]PrioritizedIdea, 0, len(items))
	ranksConsistent := true
	seen := map[int]bool{}
	for _, item := range items {
		idea := strings.TrimSpace(item.Get("idea").String())
		if idea == "" {
			continue
		}
		rank := item.Get("rank")
		entry := PrioritizedIdea{
			Idea:      idea,
			Rationale: item.Get("rationale").String(),
		}
		if rank.Type != gjson.Number {
			ranksConsistent = false
		} else {
			entry.Rank = int(rank.Int())
			if entry.Rank < 1 || seen[entry.Rank] {
				ranksConsistent = false
			}
			seen[entry.Rank] = true
		}
		prioritized = append(prioritized, entry)
	}
	if len(prioritized) == 0 {
		return nil, fmt.Errorf("prioritize stage: %w", ErrEmptyResult)
	}

	// Worker ranks are ordering hints, not trusted values. When they are
	// unique we sort by them; when not, the returned order is ground truth.
	// Either way the stored ranks are re-derived dense from 1.
	if ranksConsistent {
		sort.SliceStable(prioritized, func(i, j int) bool {
			return prioritized[i].Rank < prioritized[j].Rank
		})
	}
	for i := range prioritized {
		prioritized[i].Rank = i + 1
	}
	return prioritized, nil
}
