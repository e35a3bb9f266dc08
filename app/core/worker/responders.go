package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"brainforge/app/core/brain"
	"brainforge/app/core/workflow"
)

// IdeaResponder produces candidate ideas for a topic. With a nil provider
// it synthesizes a deterministic set, which keeps the pipeline usable
// without any model credentials.
type IdeaResponder struct {
	provider brain.Provider
}

func NewIdeaResponder(provider brain.Provider) *IdeaResponder {
	return &IdeaResponder{provider: provider}
}

func (r *IdeaResponder) Skill() string { return workflow.SkillGenerate }

func (r *IdeaResponder) Handle(ctx context.Context, input gjson.Result) ([]byte, error) {
	topic := strings.TrimSpace(input.Get("topic").String())
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	var ideas []string
	if r.provider == nil {
		ideas = staticIdeas(topic)
	} else {
		prompt := fmt.Sprintf(`Generate 5-10 creative and innovative ideas for the following topic: %s

For each idea, provide:
- A clear, concise description
- Why it's innovative or valuable

Return the ideas as a numbered list, each idea being one item in the list.`, topic)

		text, err := r.provider.Complete(ctx, brain.CompletionRequest{Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("generate ideas: %w", err)
		}
		ideas = parseIdeaList(text)
	}

	return json.Marshal(struct {
		Ideas []string `json:"ideas"`
		Count int      `json:"count"`
	}{Ideas: ideas, Count: len(ideas)})
}

// parseIdeaList splits a model response into idea strings. Accepts
// numbered lists and bullets, drops lines too short to be an idea,
// and caps the result at 10. Falls back to the whole response when
// nothing parses.
func parseIdeaList(response string) []string {
	var ideas []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "0123456789.-*) "))
		if len(line) > 10 {
			ideas = append(ideas, line)
		}
	}
	if len(ideas) == 0 {
		ideas = []string{response}
	}
	if len(ideas) > 10 {
		ideas = ideas[:10]
	}
	return ideas
}

func staticIdeas(topic string) []string {
	templates := []string{
		"Build a community-driven platform focused on %s",
		"Apply machine learning to automate the hardest parts of %s",
		"Create a low-cost starter kit that makes %s accessible to beginners",
		"Design a marketplace connecting experts and newcomers around %s",
		"Launch an open data initiative to measure progress in %s",
	}
	ideas := make([]string, 0, len(templates))
	for _, t := range templates {
		ideas = append(ideas, fmt.Sprintf(t, topic))
	}
	return ideas
}

// CritiqueResponder evaluates a single idea.
type CritiqueResponder struct {
	provider brain.Provider
}

func NewCritiqueResponder(provider brain.Provider) *CritiqueResponder {
	return &CritiqueResponder{provider: provider}
}

func (r *CritiqueResponder) Skill() string { return workflow.SkillCritique }

func (r *CritiqueResponder) Handle(ctx context.Context, input gjson.Result) ([]byte, error) {
	idea := strings.TrimSpace(input.Get("idea").String())
	if idea == "" {
		return nil, errors.New("idea is required")
	}

	var critique string
	if r.provider == nil {
		critique = staticCritique(idea)
	} else {
		prompt := fmt.Sprintf(`Critique the following idea: %s

Provide a comprehensive critique that includes:
1. Strengths: What are the positive aspects of this idea?
2. Potential Issues: What challenges or problems might arise?
3. Feasibility: How feasible is this idea to implement?
4. Recommendations: Any suggestions for improvement?

Format your response as a clear, structured critique.`, idea)

		text, err := r.provider.Complete(ctx, brain.CompletionRequest{Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("critique idea: %w", err)
		}
		critique = strings.TrimSpace(text)
		if critique == "" {
			return nil, errors.New("critique idea: empty model response")
		}
	}

	return json.Marshal(struct {
		Critique string `json:"critique"`
		Idea     string `json:"idea"`
	}{Critique: critique, Idea: idea})
}

func staticCritique(idea string) string {
	return fmt.Sprintf(
		"Strengths: the idea (%s) addresses a concrete need and is easy to explain. "+
			"Potential issues: adoption depends on sustained engagement and the scope may grow quickly. "+
			"Feasibility: a narrow first version is achievable with a small team. "+
			"Recommendations: validate with a pilot group before investing in scale.",
		idea)
}

// PrioritizeResponder ranks reviewed ideas. The model is asked for
// strict JSON; when it cannot be parsed, or no provider is configured,
// the input order becomes the ranking.
type PrioritizeResponder struct {
	provider brain.Provider
}

func NewPrioritizeResponder(provider brain.Provider) *PrioritizeResponder {
	return &PrioritizeResponder{provider: provider}
}

func (r *PrioritizeResponder) Skill() string { return workflow.SkillPrioritize }

func (r *PrioritizeResponder) Handle(ctx context.Context, input gjson.Result) ([]byte, error) {
	reviewed := input.Get("ideas_with_critiques")
	if !reviewed.IsArray() || len(reviewed.Array()) == 0 {
		return nil, errors.New("ideas_with_critiques is required")
	}

	if r.provider != nil {
		var ideasText strings.Builder
		for i, item := range reviewed.Array() {
			fmt.Fprintf(&ideasText, "\n%d. Idea: %s\n   Critique: %s\n",
				i+1, item.Get("idea").String(), item.Get("critique").String())
		}

		prompt := fmt.Sprintf(`Prioritize the following ideas based on these criteria:
1. Feasibility: How easy is it to implement?
2. Impact: What is the potential impact or value?
3. Novelty: How innovative or unique is it?
4. Cost: What are the resource requirements?

Ideas with critiques:
%s

Rank the ideas from highest to lowest priority and respond with JSON only, in this shape:
{"prioritized_ideas": [{"idea": "...", "rationale": "why it ranks here", "rank": 1}]}`, ideasText.String())

		text, err := r.provider.Complete(ctx, brain.CompletionRequest{Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("prioritize ideas: %w", err)
		}
		if out, ok := parseRankedJSON(text); ok {
			return out, nil
		}
		// Unparseable ranking falls back to input order below.
	}

	ranked := make([]workflow.PrioritizedIdea, 0, len(reviewed.Array()))
	for i, item := range reviewed.Array() {
		ranked = append(ranked, workflow.PrioritizedIdea{
			Idea:      item.Get("idea").String(),
			Rationale: rationaleFromCritique(item.Get("critique").String()),
			Rank:      i + 1,
		})
	}
	return json.Marshal(struct {
		PrioritizedIdeas []workflow.PrioritizedIdea `json:"prioritized_ideas"`
		Count            int                        `json:"count"`
	}{PrioritizedIdeas: ranked, Count: len(ranked)})
}

// parseRankedJSON extracts a prioritized_ideas document from a model
// response, tolerating markdown fences around the JSON.
func parseRankedJSON(text string) ([]byte, bool) {
	text = stripJSONFences(text)
	doc := gjson.Parse(text)
	items := doc.Get("prioritized_ideas")
	if !items.IsArray() || len(items.Array()) == 0 {
		return nil, false
	}
	ranked := make([]workflow.PrioritizedIdea, 0, len(items.Array()))
	for _, item := range items.Array() {
		idea := strings.TrimSpace(item.Get("idea").String())
		if idea == "" {
			return nil, false
		}
		ranked = append(ranked, workflow.PrioritizedIdea{
			Idea:      idea,
			Rationale: item.Get("rationale").String(),
			Rank:      int(item.Get("rank").Int()),
		})
	}
	out, err := json.Marshal(struct {
		PrioritizedIdeas []workflow.PrioritizedIdea `json:"prioritized_ideas"`
		Count            int                        `json:"count"`
	}{PrioritizedIdeas: ranked, Count: len(ranked)})
	if err != nil {
		return nil, false
	}
	return out, true
}

func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

func rationaleFromCritique(critique string) string {
	critique = strings.TrimSpace(critique)
	if critique == "" {
		return "Ranked by review order."
	}
	if idx := strings.IndexAny(critique, ".\n"); idx > 0 {
		critique = critique[:idx]
	}
	return critique + "."
}
