package workflow

// Worker roles and the skills they expose. Role names key the registry;
// skill names travel in the call envelope.
const (
	RoleIdea        = "idea"
	RoleCritic      = "critic"
	RolePrioritizer = "prioritizer"

	SkillGenerate   = "generate_ideas"
	SkillCritique   = "critique_idea"
	SkillPrioritize = "prioritize_ideas"
)

// IdeaCritique pairs one generated idea with its evaluation. Produced by
// the critique stage, consumed verbatim by the prioritize stage.
type IdeaCritique struct {
	Idea     string `json:"idea"`
	Critique string `json:"critique"`
}

// PrioritizedIdea carries a dense 1-based rank; rank 1 is highest priority.
type PrioritizedIdea struct {
	Idea      string `json:"idea"`
	Rationale string `json:"rationale"`
	Rank      int    `json:"rank"`
}

// Result is immutable once built and becomes the task's terminal result.
// WorkflowID scopes one pipeline run for log correlation and is distinct
// from the task id clients poll with.
type Result struct {
	Topic            string            `json:"topic"`
	TotalIdeas       int               `json:"total_ideas"`
	PrioritizedIdeas []PrioritizedIdea `json:"prioritized_ideas"`
	WorkflowID       string            `json:"workflow_id"`
}
