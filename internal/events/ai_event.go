package events

// AiFeature names one of the AI-backed features that emit lifecycle events.
type AiFeature string

const (
	FeatureTitle AiFeature = "title"
	FeatureMemory AiFeature = "memory"
	FeatureSkill AiFeature = "skill"
	FeatureMarkers AiFeature = "markers"
	FeatureRanking AiFeature = "ranking"
	FeatureScheduler AiFeature = "scheduler"
)

// AiPhase is the lifecycle phase of one AiEvent.
type AiPhase string

const (
	PhaseStart AiPhase = "start"
	PhaseComplete AiPhase = "complete"
	PhaseError AiPhase = "error"
)

// AiEvent is the sum type of AI task/scheduler lifecycle notifications.
type AiEvent struct {
	Feature AiFeature
	Phase AiPhase
	SessionID string // empty for project- or scheduler-scoped events
	ProjectID string
	TaskName string // scheduler sweep name, empty otherwise
	Error string // set only when Phase == PhaseError

	// RankingComplete is populated when Feature == FeatureRanking && Phase == PhaseComplete.
	RankingComplete *RankingComplete
}

// RankingComplete reports the outcome of one ranking sweep over a project.
type RankingComplete struct {
	ProjectID string
	Promoted int
	Demoted int
	Removed int
}
