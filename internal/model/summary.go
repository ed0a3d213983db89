package model

// MemoryFilter narrows list_memories / hybrid search queries.
type MemoryFilter struct {
	ProjectID string
	MemoryTypes []MemoryType
	Tags []string // AND logic
	State *MemoryState
	Limit int
	Offset int
}

// SkillFilter narrows skill listing queries.
type SkillFilter struct {
	ProjectID string
	Limit int
	Offset int
}
