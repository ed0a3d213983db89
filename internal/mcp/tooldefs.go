package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the fixed tool set: search memories, project
// context, recent memories, session context, save lifeboat. Each maps
// 1:1 onto a storage/knowledge operation.

var searchMemoriesToolDef = mcp.NewTool("search_memories",
	mcp.WithDescription("Hybrid keyword+vector search over a project's memories, fused by Reciprocal Rank Fusion."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to search within.")),
	mcp.WithString("query", mcp.Required(), mcp.Description("Free-text search query.")),
	mcp.WithArray("memory_types", mcp.Description("Optional memory_type filter (decision, fact, preference, context, task).")),
	mcp.WithArray("tags", mcp.Description("Optional tag filter, AND logic.")),
	mcp.WithNumber("limit", mcp.Description("Maximum results to return (default 10).")),
)

var projectContextToolDef = mcp.NewTool("project_context",
	mcp.WithDescription("The project's current high-value knowledge: promoted (state=high) memories and discovered skills."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to summarize.")),
	mcp.WithNumber("memory_limit", mcp.Description("Maximum memories to return (default 20).")),
	mcp.WithNumber("skill_limit", mcp.Description("Maximum skills to return (default 20).")),
)

var recentMemoriesToolDef = mcp.NewTool("recent_memories",
	mcp.WithDescription("The project's most recently extracted non-removed memories, newest first."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to list memories for.")),
	mcp.WithNumber("limit", mcp.Description("Maximum results to return (default 10).")),
)

var sessionContextToolDef = mcp.NewTool("session_context",
	mcp.WithDescription("The lifeboat saved for a session: active task, recent decisions, open questions, resume context."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to read the lifeboat for.")),
)

var saveLifeboatToolDef = mcp.NewTool("save_lifeboat",
	mcp.WithDescription("Upsert a session's lifeboat, saved before context compaction and read back on resume."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session the lifeboat belongs to.")),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the session belongs to.")),
	mcp.WithString("active_task", mcp.Description("One-line description of the task in progress.")),
	mcp.WithArray("recent_decisions", mcp.Description("Decisions made so far in this session.")),
	mcp.WithArray("open_questions", mcp.Description("Unresolved questions to pick back up on resume.")),
	mcp.WithString("resume_context", mcp.Description("Free-text context to restore on resume.")),
	mcp.WithString("source", mcp.Description("What triggered the save, e.g. \"compaction\" or \"manual\".")),
)
