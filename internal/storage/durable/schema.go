package durable

import "database/sql"

// migrate applies pending schema migrations based on PRAGMA user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		if _, err := db.Exec(schemaV1); err != nil {
			return err
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations: if version < 2 { ... }

	return nil
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS projects (
 id TEXT PRIMARY KEY,
 name TEXT NOT NULL,
 folder_path TEXT NOT NULL UNIQUE,
 created_at INTEGER NOT NULL,
 updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
 id TEXT PRIMARY KEY,
 project_id TEXT NOT NULL REFERENCES projects(id),
 file_path TEXT NOT NULL UNIQUE,
 title TEXT,
 ai_tool TEXT NOT NULL,
 message_count INTEGER NOT NULL DEFAULT 0,
 file_size INTEGER NOT NULL DEFAULT 0,
 max_sequence INTEGER NOT NULL DEFAULT 0,
 memories_extracted_at INTEGER,
 skills_extracted_at INTEGER,
 created_at INTEGER NOT NULL,
 indexed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);

CREATE TABLE IF NOT EXISTS session_messages (
 id INTEGER PRIMARY KEY AUTOINCREMENT,
 session_id TEXT NOT NULL REFERENCES sessions(id),
 sequence_num INTEGER NOT NULL,
 role TEXT NOT NULL,
 content_preview TEXT NOT NULL,
 search_content TEXT NOT NULL,
 has_code INTEGER NOT NULL DEFAULT 0,
 has_error INTEGER NOT NULL DEFAULT 0,
 tool_name TEXT,
 byte_offset INTEGER NOT NULL,
 byte_length INTEGER NOT NULL,
 tokens INTEGER NOT NULL DEFAULT 0,
 model TEXT,
 timestamp INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_session_seq
ON session_messages(session_id, sequence_num);

CREATE VIRTUAL TABLE IF NOT EXISTS session_messages_fts USING fts5(
 search_content,
 content='session_messages',
 content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS session_messages_ai AFTER INSERT ON session_messages BEGIN
 INSERT INTO session_messages_fts(rowid, search_content) VALUES (new.id, new.search_content);
END;
CREATE TRIGGER IF NOT EXISTS session_messages_ad AFTER DELETE ON session_messages BEGIN
 INSERT INTO session_messages_fts(session_messages_fts, rowid, search_content) VALUES ('delete', old.id, old.search_content);
END;
CREATE TRIGGER IF NOT EXISTS session_messages_au AFTER UPDATE ON session_messages BEGIN
 INSERT INTO session_messages_fts(session_messages_fts, rowid, search_content) VALUES ('delete', old.id, old.search_content);
 INSERT INTO session_messages_fts(rowid, search_content) VALUES (new.id, new.search_content);
END;

CREATE TABLE IF NOT EXISTS memories (
 id INTEGER PRIMARY KEY AUTOINCREMENT,
 project_id TEXT NOT NULL REFERENCES projects(id),
 session_id TEXT NOT NULL REFERENCES sessions(id),
 memory_type TEXT NOT NULL,
 title TEXT NOT NULL,
 content TEXT NOT NULL,
 context TEXT,
 tags_json TEXT,
 confidence REAL NOT NULL,
 is_validated INTEGER NOT NULL DEFAULT 0,
 state TEXT NOT NULL DEFAULT 'new',
 access_count INTEGER NOT NULL DEFAULT 0,
 extracted_at INTEGER NOT NULL,
 last_access_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id);
CREATE INDEX IF NOT EXISTS idx_memories_state ON memories(project_id, state);

CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
 title, content,
 content='memories',
 content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
 INSERT INTO memories_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;
CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
 INSERT INTO memories_fts(memories_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
END;
CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
 INSERT INTO memories_fts(memories_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
 INSERT INTO memories_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;

CREATE TABLE IF NOT EXISTS memory_embeddings (
 memory_id INTEGER PRIMARY KEY REFERENCES memories(id),
 vector BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS skills (
 id INTEGER PRIMARY KEY AUTOINCREMENT,
 project_id TEXT NOT NULL REFERENCES projects(id),
 session_id TEXT NOT NULL REFERENCES sessions(id),
 name TEXT NOT NULL,
 description TEXT NOT NULL,
 steps_json TEXT,
 confidence REAL NOT NULL,
 extracted_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_skills_project ON skills(project_id);

CREATE VIRTUAL TABLE IF NOT EXISTS skills_fts USING fts5(
 name, description,
 content='skills',
 content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS skills_ai AFTER INSERT ON skills BEGIN
 INSERT INTO skills_fts(rowid, name, description) VALUES (new.id, new.name, new.description);
END;
CREATE TRIGGER IF NOT EXISTS skills_ad AFTER DELETE ON skills BEGIN
 INSERT INTO skills_fts(skills_fts, rowid, name, description) VALUES ('delete', old.id, old.name, old.description);
END;
CREATE TRIGGER IF NOT EXISTS skills_au AFTER UPDATE ON skills BEGIN
 INSERT INTO skills_fts(skills_fts, rowid, name, description) VALUES ('delete', old.id, old.name, old.description);
 INSERT INTO skills_fts(rowid, name, description) VALUES (new.id, new.name, new.description);
END;

CREATE TABLE IF NOT EXISTS skill_embeddings (
 skill_id INTEGER PRIMARY KEY REFERENCES skills(id),
 vector BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS markers (
 id INTEGER PRIMARY KEY AUTOINCREMENT,
 session_id TEXT NOT NULL REFERENCES sessions(id),
 event_index INTEGER NOT NULL,
 marker_type TEXT NOT NULL,
 label TEXT NOT NULL,
 description TEXT
);

CREATE INDEX IF NOT EXISTS idx_markers_session ON markers(session_id);

CREATE TABLE IF NOT EXISTS session_contexts (
 session_id TEXT PRIMARY KEY REFERENCES sessions(id),
 project_id TEXT NOT NULL REFERENCES projects(id),
 active_task TEXT,
 recent_decisions_json TEXT,
 open_questions_json TEXT,
 resume_context TEXT,
 source TEXT,
 created_at INTEGER NOT NULL,
 updated_at INTEGER NOT NULL
);
`
