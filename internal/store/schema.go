package store

import "fmt"

// Migrate creates every table the chat core needs if it does not
// already exist. It is safe to call on every process start.
func (s *Store) Migrate() error {
	for _, stmt := range s.ddl() {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// ddl returns the CREATE TABLE statements for the active dialect. IDs
// are TEXT everywhere (UUIDv4 strings minted by the caller) so the
// same DDL text runs on both engines; the two dialects only disagree
// on the autoincrement integer spelling, isolated in autoIncrement().
func (s *Store) ddl() []string {
	ai := s.autoIncrement()

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			is_online INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth_credentials (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_events (
			id ` + ai + `,
			user_id TEXT NOT NULL REFERENCES users(id),
			event_type TEXT NOT NULL,
			occurred_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id ` + ai + `,
			from_user_id TEXT NOT NULL REFERENCES users(id),
			to_user_id TEXT NOT NULL REFERENCES users(id),
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_by TEXT NOT NULL REFERENCES users(id),
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL REFERENCES groups(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			joined_at INTEGER NOT NULL,
			PRIMARY KEY (group_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS group_invites (
			id ` + ai + `,
			group_id TEXT NOT NULL REFERENCES groups(id),
			from_user_id TEXT NOT NULL REFERENCES users(id),
			to_user_id TEXT NOT NULL REFERENCES users(id),
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS encrypted_messages (
			id ` + ai + `,
			chat_id TEXT NOT NULL,
			sender_id TEXT NOT NULL REFERENCES users(id),
			payload TEXT NOT NULL,
			sent_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON encrypted_messages(chat_id, sent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`,
	}
}

func (s *Store) autoIncrement() string {
	if s.Dialect == Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}
