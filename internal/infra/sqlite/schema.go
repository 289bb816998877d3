package sqlite

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		total_score INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1
	);`,
	`CREATE TABLE IF NOT EXISTS challenge_progress (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		challenge_type TEXT NOT NULL,
		total_attempts INTEGER NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0,
		last_attempt_date TEXT,
		PRIMARY KEY (user_id, challenge_type)
	);`,
	`CREATE TABLE IF NOT EXISTS completed_challenges (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		challenge_type TEXT NOT NULL,
		challenge_id TEXT NOT NULL,
		PRIMARY KEY (user_id, challenge_type, challenge_id)
	);`,
	`CREATE TABLE IF NOT EXISTS challenge_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		challenge_id TEXT NOT NULL,
		challenge_type TEXT NOT NULL,
		correct INTEGER NOT NULL,
		user_answer TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		time_spent_ms INTEGER,
		attempted_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_user_time ON challenge_attempts(user_id, attempted_at);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_user_type_time ON challenge_attempts(user_id, challenge_type, attempted_at);`,
}
