package storage

// dialect holds the statements that differ between Postgres and SQLite.
type dialect struct {
	driver  string
	schema  []string
	lockRow string
	pragmas []string
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS action_plans (
			id BIGSERIAL PRIMARY KEY,
			name_of_designers TEXT NOT NULL DEFAULT '',
			impact_project_name VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			plan_content JSONB NOT NULL DEFAULT '{}'::jsonb,
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			google_doc_id VARCHAR(255),
			google_doc_url TEXT,
			google_doc_created BOOLEAN NOT NULL DEFAULT FALSE,
			last_sync_time BIGINT
		)`,
	},
	lockRow: " FOR UPDATE",
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS action_plans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name_of_designers TEXT NOT NULL DEFAULT '',
			impact_project_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			plan_content TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			google_doc_id TEXT,
			google_doc_url TEXT,
			google_doc_created BOOLEAN NOT NULL DEFAULT 0,
			last_sync_time INTEGER
		)`,
	},
	pragmas: []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	},
}

const (
	createFormQuery = `
		INSERT INTO action_plans (name_of_designers, impact_project_name, description, plan_content, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	selectFormColumns = `
		SELECT id, name_of_designers, impact_project_name, description, plan_content, status,
			created_at, updated_at, google_doc_id, google_doc_url, google_doc_created, last_sync_time
		FROM action_plans
		WHERE id = $1`

	updateFormQuery = `
		UPDATE action_plans
		SET name_of_designers = $1, impact_project_name = $2, description = $3, plan_content = $4, status = $5, updated_at = $6
		WHERE id = $7`

	saveSyncLinkQuery = `
		UPDATE action_plans
		SET google_doc_id = $1, google_doc_url = $2, google_doc_created = $3, last_sync_time = $4
		WHERE id = $5`

	touchSyncLinkQuery = `
		UPDATE action_plans
		SET last_sync_time = $1
		WHERE id = $2`
)
