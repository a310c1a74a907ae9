package store

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS job_queries (
		id          INTEGER PRIMARY KEY,
		query       TEXT NOT NULL,
		page        INTEGER NOT NULL DEFAULT 1,
		num_pages   INTEGER NOT NULL DEFAULT 1,
		date_posted TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id              TEXT PRIMARY KEY,
		job_title           TEXT,
		employer_name       TEXT,
		employer_logo       TEXT,
		employer_website    TEXT,
		job_publisher       TEXT,
		job_employment_type TEXT,
		job_apply_link      TEXT,
		job_is_remote       INTEGER NOT NULL DEFAULT 0,
		job_posted_at       DATETIME,
		job_location        TEXT,
		job_city            TEXT,
		job_state           TEXT,
		job_country         TEXT,
		job_latitude        REAL,
		job_longitude       REAL,
		job_description     TEXT,
		job_google_link     TEXT,
		job_min_salary      REAL,
		job_max_salary      REAL,
		job_salary_period   TEXT,
		job_onet_soc        TEXT,
		job_onet_job_zone   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS job_benefits (
		job_id  TEXT NOT NULL REFERENCES jobs (job_id),
		benefit TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS job_apply_options (
		job_id     TEXT NOT NULL REFERENCES jobs (job_id),
		publisher  TEXT,
		apply_link TEXT,
		is_direct  INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS job_highlights (
		job_id  TEXT NOT NULL REFERENCES jobs (job_id),
		type    TEXT,
		content TEXT
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS job_queries (
		id          BIGSERIAL PRIMARY KEY,
		query       TEXT NOT NULL,
		page        INTEGER NOT NULL DEFAULT 1,
		num_pages   INTEGER NOT NULL DEFAULT 1,
		date_posted TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		job_id              TEXT PRIMARY KEY,
		job_title           TEXT,
		employer_name       TEXT,
		employer_logo       TEXT,
		employer_website    TEXT,
		job_publisher       TEXT,
		job_employment_type TEXT,
		job_apply_link      TEXT,
		job_is_remote       SMALLINT NOT NULL DEFAULT 0,
		job_posted_at       TIMESTAMPTZ,
		job_location        TEXT,
		job_city            TEXT,
		job_state           TEXT,
		job_country         TEXT,
		job_latitude        DOUBLE PRECISION,
		job_longitude       DOUBLE PRECISION,
		job_description     TEXT,
		job_google_link     TEXT,
		job_min_salary      DOUBLE PRECISION,
		job_max_salary      DOUBLE PRECISION,
		job_salary_period   TEXT,
		job_onet_soc        TEXT,
		job_onet_job_zone   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS job_benefits (
		job_id  TEXT NOT NULL REFERENCES jobs (job_id),
		benefit TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS job_apply_options (
		job_id     TEXT NOT NULL REFERENCES jobs (job_id),
		publisher  TEXT,
		apply_link TEXT,
		is_direct  SMALLINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS job_highlights (
		job_id  TEXT NOT NULL REFERENCES jobs (job_id),
		type    TEXT,
		content TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS job_benefits_job_id_idx ON job_benefits (job_id)`,
	`CREATE INDEX IF NOT EXISTS job_apply_options_job_id_idx ON job_apply_options (job_id)`,
	`CREATE INDEX IF NOT EXISTS job_highlights_job_id_idx ON job_highlights (job_id)`,
}
