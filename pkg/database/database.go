package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS published_reports (
	id TEXT PRIMARY KEY,
	org_name TEXT NOT NULL,
	iteration_name TEXT NOT NULL,
	title TEXT NOT NULL,
	markdown_path TEXT NOT NULL,
	html_path TEXT NOT NULL,
	xlsx_path TEXT,
	content_hash TEXT NOT NULL,
	start_date TEXT,
	end_date TEXT,
	published_at TIMESTAMP NOT NULL,
	UNIQUE(org_name, iteration_name)
);

CREATE TABLE IF NOT EXISTS report_runs (
	id TEXT PRIMARY KEY,
	org_name TEXT NOT NULL,
	iteration_name TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	repositories_processed INTEGER NOT NULL DEFAULT 0,
	commits_processed INTEGER NOT NULL DEFAULT 0
);
`

// Init initializes the SQLite database connection
func Init(path string) error {
	var err error

	// Open SQLite database (creates if doesn't exist)
	DB, err = sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return err
	}

	// Configure connection pool
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(10)
	DB.SetConnMaxLifetime(time.Hour)

	// Test the connection
	if err = DB.Ping(); err != nil {
		return err
	}

	if err = optimizeDatabase(); err != nil {
		return err
	}

	log.Println("Database connected successfully with WAL mode")

	if err = InitSchema(DB); err != nil {
		return err
	}

	return nil
}

// InitSchema creates the report tables if they do not exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// optimizeDatabase configures SQLite for optimal performance
func optimizeDatabase() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=30000",
	}

	for _, pragma := range pragmas {
		if _, err := DB.Exec(pragma); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
