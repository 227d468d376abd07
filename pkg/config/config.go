package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	GitHub    GitHubConfig
	Iteration IterationConfig
	Publish   PublishConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	Token       string
	OrgName     string
	ProjectName string
}

// IterationConfig carries the environment fallback used when the
// project board cannot be queried.
type IterationConfig struct {
	Start string
	End   string
	Name  string
}

type PublishConfig struct {
	ReportsDir     string
	DocsDir        string
	GitPushEnabled bool
	GitRepoPath    string
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout: getEnvAsInt("READ_TIMEOUT", 15),
			// Report generation holds the response open while it walks
			// the organization, so the write timeout is generous
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 900),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./reports.db"),
		},
		GitHub: GitHubConfig{
			Token:       getEnv("GITHUB_TOKEN", ""),
			OrgName:     getEnv("GITHUB_ORG_NAME", ""),
			ProjectName: getEnv("GITHUB_PROJECT_NAME", "Michigan App Team Task Board"),
		},
		Iteration: IterationConfig{
			Start: getEnv("GITHUB_ITERATION_START", ""),
			End:   getEnv("GITHUB_ITERATION_END", ""),
			Name:  getEnv("GITHUB_ITERATION_NAME", "Current Sprint"),
		},
		Publish: PublishConfig{
			ReportsDir:     getEnv("REPORTS_DIR", "./reports"),
			DocsDir:        getEnv("DOCS_DIR", "./docs"),
			GitPushEnabled: getEnvAsBool("GIT_PUSH_ENABLED", false),
			GitRepoPath:    getEnv("GIT_REPO_PATH", "."),
		},
	}

	return nil
}

// Validate checks that the settings required for report generation are present
func (c *Config) Validate() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set")
	}
	if c.GitHub.OrgName == "" {
		return fmt.Errorf("GITHUB_ORG_NAME is not set")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
