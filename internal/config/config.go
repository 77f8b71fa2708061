package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the analyzer services.
type Config struct {
	// HTTP server
	Port string

	// Cloud storage for uploaded ledgers and generated artifacts.
	// Empty bucket means local-only operation (CLI workflows).
	GCSBucket string

	// BigQuery audit trail for analysis runs. Empty project disables it.
	BigQueryProject string
	BigQueryDataset string

	// Generation model for the analysis agents.
	ModelName string

	// Crew definition (agent roles and tasks) in YAML.
	CrewConfigPath string

	// Directory for locally written report artifacts.
	OutputDir string

	// Job queue
	JobBufferSize int
	JobWorkers    int
}

// Load reads configuration from the environment, sourcing a .env file first
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finhealth"),
		ModelName:       getEnv("MODEL_NAME", "gemini-2.5-flash"),
		CrewConfigPath:  getEnv("CREW_CONFIG", "config/crew.yaml"),
		OutputDir:       getEnv("OUTPUT_DIR", "./reports"),
		JobBufferSize:   getEnvInt("JOB_BUFFER_SIZE", 100),
		JobWorkers:      getEnvInt("JOB_WORKERS", 2),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.ModelName == "" {
		problems = append(problems, "model name must not be empty")
	}
	if c.JobBufferSize < 1 {
		problems = append(problems, "job buffer size must be at least 1")
	}
	if c.JobWorkers < 1 {
		problems = append(problems, "job worker count must be at least 1")
	}
	if c.BigQueryProject != "" && c.BigQueryDataset == "" {
		problems = append(problems, "BigQuery dataset required when a project is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
