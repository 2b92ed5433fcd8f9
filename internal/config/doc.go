// Package config loads taskdeck's connection and polling settings.
//
// # Overview
//
// taskdeck needs to know where the task backend lives and how patiently to
// talk to it. This package reads those settings from a TOML file, lets
// environment variables override them, and hands the result to the API
// client as a taskapi.Policy and taskapi.Endpoints.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. Seed unset environment variables from ./.env (if present)
//  2. Read the explicit path, or ~/.config/taskdeck/config.toml
//  3. If the config file doesn't exist, start from defaults
//  4. Apply TASKDECK_* environment overrides
//
// Variables already present in the environment always win over .env.
//
// # Default Values
//
//   - Config file: ~/.config/taskdeck/config.toml
//   - API URL: http://127.0.0.1:8000
//   - Timeout: 10s per attempt
//   - Max retries: 3 attempts
//   - Retry delay: 1s (multiplied by the attempt number)
//   - Poll interval: 5s
//   - Log file: ~/.local/state/taskdeck/taskdeck.log
//
// # TOML Format
//
//	api_url = "https://tasks.example.com"
//	timeout_ms = 10000
//	max_retries = 3
//	retry_delay_ms = 1000
//	poll_seconds = 5
//	log_file = "~/.local/state/taskdeck/taskdeck.log"
//
//	[endpoints]
//	tasks = "/api/tasks"
//
// Every field is optional. Zero or negative numbers keep the default.
//
// # Environment
//
//   - TASKDECK_API_URL
//   - TASKDECK_TIMEOUT_MS
//   - TASKDECK_MAX_RETRIES
//   - TASKDECK_RETRY_DELAY_MS
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Environment numbers that are not integers
//   - A .env file that exists but cannot be parsed
//
// Missing config and .env files are NOT an error.
package config
