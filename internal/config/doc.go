// Package config provides configuration management for the DAQ interface.
// It loads configuration from defaults, an optional YAML file, and DAQ_*
// environment variables, in that order of increasing precedence, and
// validates the result before the application starts.
//
// # Environment Variables
//
// All environment variables follow the DAQ_* naming pattern:
//
//	DAQ_SERVER_PORT=8080
//	DAQ_LOGGING_LEVEL=debug
//	DAQ_UPLOAD_MAX_FILE_SIZE=52428800
//	DAQ_SESSION_TTL=2h
//
// # Configuration File
//
// A YAML file is read from DAQ_CONFIG_FILE, ./config.yaml, or
// ./configs/config.yaml, whichever exists first:
//
//	server:
//	  port: 8080
//	upload:
//	  allowed_extensions: [".csv", ".xlsx"]
package config
