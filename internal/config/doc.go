// Package config provides centralized configuration management for casepulse.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CASEPULSE_<SECTION>_<FIELD>:
//
//	CASEPULSE_SERVER_PORT=8080
//	CASEPULSE_DATASET_CSV_PATH=data/cases.csv
//	CASEPULSE_DATASET_WATCH=true
//	CASEPULSE_LOGGING_LEVEL=debug
//	CASEPULSE_REPORT_DEFAULT_SELECTION_SIZE=2
//
// # Configuration File
//
// CASEPULSE_CONFIG_FILE points at a YAML file. Without it, config.yaml and
// configs/config.yaml are tried:
//
//	server:
//	  port: 9090
//	dataset:
//	  path: /srv/data/cases.csv
//	report:
//	  chart_width: 12
//
// Keys missing from the file keep their defaults.
package config
