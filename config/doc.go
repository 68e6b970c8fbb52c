// Package config handles loading and parsing of configuration from YAML or
// JSON files. It defines the monitoring configuration structure including
// the check interval, the result log path, per-site specifications with
// content requirements, and retry policies, and converts the validated
// configuration into the domain site specs.
package config
