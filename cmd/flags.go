package main

import (
	"flag"
	"fmt"
	"os"
)

type AppFlags struct {
	ConfigFile      string
	IntervalSeconds int
	Verbose         bool
	LogFile         string
}

func ParseFlags() AppFlags {
	configFile := flag.String("config", "", "Path to the YAML/JSON monitoring configuration file (required).")
	configFileAlias := flag.String("c", "", "Alias for -config")

	interval := flag.Int("interval", 0, "Check interval in seconds; overrides the config file setting.")
	intervalAlias := flag.Int("i", 0, "Alias for -interval")

	verbose := flag.Bool("verbose", false, "Enable verbose (debug) logging.")
	verboseAlias := flag.Bool("v", false, "Alias for -verbose")

	logFile := flag.String("log-file", "", "Application log file (separate from the monitoring results log).")

	flag.Parse()

	flags := AppFlags{
		Verbose: *verbose || *verboseAlias,
		LogFile: *logFile,
	}

	if *configFile != "" {
		flags.ConfigFile = *configFile
	} else if *configFileAlias != "" {
		flags.ConfigFile = *configFileAlias
	}

	if *interval != 0 {
		flags.IntervalSeconds = *interval
	} else if *intervalAlias != 0 {
		flags.IntervalSeconds = *intervalAlias
	}

	if flags.ConfigFile == "" {
		fmt.Fprintln(os.Stderr, "[FATAL] --config argument is required")
		flag.Usage()
		os.Exit(2)
	}

	if flags.IntervalSeconds < 0 {
		fmt.Fprintln(os.Stderr, "[FATAL] --interval must be a positive integer")
		os.Exit(2)
	}

	return flags
}
