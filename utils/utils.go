package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var sampleIDPattern = regexp.MustCompile(`(SEM\d+-\d+)`)

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	args := make(map[string]string)

	// First, identify the command (analyze/show/list)
	command := ""
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "analyze" || os.Args[i] == "show" || os.Args[i] == "list" {
			command = os.Args[i]
			commandIndex = i
			break
		}
	}

	if command != "" {
		args["command"] = command
	}

	// Process all arguments, skipping the command
	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}

		arg := os.Args[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
				args[flagName] = "true"
			} else {
				args[flagName] = os.Args[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// GetDefaultDatabasePath returns the default path for the catalog file
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "scalegrid.db"
	}
	return filepath.Join(filepath.Dir(exePath), "scalegrid.db")
}

// DeriveSampleID extracts a sample identifier from a folder path. Folder
// names carrying a session pattern like SEM1-123 yield that pattern;
// anything else falls back to the folder's base name.
func DeriveSampleID(folderPath string) string {
	base := filepath.Base(filepath.Clean(folderPath))
	if match := sampleIDPattern.FindString(base); match != "" {
		return match
	}
	return base
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s analyze --folder=PATH [--sample=ID] [--database=PATH] [--collections-dir=PATH] [--margin=VALUE] [--force] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s show --collection=PATH [--debug]\n", os.Args[0])
	fmt.Printf("  %s list --sample=ID [--database=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --folder          : Path to folder containing SEM TIFF images\n")
	fmt.Printf("  --sample          : Sample ID (default: derived from folder name)\n")
	fmt.Printf("  --collection      : Path to a saved collection JSON file\n")
	fmt.Printf("  --database        : Path to catalog file (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --collections-dir : Directory for collection JSON files (default: collections)\n")
	fmt.Printf("  --margin          : Containment tolerance as fraction of parent FOV (0.0-1.0, default: 0.05)\n")
	fmt.Printf("  --force           : Re-extract metadata even when a cache exists\n")
	fmt.Printf("  --config          : Path to YAML config file\n")
	fmt.Printf("  --debug           : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile         : Specify custom log file path (default: scalegrid.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s analyze --folder=/data/SEM1-123 --debug\n", os.Args[0])
	fmt.Printf("  %s show --collection=collections/SEM1-123_Collection_1.json\n", os.Args[0])
	fmt.Printf("  %s list --sample=SEM1-123\n", os.Args[0])
}

// ParseMargin parses and validates the containment margin from string
func ParseMargin(marginStr string) (float64, error) {
	parsed, err := strconv.ParseFloat(marginStr, 64)
	if err != nil || parsed < 0 || parsed >= 1 {
		return 0.05, fmt.Errorf("invalid margin value '%s', using default (0.05)", marginStr)
	}
	return parsed, nil
}
