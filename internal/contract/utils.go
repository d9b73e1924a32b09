package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/fatih/color"
)

// Color variables for console output.
var (
	CoreColor       = color.New(color.FgRed, color.Bold) // most active contributors
	RegularColor    = color.New(color.FgYellow)
	OccasionalColor = color.New(color.FgCyan)
	InfoColor       = color.New(color.FgGreen)
)

// GetBandLabel returns the onion band label, colored for table output when useColors is set.
func GetBandLabel(band schema.OnionBand, useColors bool) string {
	text := string(band)
	if !useColors {
		return text
	}
	switch band {
	case schema.CoreBand:
		return CoreColor.Sprint(text)
	case schema.RegularBand:
		return RegularColor.Sprint(text)
	default:
		return OccasionalColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs a progress message to stderr so stdout stays machine-readable.
func LogInfo(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the query cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".grimoire_cache.db"
	}
	return filepath.Join(homeDir, ".grimoire_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for report history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".grimoire_history.db"
	}
	return filepath.Join(homeDir, ".grimoire_history.db")
}

// TruncateText truncates a name to a maximum width with an ellipsis suffix.
// Widths of 3 or less leave the text untouched.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseIntList parses a comma-separated list of positive integers.
func ParseIntList(s string) ([]int, error) {
	var out []int
	for _, p := range SplitList(s) {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid value '%s', expected a positive integer", p)
		}
		out = append(out, n)
	}
	return out, nil
}
