// Package main measures how long grimoire commands take against real miner
// databases, without cache, on a cold cache and on a warm cache.
//
// Prerequisites:
// - grimoire binary installed and available in PATH
// - Family databases configured through GRIMOIRE_<FAMILY>_DB (and
//   GRIMOIRE_SOURCE_BACKEND when they are not MySQL)
//
// Usage: go run benchmark/main.go [family...]
//
//	family: families to benchmark (default: every family with a database)
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Family      string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Families    []string
	CacheDB     string
}

// commands are run for every family; the family is appended as first argument.
var commands = [][]string{
	{"agg"},
	{"ts", "--period", "week"},
	{"top"},
}

var allFamilies = []string{"scm", "its", "mls", "scr", "irc", "mediawiki", "qaforums"}

func main() {
	families := os.Args[1:]
	if len(families) == 0 {
		for _, f := range allFamilies {
			if os.Getenv("GRIMOIRE_"+strings.ToUpper(f)+"_DB") != "" {
				families = append(families, f)
			}
		}
	}

	config := BenchmarkConfig{
		Timeout:     10 * time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Families:    families,
		CacheDB:     filepath.Join(os.TempDir(), "grimoire_benchmark_cache.db"),
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the grimoire binary exists and some family is configured
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("grimoire"); err != nil {
		return fmt.Errorf("grimoire binary not found in PATH")
	}
	if len(config.Families) == 0 {
		return fmt.Errorf("no family database configured. Set GRIMOIRE_<FAMILY>_DB")
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured families and the full report
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %s, %v timeout, no-cache: %d runs, cache: %d runs\n",
		strings.Join(config.Families, ","), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, family := range config.Families {
		fmt.Printf("Benchmarking %s\n", family)
		for _, c := range commands {
			args := append([]string{c[0], family}, c[1:]...)
			results = append(results, runBenchmarkSuite(config, family, c[0], args))
		}
	}

	outDir, err := os.MkdirTemp("", "grimoire-benchmark-*")
	if err != nil {
		fmt.Printf("Warning: skipping report benchmark: %v\n", err)
		return results
	}
	defer func() { _ = os.RemoveAll(outDir) }()
	results = append(results, runBenchmarkSuite(config, "all", "report", []string{"report", "--output-dir", outDir}))
	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, family, command string, args []string) BenchmarkResult {
	fmt.Printf("Running %s\n", strings.Join(args, " "))

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs, starting from an empty cache
	_ = os.Remove(config.CacheDB)
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Family:      family,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a grimoire command multiple times with the given cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, args []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args = append(slices.Clone(args), "--cache-backend", cacheBackend, "--output", "csv")
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", config.CacheDB)
	}

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("grimoire", args...)
		done := make(chan error, 1)
		go func() {
			done <- cmd.Run()
		}()

		select {
		case err := <-done:
			if err == nil {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("grimoire_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"family", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Family, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"agg", "ts", "top", "report"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-10s: No-cache: %s, Cold: %s, Warm: %s\n", result.Family, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
