// Package main provides a performance benchmarking tool for the repostats CLI.
// It measures the offline commands against snapshots that were fetched before,
// running each command multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - repostats binary installed and available in PATH
// - A cache directory holding a fetched snapshot of every benchmarked repository
//
// Usage: go run benchmark/main.go <cache-dir> <owner/repo>...
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (cold run and average of warm runs).
type BenchmarkResult struct {
	Repository string
	Command    string
	ColdTime   string
	WarmTime   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	CacheDir  string
	Timeout   time.Duration
	Runs      int
	TestRepos []string
	Commands  map[string][]string
}

// commandOrder fixes the order commands are run and summarized in.
var commandOrder = []string{"preprocess", "analyze", "timeline", "info"}

func main() {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: %s <cache-dir> <owner/repo>...\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		CacheDir:  os.Args[1],
		Timeout:   5 * time.Minute,
		Runs:      5,
		TestRepos: os.Args[2:],
		Commands: map[string][]string{
			"preprocess": {"fetch", "--offline"},
			"analyze":    {"analyze", "--output", "csv"},
			"timeline":   {"analyze", "--output", "csv", "--user-comments", "D,W,M,Y"},
			"info":       {"info"},
		},
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

// checkPrerequisites verifies that the repostats binary and the snapshots exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("repostats"); err != nil {
		return fmt.Errorf("repostats binary not found in PATH")
	}

	for _, repo := range config.TestRepos {
		snapshot := filepath.Join(config.CacheDir, fmt.Sprintf("dump-github_%s.json", strings.ReplaceAll(repo, "/", "-")))
		if _, err := os.Stat(snapshot); os.IsNotExist(err) {
			return fmt.Errorf("snapshot of %s not found at %s, run repostats fetch first", repo, snapshot)
		}
	}

	return nil
}

// runBenchmarks executes all benchmark commands across configured repositories
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d runs\n", len(config.TestRepos), config.Timeout, config.Runs)

	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		for _, name := range commandOrder {
			results = append(results, runBenchmarkSuite(config, repo, name, config.Commands[name]))
		}
	}

	return results
}

// runBenchmarkSuite runs one command repeatedly and records its cold and warm times
func runBenchmarkSuite(config BenchmarkConfig, repo, name string, args []string) BenchmarkResult {
	fmt.Printf("  Running %s (%d runs)\n", name, config.Runs)

	times := runBenchmark(config, repo, args)

	coldTime, warmAvg := "TIMEOUT", "TIMEOUT"
	if len(times) > 0 {
		coldTime = fmt.Sprintf("%.3fs", times[0])
	}
	if len(times) > 1 {
		var sum float64
		for _, t := range times[1:] {
			sum += t
		}
		warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(times)-1))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", coldTime, warmAvg)

	return BenchmarkResult{
		Repository: repo,
		Command:    name,
		ColdTime:   coldTime,
		WarmTime:   warmAvg,
	}
}

// runBenchmark executes a repostats command multiple times and returns the times of the successful runs
func runBenchmark(config BenchmarkConfig, repo string, args []string) []float64 {
	fullArgs := append([]string{args[0], repo, "--cache-dir", config.CacheDir, "--color", "no"}, args[1:]...)

	var times []float64
	for range config.Runs {
		start := time.Now()

		cmd := exec.Command("repostats", fullArgs...)
		cmd.Dir = config.CacheDir

		done := make(chan error, 1)
		go func() {
			_, err := cmd.CombinedOutput()
			done <- err
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
	return times
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("repostats_benchmark_%s.csv", timestamp))

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

	if err := writer.Write([]string{"repo", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range commandOrder {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-24s: Cold: %s, Warm: %s\n", result.Repository, result.ColdTime, result.WarmTime)
			}
		}
	}
}
