package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

//go:embed benchmarks.yaml
var defaultBenchmarks []byte

type benchmarkFile struct {
	Benchmarks []model.Benchmark `yaml:"benchmarks"`
}

// LoadBenchmarks reads the benchmark catalogue at path, or the embedded
// default catalogue when path is empty.
func LoadBenchmarks(path string) ([]model.Benchmark, error) {
	data := defaultBenchmarks
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read benchmarks file: %w", err)
		}
		data = raw
	}
	return ParseBenchmarks(data)
}

// ParseBenchmarks decodes and validates a YAML benchmark catalogue.
func ParseBenchmarks(data []byte) ([]model.Benchmark, error) {
	var file benchmarkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse benchmarks: %w", err)
	}

	seen := make(map[string]bool, len(file.Benchmarks))
	for _, b := range file.Benchmarks {
		if b.Key == "" {
			return nil, fmt.Errorf("benchmark without key")
		}
		if seen[b.Key] {
			return nil, fmt.Errorf("duplicate benchmark key %q", b.Key)
		}
		seen[b.Key] = true

		switch b.Kind {
		case model.BenchmarkQuote:
			if len(b.Symbols) == 0 {
				return nil, fmt.Errorf("benchmark %q: quote benchmarks need at least one symbol", b.Key)
			}
		case model.BenchmarkMonthlyIndex, model.BenchmarkDailyRate:
			if b.Index == "" {
				return nil, fmt.Errorf("benchmark %q: rate benchmarks need an index", b.Key)
			}
		default:
			return nil, fmt.Errorf("benchmark %q: unknown kind %q", b.Key, b.Kind)
		}
	}
	return file.Benchmarks, nil
}
