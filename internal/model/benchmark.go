package model

// BenchmarkKind says how a benchmark series is obtained.
type BenchmarkKind string

const (
	// BenchmarkQuote is sampled from instrument quotes, trying each symbol in order.
	BenchmarkQuote BenchmarkKind = "quote"
	// BenchmarkMonthlyIndex accumulates a monthly percentage series from 100.
	BenchmarkMonthlyIndex BenchmarkKind = "monthly_index"
	// BenchmarkDailyRate accumulates a daily percentage rate series from 100.
	BenchmarkDailyRate BenchmarkKind = "daily_rate"
)

// Benchmark is a read-only external series the portfolio is compared against.
type Benchmark struct {
	Key     string        `yaml:"key" json:"key"`
	Name    string        `yaml:"name" json:"name"`
	Kind    BenchmarkKind `yaml:"kind" json:"kind"`
	Symbols []string      `yaml:"symbols,omitempty" json:"symbols,omitempty"`
	Index   RateIndex     `yaml:"index,omitempty" json:"index,omitempty"`
}
