package bimquery

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	classes       []string
	progressEvery int
	maxModelBytes int64
	schemaCap     int

	openAIKey     string
	openAIModel   string
	openAIBaseURL string
	planner       Planner

	progress   func(string)
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithClasses replaces the default IFC class allow-list.
func WithClasses(classes ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.classes = classes
	})
}

// WithOpenAI enables Ask through an OpenAI chat model.
// An empty model selects gpt-4o-mini.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIKey = apiKey
		c.openAIModel = model
	})
}

// WithOpenAIBaseURL points WithOpenAI at an OpenAI-compatible endpoint.
func WithOpenAIBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAIBaseURL = url
	})
}

// WithPlanner sets a custom planner. It takes precedence over WithOpenAI.
func WithPlanner(p Planner) Option {
	return optionFunc(func(c *clientConfig) {
		c.planner = p
	})
}

// WithProgress receives load progress messages. The last message of every
// load is "".
func WithProgress(fn func(msg string)) Option {
	return optionFunc(func(c *clientConfig) {
		c.progress = fn
	})
}

// WithProgressEvery emits an indexing progress message every n elements.
func WithProgressEvery(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.progressEvery = n
	})
}

// WithSchemaCap bounds the number of (pset, property) pairs sent to the
// planner. 0 means unbounded.
func WithSchemaCap(pairs int) Option {
	return optionFunc(func(c *clientConfig) {
		c.schemaCap = pairs
	})
}

// WithMaxModelBytes rejects models larger than n bytes after decompression.
func WithMaxModelBytes(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxModelBytes = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
