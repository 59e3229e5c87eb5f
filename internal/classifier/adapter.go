// Package classifier adapts an asynchronously loaded content model to the
// never-blocking verdict contract used by the sync engine.
package classifier

import (
	"context"
	"strings"
	"sync"

	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/metrics"
	"github.com/dtroode/cipherroom/internal/model"
)

// DefaultThreshold is the confidence a category score must reach to match.
const DefaultThreshold = 0.9

// DefaultCategories are the categories requested from the model at load.
var DefaultCategories = []string{"toxicity", "severe_toxicity", "identity_attack", "insult", "threat"}

// State is the load state of the adapter.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// CategoryResult holds one category's scores, one per classified text.
type CategoryResult struct {
	Label  string
	Scores []float64
}

// Model is a loaded classification model.
type Model interface {
	Classify(ctx context.Context, texts []string) ([]CategoryResult, error)
}

// Runtime loads models.
type Runtime interface {
	Load(ctx context.Context, threshold float64, categories []string) (Model, error)
}

// Adapter wraps a Runtime. Loading happens once per adapter; Classify never
// blocks on loading and never fails.
type Adapter struct {
	runtime    Runtime
	threshold  float64
	categories []string
	logger     *logger.Logger

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state State
	model Model
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(a *Adapter) {
		a.threshold = threshold
	}
}

// WithCategories overrides DefaultCategories.
func WithCategories(categories []string) Option {
	return func(a *Adapter) {
		a.categories = append([]string(nil), categories...)
	}
}

// New creates an unloaded adapter.
func New(runtime Runtime, logger *logger.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		runtime:    runtime,
		threshold:  DefaultThreshold,
		categories: append([]string(nil), DefaultCategories...),
		logger:     logger,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load starts loading the model in the background. Only the first call has
// any effect; the terminal state is never retried.
func (a *Adapter) Load(ctx context.Context) {
	a.once.Do(func() {
		a.setState(StateLoading, nil)
		go a.load(ctx)
	})
}

func (a *Adapter) load(ctx context.Context) {
	defer close(a.done)

	if a.runtime == nil {
		a.logger.Warn("classifier runtime is not configured, content safety disabled")
		a.setState(StateUnavailable, nil)
		return
	}

	m, err := a.runtime.Load(ctx, a.threshold, a.categories)
	if err != nil || m == nil {
		a.logger.Error("failed to load classifier model, content safety disabled", "error", err)
		a.setState(StateUnavailable, nil)
		return
	}

	a.logger.Info("classifier model loaded", "categories", len(a.categories), "threshold", a.threshold)
	a.setState(StateReady, m)
}

func (a *Adapter) setState(state State, m Model) {
	a.mu.Lock()
	a.state = state
	a.model = m
	a.mu.Unlock()
	metrics.ClassifierState.Set(float64(state))
}

// State returns the current load state.
func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Done is closed once loading reached Ready or Unavailable.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Err returns model.ErrClassifierUnavailable once loading has failed.
func (a *Adapter) Err() error {
	if a.State() == StateUnavailable {
		return model.ErrClassifierUnavailable
	}
	return nil
}

// Classify scores text. Until the model is ready, and forever after a failed
// load, every text is reported as not flagged.
func (a *Adapter) Classify(ctx context.Context, text string) model.ThreatVerdict {
	if strings.TrimSpace(text) == "" {
		return model.ThreatVerdict{}
	}

	a.mu.RLock()
	state, m := a.state, a.model
	a.mu.RUnlock()
	if state != StateReady {
		return model.ThreatVerdict{}
	}

	results, err := m.Classify(ctx, []string{text})
	if err != nil {
		a.logger.Warn("classifier failed, passing message through", "error", err)
		return model.ThreatVerdict{}
	}

	for _, r := range results {
		if len(r.Scores) == 0 {
			continue
		}
		if r.Scores[0] >= a.threshold {
			metrics.FlaggedMessages.WithLabelValues(r.Label).Inc()
			return model.ThreatVerdict{Flagged: true, Label: r.Label}
		}
	}
	return model.ThreatVerdict{}
}
