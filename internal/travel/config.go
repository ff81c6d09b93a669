package travel

import (
	"log/slog"
	"time"

	"github.com/aretw0/wayfarer/internal/logging"
	"github.com/aretw0/wayfarer/pkg/ports"
)

// Config tunes the travel graph. Start from DefaultConfig: a false PlanReview
// and a zero LLMRetries are kept as given, while the counts and limits below
// fall back to their defaults when not positive.
type Config struct {
	MaxClarificationRounds int           `mapstructure:"max_clarification_rounds" yaml:"max_clarification_rounds"`
	MaxPlanRevisions       int           `mapstructure:"max_plan_revisions" yaml:"max_plan_revisions"`
	PlanReview             bool          `mapstructure:"plan_review" yaml:"plan_review"`
	LLMRetries             int           `mapstructure:"llm_retries" yaml:"llm_retries"`
	RetryWait              time.Duration `mapstructure:"retry_wait" yaml:"retry_wait"`
	Parallelism            int           `mapstructure:"parallelism" yaml:"parallelism"`
	DefaultDays            int           `mapstructure:"default_days" yaml:"default_days"`
	MaxDays                int           `mapstructure:"max_days" yaml:"max_days"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxClarificationRounds: 5,
		MaxPlanRevisions:       5,
		PlanReview:             true,
		LLMRetries:             2,
		RetryWait:              time.Second,
		Parallelism:            1,
		DefaultDays:            3,
		MaxDays:                14,
	}
}

// withDefaults fills non-positive counts and limits. It cannot tell an unset
// PlanReview or LLMRetries from a deliberate false or zero.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxClarificationRounds <= 0 {
		c.MaxClarificationRounds = d.MaxClarificationRounds
	}
	if c.MaxPlanRevisions <= 0 {
		c.MaxPlanRevisions = d.MaxPlanRevisions
	}
	if c.LLMRetries < 0 {
		c.LLMRetries = 0
	}
	if c.RetryWait < 0 {
		c.RetryWait = 0
	}
	if c.Parallelism <= 0 {
		c.Parallelism = d.Parallelism
	}
	if c.DefaultDays <= 0 {
		c.DefaultDays = d.DefaultDays
	}
	if c.MaxDays <= 0 {
		c.MaxDays = d.MaxDays
	}
	return c
}

// Deps are the collaborators the nodes call out to.
// Places is optional; without it reviews are built from search snippets only.
type Deps struct {
	Completer ports.Completer
	Searcher  ports.Searcher
	Places    ports.PlaceLookup
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.NewNop()
	}
	return d.Logger
}
