// Package paper provides configuration options for the paper-generation pipeline.
package paper

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/papergen/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains pipeline tuning knobs.
type Options struct {
	// StoreDriver selects the content store backend (memory, mongo, milvus).
	StoreDriver string `json:"store-driver" mapstructure:"store-driver"`

	// TopK is the per-ranking retrieval depth.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int `json:"rrf-k" mapstructure:"rrf-k"`

	// VectorWeight weighs the semantic ranking; normalized with BM25Weight.
	VectorWeight float64 `json:"vector-weight" mapstructure:"vector-weight"`

	// BM25Weight weighs the lexical ranking; normalized with VectorWeight.
	BM25Weight float64 `json:"bm25-weight" mapstructure:"bm25-weight"`

	// MaxContextChunks caps how many chunks feed one grounding context.
	MaxContextChunks int `json:"max-context-chunks" mapstructure:"max-context-chunks"`

	// MaxContextChars caps the grounding context length.
	MaxContextChars int `json:"max-context-chars" mapstructure:"max-context-chars"`

	// Concurrency is the drafting worker-pool size.
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`

	// Seed seeds blueprint shuffling; 0 draws a seed from the clock.
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		StoreDriver:      "memory",
		TopK:             10,
		RRFK:             60,
		VectorWeight:     0.5,
		BM25Weight:       0.5,
		MaxContextChunks: 50,
		MaxContextChars:  12000,
		Concurrency:      4,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.StoreDriver, options.Join(prefixes...)+"store-driver", o.StoreDriver, "Content store backend (memory, mongo, milvus).")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"top-k", o.TopK, "Per-ranking retrieval depth.")
	fs.IntVar(&o.RRFK, options.Join(prefixes...)+"rrf-k", o.RRFK, "Reciprocal rank fusion constant.")
	fs.Float64Var(&o.VectorWeight, options.Join(prefixes...)+"vector-weight", o.VectorWeight, "Semantic ranking weight.")
	fs.Float64Var(&o.BM25Weight, options.Join(prefixes...)+"bm25-weight", o.BM25Weight, "Lexical ranking weight.")
	fs.IntVar(&o.MaxContextChunks, options.Join(prefixes...)+"max-context-chunks", o.MaxContextChunks, "Max chunks per grounding context.")
	fs.IntVar(&o.MaxContextChars, options.Join(prefixes...)+"max-context-chars", o.MaxContextChars, "Max characters per grounding context.")
	fs.IntVar(&o.Concurrency, options.Join(prefixes...)+"concurrency", o.Concurrency, "Drafting worker pool size.")
	fs.Int64Var(&o.Seed, options.Join(prefixes...)+"seed", o.Seed, "Blueprint shuffle seed (0 = time-based).")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.StoreDriver {
	case "memory", "mongo", "milvus":
	default:
		errs = append(errs, fmt.Errorf("invalid store-driver %q", o.StoreDriver))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.RRFK <= 0 {
		errs = append(errs, fmt.Errorf("rrf-k must be positive"))
	}
	if o.VectorWeight < 0 || o.BM25Weight < 0 {
		errs = append(errs, fmt.Errorf("fusion weights must be non-negative"))
	}
	if o.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive"))
	}
	return errs
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if o.MaxContextChunks <= 0 {
		o.MaxContextChunks = 50
	}
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = 12000
	}
	return nil
}
