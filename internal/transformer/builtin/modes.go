package builtin

import (
	"fmt"
	"log/slog"
	"time"

	"dwetl/internal/transformer"
)

// Options tunes the built-in chains.
type Options struct {
	// MinNonNull is the sparse-row threshold; zero selects DefaultMinNonNull.
	MinNonNull int
	// Now is the clock used for extract_date.
	Now func() time.Time
	Log *slog.Logger
}

// ForMode returns the transformation chain of a mode. ModeNone yields an
// empty chain.
func ForMode(mode transformer.Mode, opt Options) (transformer.Chain, error) {
	minNonNull := opt.MinNonNull
	if minNonNull <= 0 {
		minNonNull = DefaultMinNonNull
	}
	switch mode {
	case transformer.ModeNone, "":
		return transformer.Chain{}, nil
	case transformer.ModeStructuralCleanup:
		return transformer.Chain{
			DropBlankColumns{Log: opt.Log},
			NormalizeNames{},
			DropSparseRows{MinNonNull: minNonNull},
			DedupRows{},
			Stamp{Now: opt.Now},
		}, nil
	case transformer.ModeStatisticalPreprocessing:
		return transformer.Chain{
			ImputeMedian{Log: opt.Log},
			Standardize{Log: opt.Log},
		}, nil
	}
	return nil, fmt.Errorf("builtin: unknown mode %q", mode)
}
