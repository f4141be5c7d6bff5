// Package randomid fetches random integers used as identifier candidates.
package randomid

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// Source produces a random integer in [min, max]
type Source interface {
	Fetch(ctx context.Context, min, max int64) (int64, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, min, max int64) (int64, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context, min, max int64) (int64, error) {
	return f(ctx, min, max)
}

// LocalSource draws from the process's pseudo-random generator
type LocalSource struct{}

// Fetch returns a uniformly distributed value in [min, max]
func (LocalSource) Fetch(ctx context.Context, min, max int64) (int64, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	return min + rand.Int64N(max-min+1), nil
}

// Fallback asks Primary first and Secondary only when Primary answered with
// unusable content. A Primary that cannot be reached is reported straight away;
// any Secondary failure is reported as a format failure.
type Fallback struct {
	Primary   Source
	Secondary Source
	Logger    *logrus.Logger
}

// NewFallback chains two sources. A nil secondary disables the fallback.
func NewFallback(primary, secondary Source, logger *logrus.Logger) *Fallback {
	if logger == nil {
		logger = logrus.New()
	}
	return &Fallback{Primary: primary, Secondary: secondary, Logger: logger}
}

// Fetch implements Source
func (f *Fallback) Fetch(ctx context.Context, min, max int64) (int64, error) {
	value, err := f.Primary.Fetch(ctx, min, max)
	if err == nil {
		return value, nil
	}
	if f.Secondary == nil || !IsFormat(err) {
		return 0, err
	}

	f.Logger.WithError(err).Warn("Primary random source returned bad content, trying secondary")

	value, err = f.Secondary.Fetch(ctx, min, max)
	if err != nil {
		return 0, asFormatError(err)
	}
	return value, nil
}

// asFormatError reclassifies a secondary failure. Once the primary has
// answered with bad content the chain reports a format failure, whatever
// went wrong with the secondary.
func asFormatError(err error) error {
	endpoint, cause := "secondary", err
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		endpoint, cause = upstream.Endpoint, upstream.Err
	}
	return &UpstreamError{Endpoint: endpoint, Kind: ErrUpstreamFormat, Err: cause}
}
