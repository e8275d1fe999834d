package explorer

import (
	"context"
	"errors"
	"fmt"
)

// Source identifies a remote provider endpoint.
type Source string

const (
	SourceBorders  Source = "borders"
	SourceFacts    Source = "restcountries"
	SourceGeonames Source = "geonames.info"
	SourceWeather  Source = "openweather.current"
	SourceForecast Source = "openweather.forecast"
	SourceNearby   Source = "geonames.nearby"
	SourceSearch   Source = "geonames.search"
	SourceSummary  Source = "wikipedia.summary"
	SourceNews     Source = "news"
	SourceRates    Source = "exchangerates"
	SourceGeocoder Source = "geocoder"
)

// Failure kinds. Every provider failure wraps exactly one of them.
var (
	ErrTransport       = errors.New("transport error")
	ErrShape           = errors.New("malformed payload")
	ErrEmptyResult     = errors.New("empty result set")
	ErrDependencyUnmet = errors.New("dependency unmet")
)

// ProviderError is a typed provider failure.
type ProviderError struct {
	Source Source
	Kind   error
	Cause  error
}

func (e *ProviderError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Cause)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ProviderError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func TransportError(src Source, cause error) error {
	return &ProviderError{Source: src, Kind: ErrTransport, Cause: cause}
}

func ShapeError(src Source, cause error) error {
	return &ProviderError{Source: src, Kind: ErrShape, Cause: cause}
}

func EmptyResultError(src Source) error {
	return &ProviderError{Source: src, Kind: ErrEmptyResult}
}

// DependencyUnmetError reports that src was never called because dep did
// not resolve.
func DependencyUnmetError(src, dep Source) error {
	return &ProviderError{Source: src, Kind: ErrDependencyUnmet, Cause: fmt.Errorf("requires %s", dep)}
}

// Result is the outcome of one provider call, tagged with the epoch that
// issued it. Err is nil on success and a *ProviderError otherwise.
type Result[T any] struct {
	Epoch  Epoch
	Source Source
	Value  T
	Err    error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Call runs fn and folds its outcome, including a panic, into a Result.
func Call[T any](ctx context.Context, epoch Epoch, src Source, fn func(context.Context) (T, error)) (res Result[T]) {
	res = Result[T]{Epoch: epoch, Source: src}

	defer func() {
		if p := recover(); p != nil {
			var zero T
			res.Value = zero
			res.Err = ShapeError(src, fmt.Errorf("panic: %v", p))
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		res.Err = classify(src, err)
		return res
	}
	res.Value = v
	return res
}

func classify(src Source, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Source == "" {
			return &ProviderError{Source: src, Kind: pe.Kind, Cause: pe.Cause}
		}
		return pe
	}
	switch {
	case errors.Is(err, ErrShape):
		return ShapeError(src, err)
	case errors.Is(err, ErrEmptyResult):
		return &ProviderError{Source: src, Kind: ErrEmptyResult, Cause: err}
	case errors.Is(err, ErrDependencyUnmet):
		return &ProviderError{Source: src, Kind: ErrDependencyUnmet, Cause: err}
	}
	return TransportError(src, err)
}
