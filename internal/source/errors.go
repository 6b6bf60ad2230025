package source

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure for the import pipeline.
type ErrorKind int

const (
	// KindNotFound: the provider has no data for the item. Skippable.
	KindNotFound ErrorKind = iota
	// KindTransient: network, rate limit, 5xx, timeout. Retryable.
	KindTransient
	// KindFatal: bad credentials or a response the adapter cannot parse
	// at all. Aborts remaining work for the source.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FetchError is the error type returned by every Fetcher.
type FetchError struct {
	Source string
	Item   string
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Item, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Source, e.Item, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func notFound(src, item string) error {
	return &FetchError{Source: src, Item: item, Kind: KindNotFound}
}

func transient(src, item string, err error) error {
	return &FetchError{Source: src, Item: item, Kind: KindTransient, Err: err}
}

func fatal(src, item string, err error) error {
	return &FetchError{Source: src, Item: item, Kind: KindFatal, Err: err}
}

// Kind extracts the classification from err. Anything unclassified,
// including timed-out or cancelled contexts, counts as transient, so
// the pipeline errs on the side of retrying.
func Kind(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}

// IsNotFound reports whether err is a provider has-no-data failure.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

// IsFatal reports whether err signals a systemic adapter failure.
func IsFatal(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindFatal
}
