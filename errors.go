package fetchcache

import (
	"errors"
	"fmt"
)

var (
	ErrNilStore           = errors.New("fetchcache: store is required")
	ErrNilFetcher         = errors.New("fetchcache: fetcher is required")
	ErrAllEndpointsFailed = errors.New("all endpoints failed")
)

// AllEndpointsFailedError is returned by FetchWithFallback when no endpoint
// answered. Errs holds one error per attempted endpoint, in order.
type AllEndpointsFailedError struct {
	Endpoints []string
	Errs      []error
}

func (e *AllEndpointsFailedError) Error() string {
	switch len(e.Errs) {
	case 0:
		return "all endpoints failed: no endpoints given"
	case 1:
		return fmt.Sprintf("all endpoints failed: %v", e.Errs[0])
	default:
		return fmt.Sprintf("all endpoints failed (%d tried): last: %v", len(e.Errs), e.Errs[len(e.Errs)-1])
	}
}

func (e *AllEndpointsFailedError) Is(target error) bool { return target == ErrAllEndpointsFailed }

func (e *AllEndpointsFailedError) Unwrap() []error { return e.Errs }

// StoreError is a failed provider operation on a storage key.
type StoreError struct {
	Op  string // get, set, del, lock, del_pattern
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("fetchcache: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// InvalidateError reports which tiers failed to drop a key.
type InvalidateError struct {
	Key      string
	StoreErr error
	LocalErr error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.StoreErr != nil && e.LocalErr != nil:
		return fmt.Sprintf("invalidate %q failed: store and local delete failed: store=%v; local=%v",
			e.Key, e.StoreErr, e.LocalErr)
	case e.StoreErr != nil:
		return fmt.Sprintf("invalidate %q: store delete failed: %v", e.Key, e.StoreErr)
	case e.LocalErr != nil:
		return fmt.Sprintf("invalidate %q: local delete failed: %v", e.Key, e.LocalErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.StoreErr != nil {
		errs = append(errs, e.StoreErr)
	}
	if e.LocalErr != nil {
		errs = append(errs, e.LocalErr)
	}
	return errs
}
