package cache

import "fmt"

// CacheError is returned when cache operations fail.
type CacheError struct {
	Operation string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("cache %s %s failed: %v", e.Operation, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
