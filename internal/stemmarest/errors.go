package stemmarest

import (
	"errors"
	"fmt"
)

// ErrNoSections is returned when the tradition lists no sections.
var ErrNoSections = errors.New("tradition has no sections")

// FetchError describes a failed request to the collation service or a gazetteer.
type FetchError struct {
	URL    string
	Status int // 0 when the request never produced a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s: server returned %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether err is a FetchError for a 404 response.
func NotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Status == 404
}
