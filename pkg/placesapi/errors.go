package placesapi

import (
	"fmt"
	"net/http"

	"github.com/sells-group/placemap/internal/resilience"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// HTTPStatus implements resilience.StatusCoder.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// permanent marks decode failures so they are not retried.
func permanent(err error) error {
	return resilience.Permanent(err)
}
