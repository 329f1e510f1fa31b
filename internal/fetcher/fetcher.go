package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Fetcher retrieves the public fields of a single profile. Implementations
// perform exactly one attempt per call; retries and pacing belong to the
// pipeline, not here. A failed fetch returns a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, profileURL string) (*model.RawProfile, error)
}

// ValidateProfileURL checks that raw is an absolute http(s) URL with a
// non-empty path. A malformed identifier is a permanent failure: no request
// is worth issuing for it.
func ValidateProfileURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return Permanent(raw, "malformed profile url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Permanent(raw, "profile url must be http or https", nil)
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return Permanent(raw, "profile url missing host or path", nil)
	}
	return nil
}
