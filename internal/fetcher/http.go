package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// HTTPOptions configures the HTTP profile fetcher.
type HTTPOptions struct {
	// BaseURL is the profile-data provider endpoint. The profile URL is
	// passed as the "url" query parameter. Empty means the profile URL is
	// requested directly (the provider proxies per-URL).
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// HostRPS caps requests per second per provider host, independent of
	// the pipeline's pacing. 0 disables the cap.
	HostRPS float64
}

// HTTPFetcher implements Fetcher against a profile-data provider that
// returns profile JSON. One attempt per Fetch call; failures are classified
// into transient/permanent FetchErrors for the retry policy upstream.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "lead-qualifier/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// profilePayload is the provider's response document.
type profilePayload struct {
	URL             string   `json:"url"`
	Name            string   `json:"name"`
	Headline        string   `json:"headline"`
	CurrentPosition string   `json:"current_position"`
	CurrentCompany  string   `json:"current_company"`
	Location        string   `json:"location"`
	Industry        string   `json:"industry"`
	ExperienceYears int      `json:"experience_years"`
	CompanySize     string   `json:"company_size"`
	Skills          []string `json:"skills"`
	Education       []string `json:"education"`
	Connections     string   `json:"connections"`
	About           string   `json:"about"`

	Positions []position `json:"positions"`
}

type position struct {
	Title     string `json:"title"`
	Company   string `json:"company"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
}

// Fetch retrieves one profile. The outcome is either a RawProfile or a
// *FetchError; no other error type escapes.
func (f *HTTPFetcher) Fetch(ctx context.Context, profileURL string) (*model.RawProfile, error) {
	if err := ValidateProfileURL(profileURL); err != nil {
		return nil, err
	}

	requestURL := profileURL
	if f.opts.BaseURL != "" {
		requestURL = f.opts.BaseURL + "?url=" + url.QueryEscape(profileURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, Permanent(profileURL, "create request", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if f.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.opts.APIKey)
	}

	if err := f.waitHost(ctx, req.URL.Host); err != nil {
		return nil, Transient(profileURL, "host rate limiter wait", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Transport failures (timeouts, resets, DNS) are retryable.
		return nil, Transient(profileURL, "request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, f.classifyStatus(profileURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, Transient(profileURL, "read response body", err)
	}

	var payload profilePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, Permanent(profileURL, "malformed profile payload", err)
	}

	profile := payload.toProfile(profileURL)
	zap.L().Debug("fetcher: profile fetched",
		zap.String("url", profileURL),
		zap.String("name", profile.Name),
		zap.Int("skills", len(profile.Skills)),
	)
	return profile, nil
}

func (f *HTTPFetcher) classifyStatus(profileURL string, status int) *FetchError {
	fe := &FetchError{
		URL:        profileURL,
		StatusCode: status,
		Message:    http.StatusText(status),
	}
	if IsTransientHTTPStatus(status) {
		fe.Kind = KindTransient
		if status == http.StatusTooManyRequests {
			zap.L().Warn("fetcher: provider throttling", zap.String("url", profileURL))
		}
	} else {
		fe.Kind = KindPermanent
	}
	return fe
}

func (f *HTTPFetcher) waitHost(ctx context.Context, host string) error {
	if f.opts.HostRPS <= 0 {
		return nil
	}
	f.mu.Lock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.HostRPS), 1)
		f.limiters[host] = lim
	}
	f.mu.Unlock()
	return lim.Wait(ctx)
}

// toProfile converts the provider payload to the immutable RawProfile,
// deriving experience years from position history when the provider does
// not report them directly.
func (p profilePayload) toProfile(profileURL string) *model.RawProfile {
	profile := &model.RawProfile{
		URL:             profileURL,
		Name:            p.Name,
		Headline:        p.Headline,
		CurrentPosition: p.CurrentPosition,
		CurrentCompany:  p.CurrentCompany,
		Location:        p.Location,
		Industry:        p.Industry,
		ExperienceYears: p.ExperienceYears,
		CompanySize:     p.CompanySize,
		Skills:          p.Skills,
		Education:       p.Education,
		Connections:     p.Connections,
		About:           p.About,
		FetchedAt:       time.Now().UTC(),
	}

	if profile.CurrentPosition == "" && len(p.Positions) > 0 {
		profile.CurrentPosition = p.Positions[0].Title
		if profile.CurrentCompany == "" {
			profile.CurrentCompany = p.Positions[0].Company
		}
	}

	if profile.ExperienceYears == 0 && len(p.Positions) > 0 {
		profile.ExperienceYears = estimateExperienceYears(p.Positions, time.Now().UTC().Year())
	}

	return profile
}

// estimateExperienceYears derives total experience from the earliest
// position start year. Open-ended positions count up to the current year.
func estimateExperienceYears(positions []position, currentYear int) int {
	earliest := 0
	for _, pos := range positions {
		if pos.StartYear <= 0 {
			continue
		}
		if earliest == 0 || pos.StartYear < earliest {
			earliest = pos.StartYear
		}
	}
	if earliest == 0 || earliest > currentYear {
		return 0
	}
	return currentYear - earliest
}
