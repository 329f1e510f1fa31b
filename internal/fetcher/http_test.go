package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSuccess(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"name": "Jordan Avery",
			"current_position": "CTO",
			"current_company": "Acme",
			"location": "San Francisco Bay Area",
			"industry": "Computer Software",
			"experience_years": 12,
			"company_size": "201-500",
			"skills": ["Go", "Kubernetes"]
		}`)
	})

	f := NewHTTPFetcher(HTTPOptions{APIKey: "secret"})
	profile, err := f.Fetch(context.Background(), srv.URL+"/in/jordan")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/in/jordan", profile.URL)
	assert.Equal(t, "Jordan Avery", profile.Name)
	assert.Equal(t, "CTO", profile.CurrentPosition)
	assert.Equal(t, 12, profile.ExperienceYears)
	assert.False(t, profile.FetchedAt.IsZero())
}

func TestFetchStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusNotFound, KindPermanent},
		{http.StatusForbidden, KindPermanent},
		{http.StatusUnauthorized, KindPermanent},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusGatewayTimeout, KindTransient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			f := NewHTTPFetcher(HTTPOptions{})
			_, err := f.Fetch(context.Background(), srv.URL+"/in/someone")

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.status, fe.StatusCode)
		})
	}
}

func TestFetchMalformedPayloadIsPermanent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>captcha</html>`)
	})

	f := NewHTTPFetcher(HTTPOptions{})
	_, err := f.Fetch(context.Background(), srv.URL+"/in/someone")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindPermanent, fe.Kind)
}

func TestFetchConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/in/someone"
	srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), url)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTransient, fe.Kind)
}

func TestFetchInvalidURLIsPermanent(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})

	for _, raw := range []string{
		"",
		"not-a-url",
		"ftp://example.com/in/a",
		"https://example.com",
		"https://example.com/",
	} {
		_, err := f.Fetch(context.Background(), raw)

		var fe *FetchError
		require.ErrorAs(t, err, &fe, "url %q", raw)
		assert.Equal(t, KindPermanent, fe.Kind, "url %q", raw)
	}
}

func TestFetchViaBaseURL(t *testing.T) {
	profileURL := "https://example.com/in/jordan"
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, profileURL, r.URL.Query().Get("url"))
		fmt.Fprint(w, `{"name": "Jordan Avery"}`)
	})

	f := NewHTTPFetcher(HTTPOptions{BaseURL: srv.URL + "/v1/profile"})
	profile, err := f.Fetch(context.Background(), profileURL)

	require.NoError(t, err)
	// The canonical profile URL is kept, not the provider request URL.
	assert.Equal(t, profileURL, profile.URL)
}

func TestDeriveFromPositions(t *testing.T) {
	p := profilePayload{
		Name: "Sam",
		Positions: []position{
			{Title: "VP of Engineering", Company: "Acme", StartYear: 2019},
			{Title: "Staff Engineer", Company: "Initech", StartYear: 2012, EndYear: 2019},
		},
	}

	profile := p.toProfile("https://example.com/in/sam")

	assert.Equal(t, "VP of Engineering", profile.CurrentPosition)
	assert.Equal(t, "Acme", profile.CurrentCompany)
	assert.Equal(t, time.Now().UTC().Year()-2012, profile.ExperienceYears)
}

func TestEstimateExperienceYears(t *testing.T) {
	tests := []struct {
		name      string
		positions []position
		want      int
	}{
		{"no positions", nil, 0},
		{"single open position", []position{{StartYear: 2018}}, 7},
		{"earliest wins", []position{{StartYear: 2020}, {StartYear: 2010}}, 15},
		{"zero start years ignored", []position{{StartYear: 0}, {StartYear: 2015}}, 10},
		{"future start ignored", []position{{StartYear: 2099}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimateExperienceYears(tt.positions, 2025)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(Transient("u", "m", nil)))
	assert.False(t, IsTransient(Permanent("u", "m", nil)))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.False(t, IsTransient(errors.New("invalid credentials")))
}

func TestFetchErrorMessage(t *testing.T) {
	fe := &FetchError{Kind: KindTransient, URL: "https://example.com/in/a", StatusCode: 429, Message: "Too Many Requests"}
	assert.Contains(t, fe.Error(), "429")
	assert.Contains(t, fe.Error(), "transient")

	cause := errors.New("underlying")
	assert.Equal(t, cause, Transient("u", "m", cause).Unwrap())
}
