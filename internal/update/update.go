// Package update compares the running build against the latest GitHub release.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultReleasesURL = "https://api.github.com/repos/matheuskafuri/newsdesk/releases/latest"

// ErrDevBuild is returned for builds without a release version.
var ErrDevBuild = errors.New("development build has no release version")

type Options struct {
	// ReleasesURL defaults to the newsdesk latest-release endpoint.
	ReleasesURL string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

type Checker struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

func NewChecker(opts Options) *Checker {
	c := &Checker{url: opts.ReleasesURL, http: opts.HTTPClient, logger: opts.Logger}
	if c.url == "" {
		c.url = defaultReleasesURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 5 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Release is the newest published release.
type Release struct {
	Version string // without the leading "v"
	URL     string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

func (c *Checker) Latest(ctx context.Context) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("fetching latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("fetching latest release: unexpected status %d", resp.StatusCode)
	}

	var gh ghRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&gh); err != nil {
		return Release{}, fmt.Errorf("decoding release: %w", err)
	}
	version := strings.TrimPrefix(gh.TagName, "v")
	if _, ok := parseVersion(version); !ok {
		return Release{}, fmt.Errorf("release tag %q is not a version", gh.TagName)
	}
	return Release{Version: version, URL: gh.HTMLURL}, nil
}

// Newer returns the latest release when it is strictly newer than current.
// ok is false when current is up to date or ahead.
func (c *Checker) Newer(ctx context.Context, current string) (rel Release, ok bool, err error) {
	cur, valid := parseVersion(strings.TrimPrefix(current, "v"))
	if !valid {
		return Release{}, false, ErrDevBuild
	}

	rel, err = c.Latest(ctx)
	if err != nil {
		return Release{}, false, err
	}
	latest, _ := parseVersion(rel.Version)
	c.logger.Debug("checked latest release", "current", current, "latest", rel.Version)
	return rel, compare(latest, cur) > 0, nil
}

// parseVersion reads "1.2.3"; missing minor or patch parts count as zero and
// anything after a "-" or "+" is ignored.
func parseVersion(s string) ([3]int, bool) {
	var v [3]int
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if s == "" || len(parts) > 3 {
		return v, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, false
		}
		v[i] = n
	}
	return v, true
}

func compare(a, b [3]int) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}
