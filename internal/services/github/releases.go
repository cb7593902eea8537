package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	gh "github.com/google/go-github/v58/github"
)

var ErrAssetNotFound = errors.New("release asset not found")

// Client wraps the GitHub REST API for the few lookups the installer
// needs. GITHUB_TOKEN is used when set.
type Client struct {
	api *gh.Client
}

func NewClient(httpClient *http.Client) *Client {
	api := gh.NewClient(httpClient)
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		api = api.WithAuthToken(token)
	}
	return &Client{api: api}
}

// WithBaseURL points the client at another API root (GitHub Enterprise,
// tests).
func (c *Client) WithBaseURL(raw string) (*Client, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	c.api.BaseURL = u
	return c, nil
}

// Tags lists tag names, newest first as returned by the API, reading at
// most maxPages pages.
func (c *Client) Tags(ctx context.Context, owner, repo string, maxPages int) ([]string, error) {
	if maxPages <= 0 {
		maxPages = 3
	}
	var out []string
	opts := &gh.ListOptions{PerPage: 100, Page: 1}
	for page := 0; page < maxPages; page++ {
		tags, resp, err := c.api.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("github tags %s/%s: %w", owner, repo, err)
		}
		for _, t := range tags {
			out = append(out, t.GetName())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// LatestAssetURL returns the download URL of the named asset on the
// latest release.
func (c *Client) LatestAssetURL(ctx context.Context, owner, repo, asset string) (string, error) {
	rel, _, err := c.api.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("github latest release %s/%s: %w", owner, repo, err)
	}
	for _, a := range rel.Assets {
		if a.GetName() == asset {
			return a.GetBrowserDownloadURL(), nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s/%s@%s", ErrAssetNotFound, asset, owner, repo, rel.GetTagName())
}

// LatestDownloadURL is the redirecting web URL for an asset of the latest
// release. It needs no API call.
func LatestDownloadURL(owner, repo, asset string) string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/latest/download/%s", owner, repo, asset)
}

// ArchiveURL is the zipball URL of a branch, or of a tag when tag is true.
func ArchiveURL(owner, repo, ref string, tag bool) string {
	kind := "heads"
	if tag {
		kind = "tags"
	}
	return fmt.Sprintf("https://github.com/%s/%s/archive/refs/%s/%s.zip", owner, repo, kind, ref)
}
