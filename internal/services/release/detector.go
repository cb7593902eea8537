package release

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TagLister is the GitHub lookup the detector needs.
type TagLister interface {
	Tags(ctx context.Context, owner, repo string, maxPages int) ([]string, error)
}

type DetectOptions struct {
	MaxPages int
	CacheTTL time.Duration
	// CacheDir overrides the user cache directory.
	CacheDir string
	NoCache  bool
}

// DetectHighestStable returns the highest stable tag of owner/repo. The
// bool result reports whether the answer came from the on-disk cache.
func DetectHighestStable(ctx context.Context, lister TagLister, owner, repo string, opts DetectOptions) (Info, bool, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	fullRepo := owner + "/" + repo

	if !opts.NoCache {
		if cached, ok := readCache(opts.CacheDir, fullRepo, opts.CacheTTL); ok {
			cached.Source = "cache"
			return cached, true, nil
		}
	}

	tags, err := lister.Tags(ctx, owner, repo, opts.MaxPages)
	if err != nil {
		return Info{}, false, err
	}
	info, err := SelectHighest(fullRepo, tags)
	if err != nil {
		return Info{}, false, err
	}
	info.FetchedAt = time.Now().Unix()
	info.Source = "github_api"

	if !opts.NoCache {
		_ = writeCache(opts.CacheDir, info)
	}
	return info, false, nil
}

func cachePath(dir, repo string) (string, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil || base == "" {
			home, herr := os.UserHomeDir()
			if herr != nil {
				return "", herr
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "pwinstall")
	}
	safe := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_").Replace(strings.TrimSpace(repo))
	safe = strings.Trim(safe, "_")
	if safe == "" {
		safe = "unknown"
	}
	return filepath.Join(dir, "tags-"+safe+".json"), nil
}

func readCache(dir, repo string, ttl time.Duration) (Info, bool) {
	path, err := cachePath(dir, repo)
	if err != nil {
		return Info{}, false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Info{}, false
	}
	var info Info
	if err := json.Unmarshal(b, &info); err != nil {
		return Info{}, false
	}
	if info.Repo != repo || info.FetchedAt == 0 {
		return Info{}, false
	}
	if time.Since(time.Unix(info.FetchedAt, 0)) > ttl {
		return Info{}, false
	}
	return info, true
}

func writeCache(dir string, info Info) error {
	path, err := cachePath(dir, info.Repo)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
