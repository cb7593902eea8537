// Package download fetches the ProcessWire core and the companion site
// profile and unpacks them into the docroot.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lemachinarbo/RockShell/internal/services/github"
	"github.com/lemachinarbo/RockShell/internal/services/release"
)

const (
	CoreOwner    = "processwire"
	CoreRepo     = "processwire"
	ProfileOwner = "baumrock"
	ProfileRepo  = "site-rockfrontend"
	ProfileName  = "site-rockfrontend"
)

// Branches are the core versions that are always offered.
var Branches = []string{"master", "dev"}

// AssetLocator resolves a release asset to its download URL.
type AssetLocator interface {
	LatestAssetURL(ctx context.Context, owner, repo, asset string) (string, error)
}

type Fetcher struct {
	http *http.Client
	tags release.TagLister
	log  *zap.Logger
	// CoreURL and ProfileURL build download URLs; tests point them at
	// a local server.
	CoreURL    func(version string) string
	ProfileURL func() string
	// CacheDir overrides where the highest tag is cached.
	CacheDir string
	// Assets, when set, is asked for the profile asset before falling
	// back to ProfileURL.
	Assets AssetLocator
	// Progress, when set, is called as a download body is read. total is
	// -1 when the server sends no length.
	Progress func(done, total int64)
}

func New(httpClient *http.Client, tags release.TagLister, log *zap.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		http: httpClient,
		tags: tags,
		log:  log,
		CoreURL: func(version string) string {
			return github.ArchiveURL(CoreOwner, CoreRepo, version, !isBranch(version))
		},
		ProfileURL: func() string {
			return github.LatestDownloadURL(ProfileOwner, ProfileRepo, ProfileName+".zip")
		},
	}
}

func isBranch(version string) bool {
	for _, b := range Branches {
		if b == version {
			return true
		}
	}
	return false
}

// CoreVersions lists the branches plus the highest stable tag when the
// tag lookup succeeds.
func (f *Fetcher) CoreVersions(ctx context.Context) []string {
	out := append([]string(nil), Branches...)
	if f.tags == nil {
		return out
	}
	info, cached, err := release.DetectHighestStable(ctx, f.tags, CoreOwner, CoreRepo, release.DetectOptions{CacheDir: f.CacheDir})
	if err != nil {
		f.log.Debug("core tag lookup failed", zap.Error(err))
		return out
	}
	f.log.Debug("core tag", zap.String("tag", info.Tag), zap.Bool("cached", cached))
	return append(out, info.Tag)
}

// FetchCore downloads the core archive for version and extracts it into
// docroot, dropping the archive's top-level directory.
func (f *Fetcher) FetchCore(ctx context.Context, version, docroot string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	tmp, err := os.CreateTemp("", "processwire-*.zip")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpName)

	if err := f.Download(ctx, f.CoreURL(version), tmpName); err != nil {
		return fmt.Errorf("download processwire %s: %w", version, err)
	}
	n, err := Extract(tmpName, docroot, true)
	if err != nil {
		return fmt.Errorf("extract processwire %s: %w", version, err)
	}
	f.log.Info("processwire extracted", zap.String("version", version), zap.Int("files", n))
	return nil
}

// ProfileExists reports whether the companion profile is already present.
func ProfileExists(docroot string) bool {
	st, err := os.Stat(filepath.Join(docroot, ProfileName))
	return err == nil && st.IsDir()
}

// RemoveStaleProfileArchive deletes a leftover profile zip from an
// earlier run.
func RemoveStaleProfileArchive(docroot string) error {
	err := os.Remove(filepath.Join(docroot, ProfileName+".zip"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FetchProfile downloads the companion site profile next to the core and
// unpacks it in place.
func (f *Fetcher) FetchProfile(ctx context.Context, docroot string) error {
	archive := filepath.Join(docroot, ProfileName+".zip")
	if err := f.Download(ctx, f.profileURL(ctx), archive); err != nil {
		return fmt.Errorf("download %s: %w", ProfileName, err)
	}
	defer os.Remove(archive)

	n, err := Extract(archive, docroot, false)
	if err != nil {
		return fmt.Errorf("extract %s: %w", ProfileName, err)
	}
	f.log.Info("profile extracted", zap.String("profile", ProfileName), zap.Int("files", n))
	return nil
}

func (f *Fetcher) profileURL(ctx context.Context) string {
	if f.Assets != nil {
		u, err := f.Assets.LatestAssetURL(ctx, ProfileOwner, ProfileRepo, ProfileName+".zip")
		if err == nil {
			return u
		}
		f.log.Debug("profile asset lookup failed", zap.Error(err))
	}
	return f.ProfileURL()
}

// Download writes the body of rawURL to target.
func (f *Fetcher) Download(ctx context.Context, rawURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	var body io.Reader = resp.Body
	if f.Progress != nil {
		body = &countingReader{r: resp.Body, total: resp.ContentLength, report: f.Progress}
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	f.log.Debug("downloaded",
		zap.String("url", rawURL),
		zap.Int64("bytes", n),
		zap.Duration("took", time.Since(start)))
	return nil
}

type countingReader struct {
	r      io.Reader
	done   int64
	total  int64
	report func(done, total int64)
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if n > 0 {
		c.done += int64(n)
		c.report(c.done, c.total)
	}
	return n, err
}
