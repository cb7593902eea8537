package release

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoStableTag = errors.New("no stable semver tags found")

	versionRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[0-9A-Za-z.-]+)?$`)
)

// Info describes the selected release tag.
type Info struct {
	Repo    string `json:"repo"`
	Tag     string `json:"tag"`
	Version string `json:"version"`
	// Source is "github_api" or "cache".
	Source    string `json:"source,omitempty"`
	FetchedAt int64  `json:"fetched_at,omitempty"`
}

type semver struct {
	major, minor, patch int
	pre                 string
}

func parseSemver(s string) (semver, bool) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return semver{}, false
	}
	maj, err1 := strconv.Atoi(m[1])
	min, err2 := strconv.Atoi(m[2])
	pat, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return semver{}, false
	}
	return semver{major: maj, minor: min, patch: pat, pre: m[4]}, true
}

func (v semver) String() string {
	return strconv.Itoa(v.major) + "." + strconv.Itoa(v.minor) + "." + strconv.Itoa(v.patch)
}

func compare(a, b semver) int {
	switch {
	case a.major != b.major:
		return sign(a.major - b.major)
	case a.minor != b.minor:
		return sign(a.minor - b.minor)
	default:
		return sign(a.patch - b.patch)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// SelectHighest picks the highest stable tag. Tags that are not plain
// MAJOR.MINOR.PATCH (optionally v-prefixed) are ignored, as are
// pre-releases.
func SelectHighest(repo string, tags []string) (Info, error) {
	var (
		best    semver
		bestTag string
		found   bool
	)
	for _, tag := range tags {
		v, ok := parseSemver(tag)
		if !ok || v.pre != "" {
			continue
		}
		if !found || compare(v, best) > 0 {
			best, bestTag, found = v, strings.TrimSpace(tag), true
		}
	}
	if !found {
		return Info{}, ErrNoStableTag
	}
	return Info{Repo: repo, Tag: bestTag, Version: best.String()}, nil
}
