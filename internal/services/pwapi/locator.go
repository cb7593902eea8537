// Package pwapi asks the freshly installed site about itself by
// bootstrapping it in a php subprocess.
package pwapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var ErrNotInstalled = errors.New("processwire is not installed")

// adminURLScript prints the URL of the admin root page (id 2).
const adminURLScript = `include 'index.php'; echo $wire->pages->get(2)->url;`

// Locator resolves paths of the installed site.
type Locator struct {
	// PHP is the interpreter to run; defaults to "php".
	PHP     string
	Timeout time.Duration
	run     func(ctx context.Context, dir, php, script string) ([]byte, error)
}

func NewLocator() *Locator {
	return &Locator{PHP: "php", Timeout: 30 * time.Second, run: runPHP}
}

// AdminPath returns the admin page path, e.g. "/adm/".
func (l *Locator) AdminPath(ctx context.Context, docroot string) (string, error) {
	if _, err := os.Stat(filepath.Join(docroot, "index.php")); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInstalled, docroot)
	}
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	php := l.PHP
	if php == "" {
		php = "php"
	}
	run := l.run
	if run == nil {
		run = runPHP
	}

	out, err := run(ctx, docroot, php, adminURLScript)
	if err != nil {
		return "", err
	}
	path := lastLine(string(out))
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("unexpected admin url %q", path)
	}
	return path, nil
}

func runPHP(ctx context.Context, dir, php, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, php, "-r", script)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}

// lastLine skips any notices the bootstrap printed before the answer.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
