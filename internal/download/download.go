// Package download fetches BabySeg model checkpoints and atlas volumes
// from the release file server.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/freesurfer/babyseg/internal/logs"
)

// DefaultBaseURL is the directory index the released model files live under.
const DefaultBaseURL = "https://surfer.nmr.mgh.harvard.edu/pub/dist/babyseg/"

const indexTimeout = 30 * time.Second

// hrefRegex pulls link targets out of a directory index page. Servers emit
// double-quoted, single-quoted, and bare hrefs, in any case.
var hrefRegex = regexp.MustCompile(`(?i)href=["']?([^"' >]+)`)

// wantedSuffixes are the artifact types the model needs: torch checkpoints
// and NIfTI atlas volumes.
var wantedSuffixes = []string{".pt", ".nii.gz"}

// Client downloads model files from one base URL.
type Client struct {
	http    *http.Client
	baseURL string
}

func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	// No overall client timeout: checkpoint files are large and transfer
	// time is unbounded. The index fetch gets its own deadline.
	return &Client{http: &http.Client{}, baseURL: baseURL}, nil
}

// ListFiles fetches the index page and returns the sorted, deduplicated
// URLs of every model file it links to.
func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index %s returned status %d", c.baseURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, m := range hrefRegex.FindAllStringSubmatch(string(body), -1) {
		href := m[1]
		if !wantedFile(href) {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			logs.Debugf("skipping unparseable link %q: %v", href, err)
			continue
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	sort.Strings(out)
	return out, nil
}

// DestFunc maps a remote file name to the directory it should land in.
type DestFunc func(filename string) string

// FixedDir sends every file to the same directory.
func FixedDir(dir string) DestFunc {
	return func(string) string { return dir }
}

// FetchAll downloads every model file, flattening any index subdirectories,
// placing each in destDir(name). Existing files are kept unless force is
// set. Returns the paths written (or kept).
func (c *Client) FetchAll(ctx context.Context, destDir DestFunc, force bool) ([]string, error) {
	files, err := c.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no model files found at %s", c.baseURL)
	}

	var out []string
	for _, fileURL := range files {
		name := path.Base(mustPath(fileURL))
		dir := destDir(name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		target := filepath.Join(dir, name)
		if !force {
			if _, err := os.Stat(target); err == nil {
				logs.Infof("%s already present, skipping", filepath.Base(target))
				out = append(out, target)
				continue
			}
		}
		if err := c.fetchOne(ctx, fileURL, target); err != nil {
			return out, err
		}
		out = append(out, target)
	}
	return out, nil
}

// fetchOne streams one file to target via a temp file, so a failed
// transfer never leaves a truncated artifact behind.
func (c *Client) fetchOne(ctx context.Context, fileURL, target string) error {
	logs.Infof("Downloading %s ...", filepath.Base(target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", fileURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func wantedFile(href string) bool {
	href = strings.ToLower(href)
	for _, suffix := range wantedSuffixes {
		if strings.HasSuffix(href, suffix) {
			return true
		}
	}
	return false
}

func mustPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
