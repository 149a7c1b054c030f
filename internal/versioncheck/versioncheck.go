// Package versioncheck looks for newer babyseg releases on GitHub, with a
// daily cache so regular runs never wait on the network.
package versioncheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/freesurfer/babyseg/internal/state"
	"github.com/freesurfer/babyseg/internal/version"
)

const (
	// GitHubOwner is the GitHub repository owner.
	GitHubOwner = "freesurfer"
	// GitHubRepo is the GitHub repository name.
	GitHubRepo = "babyseg"

	// CacheTTL is how long to cache the version check result.
	CacheTTL = 24 * time.Hour
	// RequestTimeout is the timeout for the GitHub API request.
	RequestTimeout = 5 * time.Second

	cacheKeyStable = state.KVStoreKey("versioncheck:stable")
)

// InstallMethod represents how babyseg was installed.
type InstallMethod int

const (
	InstallMethodUnknown InstallMethod = iota
	InstallMethodHomebrew
	InstallMethodDownload // direct binary download
)

// semverRegex matches semantic version format (optionally prefixed with v).
var semverRegex = regexp.MustCompile(`^v?(\d+\.\d+\.\d+.*)$`)

// githubRelease represents the GitHub API response for a release.
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// cacheData represents cached version check data.
type cacheData struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Result contains the version check result.
type Result struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateURL       string
	UpdateAvailable bool
	InstallMethod   InstallMethod
}

// Check checks for a new version of babyseg.
// Returns nil for local dev builds or when the check fails silently.
func Check(ctx context.Context) *Result {
	current := version.Get()

	// Local builds carry no release identity worth comparing.
	if current == "local" {
		return nil
	}

	if semverRegex.MatchString(current) {
		return checkStableVersion(ctx, current)
	}

	return nil
}

// checkStableVersion checks if there's a newer stable release.
func checkStableVersion(ctx context.Context, current string) *Result {
	cached, cacheAge, err := loadCache(ctx, cacheKeyStable)
	if err == nil && cacheAge < CacheTTL {
		return buildStableResult(current, cached.Version, cached.URL)
	}

	latest, releaseURL, err := fetchLatestRelease(ctx)
	if err != nil {
		// On error, return cached result if available
		if cached != nil {
			return buildStableResult(current, cached.Version, cached.URL)
		}
		return nil
	}

	saveCache(ctx, cacheKeyStable, &cacheData{
		Version: latest,
		URL:     releaseURL,
	})

	return buildStableResult(current, latest, releaseURL)
}

// buildStableResult compares releases as semantic versions.
func buildStableResult(current, latest, releaseURL string) *Result {
	updateAvailable := false
	currentVer, errCur := semver.NewVersion(strings.TrimPrefix(current, "v"))
	latestVer, errLat := semver.NewVersion(strings.TrimPrefix(latest, "v"))
	if errCur == nil && errLat == nil {
		updateAvailable = latestVer.GreaterThan(currentVer)
	}

	return &Result{
		CurrentVersion:  current,
		LatestVersion:   latest,
		UpdateURL:       releaseURL,
		UpdateAvailable: updateAvailable,
		InstallMethod:   detectInstallMethod(),
	}
}

// fetchLatestRelease fetches the latest stable release from GitHub.
func fetchLatestRelease(ctx context.Context) (string, string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", GitHubOwner, GitHubRepo)

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("github API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}

	return release.TagName, release.HTMLURL, nil
}

// loadCache loads cached data from KVStore.
// Returns the data, age since last update, and any error.
func loadCache(ctx context.Context, key state.KVStoreKey) (*cacheData, time.Duration, error) {
	kv, err := state.DefaultKVStore(ctx)
	if err != nil {
		return nil, 0, err
	}

	entry, found, err := kv.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, fmt.Errorf("cache not found")
	}

	var data cacheData
	if err := json.Unmarshal([]byte(entry.Value), &data); err != nil {
		return nil, 0, err
	}

	age := time.Since(entry.LastUsed)
	return &data, age, nil
}

// saveCache saves data to KVStore cache.
func saveCache(ctx context.Context, key state.KVStoreKey, data *cacheData) error {
	kv, err := state.DefaultKVStore(ctx)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return kv.Upsert(ctx, key, string(jsonData))
}

// detectInstallMethod tries to determine how babyseg was installed based on
// the executable path.
func detectInstallMethod() InstallMethod {
	execPath, err := os.Executable()
	if err != nil {
		return InstallMethodUnknown
	}

	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		realPath = execPath
	}

	// Homebrew keeps binaries under a Cellar prefix on every platform.
	if strings.Contains(realPath, "/Cellar/") ||
		strings.Contains(realPath, "/homebrew/") ||
		strings.Contains(realPath, "/linuxbrew/") {
		return InstallMethodHomebrew
	}

	return InstallMethodDownload
}

// PrintUpdateBanner prints an update notification if one is available.
// Called after command execution to avoid interrupting the main flow.
func PrintUpdateBanner(result *Result) {
	if result == nil || !result.UpdateAvailable {
		return
	}

	fmt.Printf("\n")
	fmt.Printf("  A new version of babyseg is available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)

	switch result.InstallMethod {
	case InstallMethodHomebrew:
		fmt.Printf("  Run: brew upgrade babyseg\n")
	case InstallMethodDownload, InstallMethodUnknown:
		fmt.Printf("  Download: %s\n", result.UpdateURL)
	}

	fmt.Printf("\n")
}
