package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// RepoDetector resolves the hosted repository of a local checkout.
type RepoDetector interface {
	DetectRepo(ctx context.Context, dir string) (string, error)
}

// remoteSlugRe extracts owner/name from HTTPS and SSH GitHub remote URLs.
var remoteSlugRe = regexp.MustCompile(`github\.com[:/]([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)

// LocalGitClient implements RepoDetector by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ RepoDetector = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s", dir, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// DetectRepo implements the RepoDetector interface using the origin remote.
func (c *LocalGitClient) DetectRepo(ctx context.Context, dir string) (string, error) {
	out, err := c.Run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL converts a GitHub remote URL into an owner/name slug.
func ParseRemoteURL(remote string) (string, error) {
	m := remoteSlugRe.FindStringSubmatch(remote)
	if m == nil {
		return "", fmt.Errorf("remote %q is not a GitHub repository", remote)
	}
	return m[1] + "/" + m[2], nil
}
