// Package vcs reads commit metadata from the local git checkout.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/nhle/jissue/internal/source"
)

// Git runs git commands in Dir, or the working directory when Dir is
// empty.
type Git struct {
	Dir string
	// Binary defaults to "git".
	Binary string
}

// CommitMessage returns the full message of rev.
func (g *Git) CommitMessage(ctx context.Context, rev string) (string, error) {
	out, err := g.run(ctx, "show", "-s", "--format=%B", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the checked out branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &source.CommandError{
			Command: fmt.Sprintf("%s %s", bin, strings.Join(args, " ")),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.String(), nil
}
