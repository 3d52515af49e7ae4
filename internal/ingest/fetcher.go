package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Fetcher retrieves the raw assets for a comic id. On success it leaves a
// new directory of image files somewhere under the pipeline's working
// directory; its output naming scheme is its own business, which is why the
// pipeline locates the result by directory diff.
type Fetcher interface {
	Fetch(ctx context.Context, comicID string) error
}

// CommandFetcher shells out to an external download tool, the comic id
// appended as the last argument. A non-zero exit is a fetch failure. The
// timeout is the only hang bound in the whole pipeline.
type CommandFetcher struct {
	Command string
	Args    []string
	Dir     string // working directory where output appears
	Timeout time.Duration
}

func (f CommandFetcher) Fetch(ctx context.Context, comicID string) error {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, f.Args...), comicID)
	cmd := exec.CommandContext(ctx, f.Command, args...)
	cmd.Dir = f.Dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s: %w: %s", f.Command, err, bytes.TrimSpace(out))
	}
	return nil
}
