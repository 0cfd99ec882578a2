package cli

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	graw "github.com/jamesprial/go-reddit-stream"
	"github.com/jamesprial/go-reddit-stream/pkg/stream"
)

// newSubmissionsCommand constructs the `submissions` command.
func newSubmissionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submissions SUBREDDIT...",
		Short: "Print new posts as they are submitted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreams(cmd, a, args, (*graw.Client).StreamSubmissions)
		},
	}
	cmd.Flags().Int("max-items", 0, "Stop after N items (0 = run until interrupted)")
	return cmd
}

// newCommentsCommand constructs the `comments` command.
func newCommentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments SUBREDDIT...",
		Short: "Print new comments as they are posted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreams(cmd, a, args, (*graw.Client).StreamComments)
		},
	}
	cmd.Flags().Int("max-items", 0, "Stop after N items (0 = run until interrupted)")
	return cmd
}

// runStreams runs one stream per subreddit until the command context is done
// or max-items items were printed.
func runStreams[T any](
	cmd *cobra.Command,
	a *app,
	subreddits []string,
	open func(c *graw.Client, subreddit string, cfg *stream.Config) (*stream.Stream[T, string], error),
) error {
	maxItems, _ := cmd.Flags().GetInt("max-items")

	client, err := a.client()
	if err != nil {
		return err
	}
	if err := client.Connect(cmd.Context()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := &lineWriter{enc: json.NewEncoder(cmd.OutOrStdout()), max: maxItems}

	streams := make([]*stream.Stream[T, string], 0, len(subreddits))
	for _, sub := range subreddits {
		s, err := open(client, sub, a.settings.StreamConfig())
		if err != nil {
			return err
		}
		s.Output.Attach(func(ctx context.Context, item T) {
			more, err := out.write(item)
			if err != nil {
				a.logger.Error("failed to write item", "stream", s.Name(), "error", err)
			}
			if !more || err != nil {
				cancel()
			}
		})
		streams = append(streams, s)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range streams {
		a.logger.Info("starting stream", "stream", s.Name())
		g.Go(func() error { return s.Run(gctx) })
	}

	err = g.Wait()
	if out.err != nil {
		return out.err
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// lineWriter encodes values as JSON lines, stopping after max values when
// max is positive. It is shared by streams running concurrently.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	max int
	n   int
	err error
}

// write encodes v unless the limit was already reached. It reports whether
// more values may follow.
func (w *lineWriter) write(v any) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil || (w.max > 0 && w.n >= w.max) {
		return false, nil
	}
	if err := w.enc.Encode(v); err != nil {
		w.err = err
		return false, err
	}
	w.n++
	return w.max <= 0 || w.n < w.max, nil
}
