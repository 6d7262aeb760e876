package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/taskforge/taskforge/jobs"
)

// SpoolInspector is the subset of *asynq.Inspector used by the spool commands.
type SpoolInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
}

// SpoolCLI inspects and replays the audit retry spool.
type SpoolCLI struct {
	inspector SpoolInspector
}

// NewSpoolCLI wraps inspector.
func NewSpoolCLI(inspector SpoolInspector) (*SpoolCLI, error) {
	if inspector == nil {
		return nil, errors.New("spool cli: inspector not configured")
	}
	return &SpoolCLI{inspector: inspector}, nil
}

// SpoolStats summarises the audit queue.
type SpoolStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// Options controls command output.
type Options struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *Options) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// StatsCommand prints the spool backlog. It exits 10 when entries have been
// archived after exhausting their retries.
func (c *SpoolCLI) StatsCommand(ctx context.Context, opts Options) int {
	opts.defaults()
	info, err := c.inspector.GetQueueInfo(jobs.QueueAudit)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "spool stats: %v\n", err)
		return 1
	}
	stats := SpoolStats{Queue: jobs.QueueAudit}
	if info != nil {
		stats = SpoolStats{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
		}
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "spool stats: encode json: %v\n", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	}
	if stats.Archived > 0 {
		return 10
	}
	return 0
}

// ReplayCommand moves archived audit entries back to pending.
func (c *SpoolCLI) ReplayCommand(ctx context.Context, opts Options) int {
	opts.defaults()
	n, err := c.inspector.RunAllArchivedTasks(jobs.QueueAudit)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "spool replay: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "requeued %d archived audit entries\n", n)
	return 0
}

// Run dispatches a spool subcommand.
func (c *SpoolCLI) Run(ctx context.Context, args []string, opts Options) int {
	opts.defaults()
	if len(args) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "usage: worker spool stats [--json] | replay")
		return 2
	}
	rest := args[1:]
	for _, a := range rest {
		if a == "--json" {
			opts.JSONOutput = true
		}
	}
	switch args[0] {
	case "stats":
		return c.StatsCommand(ctx, opts)
	case "replay":
		return c.ReplayCommand(ctx, opts)
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "spool: unknown command %q\n", args[0])
		return 2
	}
}
