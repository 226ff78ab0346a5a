package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Show     string // digest, or "latest"
	IR       bool
}

// SnapshotDetail is the JSON payload of history --show.
type SnapshotDetail struct {
	store.Snapshot
	Prompts []store.Prompt `json:"prompts"`
	IR      any            `json:"ir,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List compiled IR snapshots",
		Long: `List the IR snapshots recorded by compile --db, oldest first.

With --show, print one snapshot and the digest of every function prompt
it contains; "latest" selects the most recent snapshot.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "snapshot database (defaults to the configured one)")
	cmd.Flags().StringVar(&opts.Show, "show", "", "show one snapshot by digest, or \"latest\"")
	cmd.Flags().BoolVar(&opts.IR, "ir", false, "include the IR with --show")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.projectConfig().Database
	}
	if dbPath == "" {
		_ = formatter.Error(ErrCodeBadArgument, "no snapshot database: pass --db or set database in the config", nil)
		return NewExitError(ExitCommandError, "no snapshot database")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
	}
	defer st.Close()

	if opts.Show != "" {
		return showSnapshot(ctx, st, opts, formatter)
	}

	snaps, err := st.ListSnapshots(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(snaps)
	}
	if len(snaps) == 0 {
		fmt.Fprintln(formatter.Writer, "No snapshots recorded")
		return nil
	}
	for _, s := range snaps {
		fmt.Fprintf(formatter.Writer, "#%d  %s  %s  %s\n", s.Seq, shortDigest(s.Digest), s.BuildID, s.Source)
	}
	return nil
}

func showSnapshot(ctx context.Context, st *store.Store, opts *HistoryOptions, formatter *OutputFormatter) error {
	var snap store.Snapshot
	var err error
	if opts.Show == "latest" {
		snap, err = st.Latest(ctx)
	} else {
		snap, err = st.ReadSnapshot(ctx, opts.Show)
	}
	if errors.Is(err, store.ErrSnapshotNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
	}

	prompts, err := st.ListPrompts(ctx, snap.Digest)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
	}

	if formatter.Format == "json" {
		detail := SnapshotDetail{Snapshot: snap, Prompts: prompts}
		if opts.IR {
			detail.IR = snap.IR
		}
		formatter.TraceID = snap.BuildID
		return formatter.Success(detail)
	}

	fmt.Fprintf(formatter.Writer, "Snapshot #%d\n", snap.Seq)
	fmt.Fprintf(formatter.Writer, "  digest:   %s\n", snap.Digest)
	fmt.Fprintf(formatter.Writer, "  build:    %s\n", snap.BuildID)
	fmt.Fprintf(formatter.Writer, "  source:   %s\n", snap.Source)
	fmt.Fprintf(formatter.Writer, "  versions: ir %s, compiler %s\n", snap.IRVersion, snap.CompilerVersion)
	if len(prompts) > 0 {
		fmt.Fprintln(formatter.Writer, "\nPrompts:")
		for _, p := range prompts {
			fmt.Fprintf(formatter.Writer, "  %s[%s]  %s\n", p.Function, p.Config, shortDigest(p.Digest))
		}
	}
	if opts.IR {
		fmt.Fprintf(formatter.Writer, "\n%s\n", snap.IR)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
