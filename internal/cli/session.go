package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/resource-calendar/internal/application"
	"github.com/example/resource-calendar/internal/config"
	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence/sqlite"
	"github.com/example/resource-calendar/internal/scheduler"
)

// session is one opened data directory.
type session struct {
	ctx     context.Context
	store   *application.EventStore
	archive *sqlite.Archive
	print   printer
}

// open loads the data directory. The snapshot archive is opened only when
// withArchive is set.
func (o *RootOptions) open(cmd *cobra.Command, withArchive bool) (*session, error) {
	logger := o.logger(cmd.ErrOrStderr())
	ctx := logging.ContextWithLogger(cmd.Context(), logger)
	if ctx == nil {
		ctx = logging.ContextWithLogger(context.Background(), logger)
	}

	var constraints *scheduler.Constraints
	if o.cfg.RulesFile != "" {
		var err error
		if constraints, err = config.LoadRules(o.cfg.RulesFile); err != nil {
			return nil, WrapExitError(ExitCommandError, "rules", err)
		}
	}

	s := &session{ctx: ctx, print: printer{format: o.Format, out: cmd.OutOrStdout()}}
	opts := application.Options{
		DataDir:      o.cfg.DataDir,
		Constraints:  constraints,
		UpcomingDays: o.cfg.UpcomingDays,
		Now:          o.Now,
		Logger:       logger,
	}
	if withArchive {
		archive, err := sqlite.Open(ctx, o.cfg.ArchivePath, sqlite.WithLogger(logger), sqlite.WithClock(o.Now))
		if err != nil {
			return nil, fail(err)
		}
		s.archive = archive
		opts.Archive = archive
	}

	store, err := application.Open(ctx, opts)
	if err != nil {
		_ = s.close()
		return nil, fail(err)
	}
	s.store = store
	return s, nil
}

func (s *session) close() error {
	if s.archive != nil {
		return s.archive.Close()
	}
	return nil
}

// run opens a session, calls fn and closes the session.
func (o *RootOptions) run(cmd *cobra.Command, withArchive bool, fn func(s *session) error) error {
	s, err := o.open(cmd, withArchive)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}

// fail attaches an exit code to an operation error.
func fail(err error) error {
	if err == nil {
		return nil
	}
	kind := application.ErrorKind(err)
	code := ExitCommandError
	switch kind {
	case "validation", "duplicate", "conflict", "not_found", "rule_violation", "invalid_document":
		code = ExitFailure
	}
	return WrapExitError(code, kind, err)
}
