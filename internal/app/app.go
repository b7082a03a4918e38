package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/breadtm/examtie/internal/bookmarks"
	"github.com/breadtm/examtie/internal/broadcast"
	"github.com/breadtm/examtie/internal/config"
	"github.com/breadtm/examtie/internal/examtie"
	"github.com/breadtm/examtie/internal/prefs"
	"github.com/breadtm/examtie/internal/provider"
	"github.com/breadtm/examtie/internal/rolecache"
	"github.com/breadtm/examtie/internal/session"
	"github.com/breadtm/examtie/internal/streak"
	"github.com/breadtm/examtie/internal/toast"
	"github.com/breadtm/examtie/internal/tokenstore"
	"github.com/breadtm/examtie/internal/ui"
)

// Options configure the ExamTie application.
type Options struct {
	EnvPath    string // optional .env file; empty probes ./.env
	PrefsPath  string // overrides the configured prefs path
	StateDir   string // overrides the configured state directory
	CheckEvery int    // token validity check interval in minutes; zero uses default
}

// Run boots the ExamTie TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.EnvPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PrefsPath != "" {
		cfg.PrefsPath = opts.PrefsPath
	}
	if opts.StateDir != "" {
		cfg.StateDir = opts.StateDir
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	client, err := examtie.NewClient(cfg.APIBaseURL)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	providers := provider.New(cfg.ProviderPath())
	client.SetHeaderSource(func() http.Header {
		return providers.Current().Headers()
	})

	tokens := tokenstore.New(cfg.TokenPath())
	roles := rolecache.New(cfg.RoleCachePath())
	sess := session.New(client, tokens, roles)

	pub := broadcast.NewPublisher(cfg.SyncPath())
	marks := bookmarks.New(client, sess, pub, cfg.SyncPath())
	stk := streak.New(client, sess)

	userPrefs := prefs.New(cfg.PrefsPath)
	toasts := toast.NewQueue()

	stopMarks := marks.Start(ctx)
	defer stopMarks()
	stopStreak := stk.Start()
	defer stopStreak()

	sess.Initialize(ctx)

	interval := defaultCheckInterval
	if opts.CheckEvery > 0 {
		interval = time.Duration(opts.CheckEvery) * time.Minute
	}
	StartValidityPoller(ctx, sess, interval)

	uiOpts := ui.Options{
		Context:   ctx,
		Session:   sess,
		Bookmarks: marks,
		Streak:    stk,
		Toasts:    toasts,
		Prefs:     userPrefs,
	}
	return ui.Run(uiOpts)
}
