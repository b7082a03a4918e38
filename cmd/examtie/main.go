package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/breadtm/examtie/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	envPath := flag.String("env", "", "override .env path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	stateDir := flag.String("state", "", "override state directory (optional)")
	checkMinutes := flag.Int("check", 0, "token validity check interval in minutes (optional, defaults to 30m)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		EnvPath:   *envPath,
		PrefsPath: *prefsPath,
		StateDir:  *stateDir,
	}
	if check := *checkMinutes; check > 0 {
		opts.CheckEvery = check
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "examtie: %v\n", err)
		return 1
	}
	return 0
}
