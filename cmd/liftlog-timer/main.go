// Command liftlog-timer runs a rest countdown against a liftlog server. It
// opens the rest window on the named set, counts it down locally, and closes
// the window when time runs out or the user skips with Enter. The active
// window is persisted to a local SQLite file so a restarted timer resumes the
// countdown instead of losing the rest window.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liftlog/liftlog/internal/client"
	"github.com/liftlog/liftlog/internal/resttimer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "liftlog server URL (e.g. https://liftlog.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("LIFTLOG_AUTH_API_KEY"), "API key (defaults to LIFTLOG_AUTH_API_KEY)")
	sessionStr := flag.String("session", "", "session ID")
	exerciseStr := flag.String("exercise", "", "session exercise ID")
	setStr := flag.String("set", "", "set ID")
	duration := flag.Duration("duration", 90*time.Second, "rest duration")
	resume := flag.Bool("resume", false, "resume the persisted countdown instead of starting a new one")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-timer", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-timer -server <URL> -session <id> -exercise <id> -set <id> [-duration 90s]\n")
		fmt.Fprintf(os.Stderr, "       liftlog-timer -server <URL> -resume\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	*serverURL = strings.TrimRight(*serverURL, "/")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := client.OpenStateDB(filepath.Join(homeDir, ".liftlog-timer"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	c := client.NewClient(*serverURL, *apiKey)
	ctx := context.Background()

	window, remaining, err := resolveWindow(ctx, c, state, *resume, *sessionStr, *exerciseStr, *setStr, *duration)
	if err != nil {
		log.Error("cannot start countdown", "error", err)
		os.Exit(1)
	}

	countdown := resttimer.New(remaining, func(ctx context.Context) error {
		_, err := c.EndRest(ctx, window.SessionID, window.ExerciseID, window.SetID)
		return err
	},
		resttimer.WithLogger(log),
		resttimer.WithTick(func(left time.Duration) {
			fmt.Printf("\rrest: %3ds remaining (Enter to skip) ", int(left.Seconds()))
		}),
	)
	countdown.Start(ctx)

	// Enter skips the rest of the window.
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		countdown.Skip(ctx)
	}()

	<-countdown.Done()
	fmt.Println("\rrest over                              ")

	if err := state.ClearWindow(window.SetID); err != nil {
		log.Warn("clearing persisted window failed", "error", err)
	}
}

// resolveWindow either resumes the persisted window or opens a new one on the
// server and persists it.
func resolveWindow(ctx context.Context, c *client.Client, state *client.StateDB, resume bool, sessionStr, exerciseStr, setStr string, duration time.Duration) (client.Window, time.Duration, error) {
	if resume {
		window, ok, err := state.ActiveWindow()
		if err != nil {
			return client.Window{}, 0, err
		}
		if !ok {
			return client.Window{}, 0, fmt.Errorf("no persisted rest window to resume")
		}
		remaining := time.Duration(window.DurationSec)*time.Second - time.Since(window.StartedAt)
		if remaining < time.Second {
			remaining = time.Second
		}
		return window, remaining, nil
	}

	sessionID, err := uuid.Parse(sessionStr)
	if err != nil {
		return client.Window{}, 0, fmt.Errorf("invalid -session: %w", err)
	}
	exerciseID, err := uuid.Parse(exerciseStr)
	if err != nil {
		return client.Window{}, 0, fmt.Errorf("invalid -exercise: %w", err)
	}
	setID, err := uuid.Parse(setStr)
	if err != nil {
		return client.Window{}, 0, fmt.Errorf("invalid -set: %w", err)
	}

	set, err := c.StartRest(ctx, sessionID, exerciseID, setID)
	if err != nil {
		return client.Window{}, 0, fmt.Errorf("starting rest window: %w", err)
	}

	startedAt := time.Now().UTC()
	if set.RestStartTime != nil {
		startedAt = *set.RestStartTime
	}
	window := client.Window{
		SessionID:   sessionID,
		ExerciseID:  exerciseID,
		SetID:       setID,
		StartedAt:   startedAt,
		DurationSec: int(duration.Seconds()),
	}
	if err := state.SaveWindow(window); err != nil {
		return client.Window{}, 0, fmt.Errorf("persisting rest window: %w", err)
	}

	remaining := duration - time.Since(startedAt)
	if remaining < time.Second {
		remaining = time.Second
	}
	return window, remaining, nil
}
