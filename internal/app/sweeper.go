package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds a single cleanup run.
const sweepTimeout = 30 * time.Second

// SessionSweeper periodically removes expired sessions.
type SessionSweeper struct {
	app  *App
	cron *cron.Cron
}

// NewSessionSweeper schedules CleanExpiredSessions using a cron spec such as "@every 10m".
func (app *App) NewSessionSweeper(schedule string) (*SessionSweeper, error) {
	sweeper := &SessionSweeper{app: app, cron: cron.New()}
	if _, err := sweeper.cron.AddFunc(schedule, sweeper.Sweep); err != nil {
		app.log.Sugar().Errorf("Invalid session sweep schedule %q: %s", schedule, err)
		return nil, err
	}
	return sweeper, nil
}

// Sweep runs one cleanup.
func (sweeper *SessionSweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	sweeper.app.CleanExpiredSessions(ctx)
}

// Start runs the schedule in its own goroutine.
func (sweeper *SessionSweeper) Start() {
	sweeper.cron.Start()
}

// Stop halts the schedule and waits for a running cleanup to finish.
func (sweeper *SessionSweeper) Stop() {
	<-sweeper.cron.Stop().Done()
}
