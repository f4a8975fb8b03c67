// Package scheduler fires the daily card post.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"card_bot/internal/model"
	"card_bot/internal/poster"
)

// Poster posts a card.
type Poster interface {
	Post(ctx context.Context, now time.Time, forced bool) (poster.Result, error)
}

// DayTracker reads and updates the date of the last scheduled post.
type DayTracker interface {
	LastPostedDate() string
	MarkPosted(ctx context.Context, now time.Time) error
}

// Scheduler checks once a minute whether the daily post is due.
type Scheduler struct {
	poster Poster
	days   DayTracker
	hour   int
	minute int
	loc    *time.Location
	log    *slog.Logger
	expr   string
}

// New creates a Scheduler posting daily at hour:minute in loc.
func New(p Poster, days DayTracker, hour, minute int, loc *time.Location, log *slog.Logger) *Scheduler {
	return &Scheduler{
		poster: p,
		days:   days,
		hour:   hour,
		minute: minute,
		loc:    loc,
		log:    log,
		expr:   "* * * * *",
	}
}

// Run ticks on every minute boundary, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.expr, func() { s.Tick(ctx, time.Now()) }); err != nil {
		s.log.Error("schedule tick", "expr", s.expr, "error", err)
		return
	}

	c.Start()
	s.log.Info("scheduler started", "post_time", s.clock(), "timezone", s.loc.String())

	<-ctx.Done()
	<-c.Stop().Done()
}

// Tick posts the daily card if now is the configured minute and nothing
// has been posted by the scheduler today. It reports whether it posted.
// The persisted last posted date is the only guard, so repeated ticks in
// the same minute and restarts never post twice.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	now = now.In(s.loc)
	if now.Hour() != s.hour || now.Minute() != s.minute {
		return false
	}

	today := model.DateOf(now)
	if s.days.LastPostedDate() == today {
		s.log.Debug("already posted today", "date", today)
		return false
	}

	res, err := s.poster.Post(ctx, now, false)
	if err != nil {
		s.log.Error("daily post", "date", today, "error", err)
		return false
	}

	if err := s.days.MarkPosted(ctx, now); err != nil {
		s.log.Error("mark posted", "date", today, "card", res.Card, "error", err)
	}
	return true
}

// Next returns the next scheduled post time after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// LastPostedDate returns the date of the last scheduled post, or "".
func (s *Scheduler) LastPostedDate() string {
	return s.days.LastPostedDate()
}

func (s *Scheduler) clock() string {
	return time.Date(0, 1, 1, s.hour, s.minute, 0, 0, time.UTC).Format("15:04")
}
