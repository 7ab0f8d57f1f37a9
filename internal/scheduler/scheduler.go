// Package scheduler runs the recurring automation sweeps: daily check-in,
// resin alerts, and the data-retention maintenance pass. A single ticker
// drives all three; each tick re-derives which windows are open from the
// wall clock, so a missed tick never causes a double fire later.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"genshin_assistant/internal/config"
	"genshin_assistant/internal/delivery"
	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/metrics"
	"genshin_assistant/internal/model"
	"genshin_assistant/internal/notify"
	"genshin_assistant/internal/service"
	"genshin_assistant/internal/storage"
	"genshin_assistant/internal/store/sqlite"
)

const (
	sweepDaily       = "daily_checkin"
	sweepResin       = "resin_alert"
	sweepMaintenance = "maintenance"

	pruneCredentials = "credentials"
	pruneAuthExpired = "auth_expired"
	pruneDelivery    = "delivery"
)

type Deps struct {
	Accounts *service.AccountService
	Queries  *service.QueryService
	Actions  *service.ActionService

	Credentials   *storage.CredentialStore
	Subscriptions *storage.SubscriptionStore
	Tracker       *storage.UsageTracker
	History       *sqlite.Store

	Resolver delivery.Resolver
	Notifier notify.Notifier
	Metrics  *metrics.Collector
	Bus      *logbus.Bus
}

type Scheduler struct {
	cfg  config.ScheduleConfig
	deps Deps

	now func() time.Time
}

func New(cfg config.ScheduleConfig, deps Deps) *Scheduler {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Scheduler{cfg: cfg, deps: deps, now: time.Now}
}

// Run blocks until ctx is cancelled. Sweeping does not start until ready
// is closed; tables are already loaded at that point, but the process is
// not yet serving and early sends would be lost.
func (s *Scheduler) Run(ctx context.Context, ready <-chan struct{}) {
	select {
	case <-ready:
	case <-ctx.Done():
		return
	}
	s.deps.Bus.Log("info", "scheduler started", map[string]any{
		"tickMin":     s.cfg.TickIntervalMin,
		"checkInHour": s.cfg.CheckInHour,
	})

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx, s.now())
		}
	}
}

func (s *Scheduler) sweepOnce(ctx context.Context, now time.Time) {
	width := s.cfg.TickIntervalMin
	if inDailyWindow(now, s.cfg.CheckInHour, width) {
		s.runDailySweep(ctx, now)
	}
	if inResinWindow(now, s.cfg.CheckInHour, width) {
		s.runResinSweep(ctx, now)
	}
	if inMaintenanceWindow(now, s.cfg.MaintenanceHour, width) {
		s.runMaintenance(ctx, now)
	}
	s.deps.Tracker.Persist()
}

func (s *Scheduler) runDailySweep(ctx context.Context, now time.Time) {
	s.deps.Metrics.RecordSweep(sweepDaily)
	subs := s.deps.Subscriptions.All(model.KindDailyCheckIn)
	s.deps.Bus.Publish(logbus.TypeSweepState, logbus.LogData{
		Level:  "info",
		Msg:    "daily check-in sweep started",
		Fields: map[string]any{"subscribers": len(subs)},
	})

	summary := notify.SweepFinishedEvent{At: now.UnixMilli(), Kind: sweepDaily, Processed: len(subs)}
	for i, sub := range subs {
		if i > 0 && !s.throttle(ctx) {
			return
		}
		s.deps.Metrics.RecordSubscriber(sweepDaily)

		target, ok := s.resolve(model.KindDailyCheckIn, sub, &summary)
		if !ok {
			continue
		}
		if _, err := s.deps.Accounts.Gate(sub.UserID, true, false); err != nil {
			s.prune(model.KindDailyCheckIn, sub.UserID, pruneCredentials, err.Error())
			summary.Pruned++
			continue
		}

		result := s.deps.Actions.ClaimDailyReward(ctx, sub.UserID, service.ClaimOptions{
			Honkai:    sub.WithHonkai,
			Scheduled: true,
		})
		if err := target.Send(ctx, delivery.Message{Text: s.formatText(sub, result.Message)}); err != nil {
			s.prune(model.KindDailyCheckIn, sub.UserID, pruneDelivery, err.Error())
			summary.Pruned++
			summary.Failed++
			continue
		}
		summary.Delivered++
		if result.AuthExpired {
			s.prune(model.KindDailyCheckIn, sub.UserID, pruneAuthExpired, result.Message)
			summary.Pruned++
		}
	}
	s.deps.Notifier.NotifySweepFinished(ctx, summary)
}

func (s *Scheduler) runResinSweep(ctx context.Context, now time.Time) {
	s.deps.Metrics.RecordSweep(sweepResin)
	subs := s.deps.Subscriptions.All(model.KindResinAlert)

	summary := notify.SweepFinishedEvent{At: now.UnixMilli(), Kind: sweepResin, Processed: len(subs)}
	for i, sub := range subs {
		if i > 0 && !s.throttle(ctx) {
			return
		}
		s.deps.Metrics.RecordSubscriber(sweepResin)

		target, ok := s.resolve(model.KindResinAlert, sub, &summary)
		if !ok {
			continue
		}
		if _, err := s.deps.Accounts.Gate(sub.UserID, true, false); err != nil {
			s.prune(model.KindResinAlert, sub.UserID, pruneCredentials, err.Error())
			summary.Pruned++
			continue
		}

		notes, err := s.deps.Queries.Notes(ctx, sub.UserID, true)
		if err == nil && notes == nil {
			// Resin below threshold; nothing to say.
			continue
		}

		var msg delivery.Message
		if err != nil {
			msg.Text = s.formatText(sub, fmt.Sprintf("Resin check failed: %s", err.Error()))
		} else {
			msg.Text = s.formatText(sub, fmt.Sprintf(
				"Resin is at %d/%d, go spend it!", notes.CurrentResin, notes.MaxResin))
			msg.Payload = notes
		}
		if sendErr := target.Send(ctx, msg); sendErr != nil {
			s.prune(model.KindResinAlert, sub.UserID, pruneDelivery, sendErr.Error())
			summary.Pruned++
			summary.Failed++
			continue
		}
		summary.Delivered++
		if service.AuthExpired(err) {
			s.prune(model.KindResinAlert, sub.UserID, pruneAuthExpired, err.Error())
			summary.Pruned++
		}
	}
	s.deps.Notifier.NotifySweepFinished(ctx, summary)
}

// runMaintenance flushes the activity table and drops every user whose
// last activity is more than the retention window ago. Removal is total:
// credentials, activity, both subscription tables, and history.
func (s *Scheduler) runMaintenance(ctx context.Context, now time.Time) {
	s.deps.Metrics.RecordSweep(sweepMaintenance)
	s.deps.Tracker.Persist()

	window := s.cfg.Expiry()
	expired := 0
	for _, userID := range s.deps.Credentials.UserIDs() {
		if !s.deps.Tracker.Expired(userID, now, window) {
			continue
		}
		s.deps.Credentials.Remove(userID)
		s.deps.Tracker.Remove(userID)
		s.deps.Subscriptions.Remove(model.KindDailyCheckIn, userID)
		s.deps.Subscriptions.Remove(model.KindResinAlert, userID)
		if s.deps.History != nil {
			if err := s.deps.History.DeleteUser(ctx, userID); err != nil {
				s.deps.Bus.UserLog("warn", userID, "history cleanup failed", map[string]any{"error": err.Error()})
			}
		}
		s.deps.Metrics.RecordExpiredUser()
		s.deps.Bus.UserLog("info", userID, "removed inactive user", nil)
		expired++
	}
	s.deps.Notifier.NotifySweepFinished(ctx, notify.SweepFinishedEvent{
		At: now.UnixMilli(), Kind: sweepMaintenance, Processed: expired, Pruned: expired,
	})
}

func (s *Scheduler) resolve(kind model.SubscriptionKind, sub model.Subscription, summary *notify.SweepFinishedEvent) (delivery.Target, bool) {
	target, err := s.deps.Resolver.Resolve(sub.ChannelID)
	if err != nil {
		s.prune(kind, sub.UserID, pruneDelivery, err.Error())
		summary.Pruned++
		summary.Failed++
		return nil, false
	}
	return target, true
}

func (s *Scheduler) prune(kind model.SubscriptionKind, userID, reason, detail string) {
	s.deps.Subscriptions.Remove(kind, userID)
	s.deps.Metrics.RecordPrune(reason)
	s.deps.Bus.Publish(logbus.TypePruned, logbus.LogData{
		Level:  "info",
		UserID: userID,
		Msg:    "subscription pruned",
		Fields: map[string]any{"kind": string(kind), "reason": reason, "detail": detail},
	})
}

func (s *Scheduler) formatText(sub model.Subscription, text string) string {
	if sub.Mention {
		return fmt.Sprintf("<@%s> %s", sub.UserID, text)
	}
	return text
}

// throttle spaces subscribers out so one sweep cannot hammer the upstream
// or flood the delivery channel. Returns false when the context dies.
func (s *Scheduler) throttle(ctx context.Context) bool {
	gap := s.cfg.SubscriberGap()
	if gap <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
