package capture

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SinesysTech/captura/capture/internal/store"
	"github.com/SinesysTech/captura/tribunal"
)

// CreateSchedule validates and stores a recurring capture, computing its
// first firing time from the configured time-of-day.
func (s *Service) CreateSchedule(ctx context.Context, sc *store.Schedule) error {
	if err := validateSchedule(sc); err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = s.newSchedID()
	}
	sc.Active = true
	sc.NextRunAt = firstFiring(s.now().In(s.cfg.Location), sc.TimeOfDay).UnixMilli()
	return s.store.InsertSchedule(ctx, sc)
}

// UpdateSchedule rewrites a schedule's definition. The next firing is
// recomputed from the (possibly changed) time-of-day.
func (s *Service) UpdateSchedule(ctx context.Context, sc *store.Schedule) error {
	if err := validateSchedule(sc); err != nil {
		return err
	}
	existing, err := s.store.GetSchedule(ctx, sc.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("capture: schedule %s not found", sc.ID)
	}
	sc.NextRunAt = firstFiring(s.now().In(s.cfg.Location), sc.TimeOfDay).UnixMilli()
	return s.store.UpdateSchedule(ctx, sc)
}

// ToggleSchedule activates or freezes a schedule. Freezing keeps next_run_at
// untouched; reactivation resumes from it.
func (s *Service) ToggleSchedule(ctx context.Context, id string, active bool) error {
	return s.store.SetScheduleActive(ctx, id, active)
}

// Schedules lists every schedule.
func (s *Service) Schedules(ctx context.Context) ([]*store.Schedule, error) {
	return s.store.ListSchedules(ctx)
}

// Schedule returns one schedule by ID, or nil when unknown.
func (s *Service) Schedule(ctx context.Context, id string) (*store.Schedule, error) {
	return s.store.GetSchedule(ctx, id)
}

// DeleteSchedule removes a schedule.
func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	return s.store.DeleteSchedule(ctx, id)
}

// TriggerSchedule fires one schedule immediately, due or not, and recomputes
// its next firing like a regular tick would.
func (s *Service) TriggerSchedule(ctx context.Context, id string) (string, error) {
	sc, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return "", err
	}
	if sc == nil {
		return "", fmt.Errorf("capture: schedule %s not found", id)
	}
	return s.fireSchedule(ctx, sc)
}

// RunScheduler evaluates due schedules on a fixed tick until ctx is done.
func (s *Service) RunScheduler(ctx context.Context) {
	s.log.Info("capture: scheduler started", "interval", s.cfg.TickInterval)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("capture: scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick fires every active schedule whose next firing time has passed. Each
// firing starts one detached run; the tick never waits on it.
func (s *Service) tick(ctx context.Context) {
	due, err := s.store.DueSchedules(ctx, s.now().UnixMilli())
	if err != nil {
		s.log.Error("capture: due-schedule query failed", "error", err)
		return
	}
	for _, sc := range due {
		if _, err := s.fireSchedule(ctx, sc); err != nil {
			s.log.Warn("capture: schedule firing failed", "schedule", sc.ID, "error", err)
		}
	}
}

// fireSchedule starts the schedule's run and stamps lastRunAt/nextRunAt.
// The firing stamp is written even when the run itself was rejected, so a
// misconfigured schedule waits for its next slot instead of hot-looping.
func (s *Service) fireSchedule(ctx context.Context, sc *store.Schedule) (string, error) {
	firedAt := s.now()

	filters := []tribunal.CaptureRequest{{Kind: tribunal.CaptureKind(sc.CaptureKind)}}
	runID, runErr := s.StartRun(ctx, sc.OperatorID, sc.CredentialIDs, filters)

	next := nextFiring(sc, firedAt.In(s.cfg.Location))
	if err := s.store.RecordScheduleRun(ctx, sc.ID, firedAt.UnixMilli(), next.UnixMilli()); err != nil {
		s.log.Error("capture: schedule stamp failed", "schedule", sc.ID, "error", err)
	}
	if runErr != nil {
		return "", fmt.Errorf("capture: schedule %s: %w", sc.ID, runErr)
	}

	s.log.Info("capture: schedule fired",
		"schedule", sc.ID, "run", runID, "next_run_at", next.Format(time.RFC3339))
	return runID, nil
}

func validateSchedule(sc *store.Schedule) error {
	if sc.OperatorID == "" || len(sc.CredentialIDs) == 0 {
		return fmt.Errorf("capture: operator_id and credential_ids are required")
	}
	switch sc.CaptureKind {
	case string(tribunal.KindDocketListing), string(tribunal.KindHearings), string(tribunal.KindPendingFilings):
	default:
		return fmt.Errorf("capture: unknown capture kind %q", sc.CaptureKind)
	}
	switch sc.Periodicity {
	case store.PeriodicityDaily:
	case store.PeriodicityEveryNDays:
		if sc.IntervalDays < 1 {
			return fmt.Errorf("capture: every-n-days needs interval_days >= 1")
		}
	default:
		return fmt.Errorf("capture: unknown periodicity %q", sc.Periodicity)
	}
	if _, _, err := parseTimeOfDay(sc.TimeOfDay); err != nil {
		return err
	}
	return nil
}

// firstFiring is the next occurrence of timeOfDay: today if still ahead,
// otherwise tomorrow.
func firstFiring(now time.Time, timeOfDay string) time.Time {
	hh, mm, _ := parseTimeOfDay(timeOfDay)
	at := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// nextFiring recomputes next_run_at after a firing: daily moves one day,
// every-N-days moves N days from the firing, both at the configured
// time-of-day.
func nextFiring(sc *store.Schedule, firedAt time.Time) time.Time {
	days := 1
	if sc.Periodicity == store.PeriodicityEveryNDays {
		days = sc.IntervalDays
	}
	hh, mm, _ := parseTimeOfDay(sc.TimeOfDay)
	base := firedAt.AddDate(0, 0, days)
	return time.Date(base.Year(), base.Month(), base.Day(), hh, mm, 0, 0, firedAt.Location())
}

func parseTimeOfDay(s string) (hh, mm int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("capture: time_of_day %q is not HH:MM", s)
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("capture: time_of_day %q is not HH:MM", s)
	}
	return hh, mm, nil
}
