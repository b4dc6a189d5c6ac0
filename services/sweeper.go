package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"hotel-booking/models"
	"hotel-booking/payment"
	"hotel-booking/repository"
)

// Locker grants a lease; release is nil when someone else holds it.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), err error)
}

type SweeperOptions struct {
	Interval    time.Duration
	GraceWindow time.Duration
	BatchSize   int
	// Purge hard-deletes abandoned bookings instead of cancelling them.
	Purge bool
}

// Sweeper releases rooms held by card bookings nobody paid for within the grace window.
type Sweeper struct {
	Store   repository.Store
	Gateway payment.Gateway
	Lock    Locker
	Log     logrus.FieldLogger
	Opts    SweeperOptions
	Now     func() time.Time
}

type SweepResult struct {
	Scanned  int `json:"scanned"`
	Released int `json:"released"`
	Purged   int `json:"purged"`
	// Skipped bookings changed state before they could be expired.
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	NotLeader bool `json:"notLeader,omitempty"`
}

func NewSweeper(store repository.Store, gateway payment.Gateway, lock Locker, log logrus.FieldLogger, opts SweeperOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Minute
	}
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = 15 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Sweeper{
		Store:   store,
		Gateway: gateway,
		Lock:    lock,
		Log:     log.WithField("component", "sweeper"),
		Opts:    opts,
		Now:     time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.Log.WithFields(logrus.Fields{
		"interval": s.Opts.Interval.String(),
		"grace":    s.Opts.GraceWindow.String(),
		"purge":    s.Opts.Purge,
	}).Info("expiry sweeper started")

	ticker := time.NewTicker(s.Opts.Interval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.Log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	res, err := s.SweepOnce(ctx)
	if err != nil {
		s.Log.WithError(err).Error("sweep failed")
		return
	}
	if res.Scanned > 0 {
		s.Log.WithFields(logrus.Fields{
			"scanned":  res.Scanned,
			"released": res.Released,
			"purged":   res.Purged,
			"skipped":  res.Skipped,
			"failed":   res.Failed,
		}).Info("sweep finished")
	}
}

// SweepOnce processes one batch of stale bookings. A failure on one booking is
// counted and logged without stopping the rest.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if s.Lock != nil {
		release, err := s.Lock.Acquire(ctx, s.Opts.Interval)
		switch {
		case err != nil:
			s.Log.WithError(err).Warn("sweeper lock unavailable, sweeping anyway")
		case release == nil:
			res.NotLeader = true
			return res, nil
		default:
			defer release()
		}
	}

	cutoff := s.Now().Add(-s.Opts.GraceWindow)
	stale, err := s.Store.ListStaleCardBookings(ctx, cutoff, s.Opts.BatchSize)
	if err != nil {
		return res, fmt.Errorf("list stale bookings: %w", err)
	}
	res.Scanned = len(stale)

	for i := range stale {
		if ctx.Err() != nil {
			break
		}
		b := stale[i]
		outcome, err := s.expire(ctx, &b)
		log := s.Log.WithFields(logrus.Fields{"booking_id": b.ID, "room_id": b.RoomID})
		switch {
		case err != nil:
			res.Failed++
			log.WithError(err).Error("failed to expire booking")
		case outcome == outcomePurged:
			res.Purged++
			res.Released++
		case outcome == outcomeCancelled:
			res.Released++
		default:
			res.Skipped++
		}
	}
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCancelled
	outcomePurged
)

func (s *Sweeper) expire(ctx context.Context, b *models.Booking) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = outcomeSkipped, fmt.Errorf("panic expiring booking: %v", r)
		}
	}()

	if paid := s.closeSession(ctx, b); paid {
		var changed bool
		if terr := s.Store.Transaction(ctx, func(tx repository.Store) error {
			var merr error
			changed, merr = markPaid(ctx, tx, b.ID)
			return merr
		}); terr != nil {
			return outcomeSkipped, terr
		}
		if changed {
			s.Log.WithField("booking_id", b.ID).Info("late payment found while sweeping, booking confirmed")
		}
		return outcomeSkipped, nil
	}

	out = outcomeSkipped
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		if s.Opts.Purge {
			ok, err := tx.PurgeBookingIf(ctx, b.ID, unpaidCard)
			if err != nil || !ok {
				return err
			}
			out = outcomePurged
		} else {
			ok, err := tx.UpdateBookingIf(ctx, b.ID, unpaidCard, repository.BookingUpdate{
				Status:        statusPtr(models.BookingCancelled),
				PaymentStatus: paymentPtr(models.PaymentFailed),
			})
			if err != nil || !ok {
				return err
			}
			out = outcomeCancelled
		}

		found, err := tx.SetRoomAvailability(ctx, b.RoomID, true)
		if err != nil {
			return err
		}
		if !found {
			s.Log.WithField("room_id", b.RoomID).Debug("room already removed, nothing to release")
		}
		return nil
	})
	if err != nil {
		return outcomeSkipped, err
	}
	return out, nil
}

// closeSession expires the checkout session so it can no longer be paid. It
// reports true when the gateway says the session was paid after all.
func (s *Sweeper) closeSession(ctx context.Context, b *models.Booking) bool {
	return expireSession(ctx, s.Gateway, 10*time.Second, s.Log, b)
}
