// Package queue is the orchestration engine: it owns every queue entry state
// transition and keeps each server's queue consistent under concurrent calls.
package queue

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"clinic_queue/internal/audit"
	"clinic_queue/internal/eta"
	"clinic_queue/internal/lock"
	"clinic_queue/internal/models"
)

// SystemActor is recorded for transitions made by background jobs.
const SystemActor = "system"

// Notifier fans state changes out to observers. Implementations must not block.
type Notifier interface {
	PublishServerView(view ServerView)
	PublishCalled(notice CalledNotice)
	PublishSession(session ServerSession)
}

// Auditor persists audit records. Failures are the implementation's to handle.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record)
}

// Options wires a Controller; zero fields fall back to in-process defaults.
type Options struct {
	Store    Store
	Locker   lock.Locker
	Notifier Notifier
	Auditor  Auditor
	Tracker  eta.Tracker
	Logger   logrus.FieldLogger
	// Location decides the service day boundary.
	Location     *time.Location
	Clock        func() time.Time
	LockTimeout  time.Duration
	StoreTimeout time.Duration
}

// Controller applies queue transitions and publishes the resulting views.
type Controller struct {
	store        Store
	locker       lock.Locker
	notifier     Notifier
	auditor      Auditor
	tracker      eta.Tracker
	logger       logrus.FieldLogger
	location     *time.Location
	clock        func() time.Time
	lockTimeout  time.Duration
	storeTimeout time.Duration
	newID        func() string
}

// NewController builds a Controller from opts, filling in defaults.
func NewController(opts Options) *Controller {
	c := &Controller{
		store:        opts.Store,
		locker:       opts.Locker,
		notifier:     opts.Notifier,
		auditor:      opts.Auditor,
		tracker:      opts.Tracker,
		logger:       opts.Logger,
		location:     opts.Location,
		clock:        opts.Clock,
		lockTimeout:  opts.LockTimeout,
		storeTimeout: opts.StoreTimeout,
		newID:        uuid.NewString,
	}
	if c.locker == nil {
		c.locker = lock.NewLocal()
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.auditor == nil {
		c.auditor = nopAuditor{}
	}
	if c.tracker.WindowSize == 0 {
		c.tracker = eta.NewTracker(0, 0, 0)
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.location == nil {
		c.location = time.Local
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.lockTimeout <= 0 {
		c.lockTimeout = 5 * time.Second
	}
	if c.storeTimeout <= 0 {
		c.storeTimeout = 5 * time.Second
	}
	return c
}

// Admit enqueues consumerID at the back of serverID's queue.
func (c *Controller) Admit(ctx context.Context, consumerID, serverID string) (EntryView, error) {
	if err := requireID("consumer id", consumerID); err != nil {
		return EntryView{}, err
	}
	if err := requireID("server id", serverID); err != nil {
		return EntryView{}, err
	}

	var (
		entry     models.QueueEntry
		view      ServerView
		published bool
	)
	err := c.serialized(ctx, serverID, func(ctx context.Context) error {
		err := c.store.Atomic(ctx, func(tx Tx) error {
			server, err := c.loadServer(ctx, tx, serverID)
			if err != nil {
				return err
			}
			if !server.IsAccepting {
				return ErrServerUnavailable
			}
			if _, err := tx.ActiveEntryForConsumer(ctx, consumerID); err == nil {
				return ErrAlreadyQueued
			} else if !errors.Is(err, ErrRecordNotFound) {
				return err
			}

			now := c.now()
			day := c.serviceDay(now)
			last, err := tx.MaxSequence(ctx, serverID, day)
			if err != nil {
				return err
			}
			entry = models.QueueEntry{
				ID:             c.newID(),
				ConsumerID:     consumerID,
				ServerID:       serverID,
				ServiceDay:     day,
				SequenceNumber: last + 1,
				Status:         models.StatusWaiting,
				JoinedAt:       now,
			}
			entry.SyncGuards()
			if err := tx.CreateEntry(ctx, &entry); err != nil {
				if errors.Is(err, ErrDuplicateActiveConsumer) {
					return ErrAlreadyQueued
				}
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
		view, published = c.broadcast(ctx, serverID)
		return nil
	})
	if err != nil {
		return EntryView{}, classify(err, "admit")
	}

	c.logger.WithFields(logrus.Fields{
		"server":   serverID,
		"consumer": consumerID,
		"entry":    entry.ID,
		"sequence": entry.SequenceNumber,
	}).Info("consumer admitted")
	c.record(ctx, consumerID, audit.JoinDetails{
		EntryID:        entry.ID,
		ServerID:       serverID,
		ConsumerID:     consumerID,
		ServiceDay:     entry.ServiceDay,
		SequenceNumber: entry.SequenceNumber,
	})

	if published {
		if ev, found := view.Find(entry.ID); found {
			return ev, nil
		}
	}
	return EntryView{QueueEntry: entry}, nil
}

// Advance moves the oldest waiting entry of serverID into serving.
func (c *Controller) Advance(ctx context.Context, serverID, actor string) (models.QueueEntry, error) {
	if err := requireID("server id", serverID); err != nil {
		return models.QueueEntry{}, err
	}

	var called models.QueueEntry
	err := c.serialized(ctx, serverID, func(ctx context.Context) error {
		err := c.store.Atomic(ctx, func(tx Tx) error {
			if _, err := c.loadServer(ctx, tx, serverID); err != nil {
				return err
			}
			entries, err := tx.ActiveEntries(ctx, serverID)
			if err != nil {
				return err
			}
			sortByArrival(entries)

			var next *models.QueueEntry
			for i := range entries {
				switch entries[i].Status {
				case models.StatusServing:
					return ErrAlreadyServing
				case models.StatusWaiting:
					if next == nil {
						next = &entries[i]
					}
				}
			}
			if next == nil {
				return ErrQueueEmpty
			}

			now := c.now()
			called = *next
			called.Status = models.StatusServing
			called.ServingStartedAt = &now
			called.SyncGuards()
			if err := tx.UpdateEntryStatus(ctx, &called, models.StatusWaiting); err != nil {
				if errors.Is(err, ErrDuplicateServing) {
					return ErrAlreadyServing
				}
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}
		c.notifier.PublishCalled(CalledNotice{
			ConsumerID:     called.ConsumerID,
			ServerID:       serverID,
			EntryID:        called.ID,
			SequenceNumber: called.SequenceNumber,
			Message:        "It's your turn. Please proceed.",
		})
		c.broadcast(ctx, serverID)
		return nil
	})
	if err != nil {
		return models.QueueEntry{}, classify(err, "advance")
	}

	c.logger.WithFields(logrus.Fields{
		"server":   serverID,
		"entry":    called.ID,
		"consumer": called.ConsumerID,
	}).Info("entry called")
	c.record(ctx, actor, audit.ServingDetails{
		EntryID:        called.ID,
		ServerID:       serverID,
		ConsumerID:     called.ConsumerID,
		SequenceNumber: called.SequenceNumber,
	})
	return called, nil
}

// Complete finishes the serving entry and feeds its duration to the server's moving average.
func (c *Controller) Complete(ctx context.Context, entryID, actor string) (Completion, error) {
	entry, err := c.Entry(ctx, entryID)
	if err != nil {
		return Completion{}, err
	}
	if entry.Status != models.StatusServing {
		return Completion{}, invalidState(entry.Status, models.StatusServed)
	}

	var result Completion
	err = c.serialized(ctx, entry.ServerID, func(ctx context.Context) error {
		err := c.store.Atomic(ctx, func(tx Tx) error {
			current, err := c.loadEntry(ctx, tx, entryID)
			if err != nil {
				return err
			}
			if current.Status != models.StatusServing {
				return invalidState(current.Status, models.StatusServed)
			}
			server, err := c.loadServer(ctx, tx, current.ServerID)
			if err != nil {
				return err
			}

			now := c.now()
			started := current.JoinedAt
			if current.ServingStartedAt != nil {
				started = *current.ServingStartedAt
			}
			minutes := int(math.Round(now.Sub(started).Minutes()))

			done := current
			done.Status = models.StatusServed
			done.CompletedAt = &now
			done.SyncGuards()
			if err := tx.UpdateEntryStatus(ctx, &done, models.StatusServing); err != nil {
				return err
			}

			window, avg, accepted := c.tracker.Record(server.RecentServiceMinutes, minutes)
			if accepted {
				if err := tx.UpdateServerStats(ctx, server.ID, window, avg); err != nil {
					return err
				}
			}
			result = Completion{
				Entry:                 done,
				DurationMinutes:       minutes,
				DurationAccepted:      accepted,
				AverageServiceMinutes: avg,
			}
			return nil
		})
		if err != nil {
			return err
		}
		c.broadcast(ctx, entry.ServerID)
		return nil
	})
	if err != nil {
		return Completion{}, classify(err, "complete")
	}

	log := c.logger.WithFields(logrus.Fields{
		"server":   result.Entry.ServerID,
		"entry":    entryID,
		"duration": result.DurationMinutes,
		"average":  result.AverageServiceMinutes,
	})
	if result.DurationAccepted {
		log.Info("entry served")
	} else {
		log.Warn("entry served, duration outside admissible range not recorded")
	}
	c.record(ctx, actor, audit.ServedDetails{
		EntryID:               entryID,
		ServerID:              result.Entry.ServerID,
		DurationMinutes:       result.DurationMinutes,
		DurationAccepted:      result.DurationAccepted,
		AverageServiceMinutes: result.AverageServiceMinutes,
	})
	return result, nil
}

// Skip marks a waiting or serving entry as skipped (no-show).
func (c *Controller) Skip(ctx context.Context, entryID, actor string) (models.QueueEntry, error) {
	entry, from, err := c.terminate(ctx, entryID, models.StatusSkipped, nil)
	if err != nil {
		return models.QueueEntry{}, err
	}
	c.logger.WithFields(logrus.Fields{"server": entry.ServerID, "entry": entryID, "from": from}).Info("entry skipped")
	c.record(ctx, actor, audit.SkippedDetails{EntryID: entryID, ServerID: entry.ServerID, FromStatus: from})
	c.publish(ctx, entry.ServerID)
	return entry, nil
}

// Cancel withdraws a waiting or serving entry. Consumers may only cancel
// their own entries; authorization is enforced at the edge and requestedBy is
// recorded for the audit trail.
func (c *Controller) Cancel(ctx context.Context, entryID, requestedBy string) (models.QueueEntry, error) {
	entry, from, err := c.terminate(ctx, entryID, models.StatusCancelled, nil)
	if err != nil {
		return models.QueueEntry{}, err
	}
	c.logger.WithFields(logrus.Fields{"server": entry.ServerID, "entry": entryID, "from": from, "by": requestedBy}).Info("entry cancelled")
	c.record(ctx, requestedBy, audit.CancelledDetails{
		EntryID:     entryID,
		ServerID:    entry.ServerID,
		FromStatus:  from,
		RequestedBy: requestedBy,
	})
	c.publish(ctx, entry.ServerID)
	return entry, nil
}

// CancelOwn cancels entryID only if it belongs to consumerID.
func (c *Controller) CancelOwn(ctx context.Context, entryID, consumerID string) (models.QueueEntry, error) {
	owned := func(e models.QueueEntry) error {
		if e.ConsumerID != consumerID {
			return notFound("entry", entryID)
		}
		return nil
	}
	entry, from, err := c.terminate(ctx, entryID, models.StatusCancelled, owned)
	if err != nil {
		return models.QueueEntry{}, err
	}
	c.logger.WithFields(logrus.Fields{"server": entry.ServerID, "entry": entryID, "from": from, "by": consumerID}).Info("entry cancelled by consumer")
	c.record(ctx, consumerID, audit.CancelledDetails{
		EntryID:     entryID,
		ServerID:    entry.ServerID,
		FromStatus:  from,
		RequestedBy: consumerID,
	})
	c.publish(ctx, entry.ServerID)
	return entry, nil
}

// terminate is the shared compare-and-set path for Skip and Cancel. It does
// not take the server lock: the conditional write alone decides the race.
func (c *Controller) terminate(ctx context.Context, entryID string, to models.Status, check func(models.QueueEntry) error) (models.QueueEntry, models.Status, error) {
	if err := requireID("entry id", entryID); err != nil {
		return models.QueueEntry{}, "", err
	}
	var (
		result models.QueueEntry
		from   models.Status
	)
	err := c.retryOnConflict(ctx, func() error {
		return c.withStoreTimeout(ctx, func(ctx context.Context) error {
			return c.store.Atomic(ctx, func(tx Tx) error {
				current, err := c.loadEntry(ctx, tx, entryID)
				if err != nil {
					return err
				}
				if check != nil {
					if err := check(current); err != nil {
						return err
					}
				}
				if !current.Status.CanTransition(to) {
					return invalidState(current.Status, to)
				}
				next := current
				next.Status = to
				next.SyncGuards()
				if err := tx.UpdateEntryStatus(ctx, &next, current.Status); err != nil {
					return err
				}
				result, from = next, current.Status
				return nil
			})
		})
	})
	if err != nil {
		return models.QueueEntry{}, "", classify(err, string(to))
	}
	return result, from, nil
}

// ServerView returns the live ordered queue of serverID.
func (c *Controller) ServerView(ctx context.Context, serverID string) (ServerView, error) {
	if err := requireID("server id", serverID); err != nil {
		return ServerView{}, err
	}
	var view ServerView
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		server, err := c.loadServer(ctx, c.store, serverID)
		if err != nil {
			return err
		}
		entries, err := c.store.ActiveEntries(ctx, serverID)
		if err != nil {
			return err
		}
		view = buildView(server, entries)
		return nil
	})
	if err != nil {
		return ServerView{}, classify(err, "server view")
	}
	return view, nil
}

// ConsumerStatus reports the consumer's active entry with position and ETA, if any.
func (c *Controller) ConsumerStatus(ctx context.Context, consumerID string) (ConsumerStatus, error) {
	if err := requireID("consumer id", consumerID); err != nil {
		return ConsumerStatus{}, err
	}
	var status ConsumerStatus
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		entry, err := c.store.ActiveEntryForConsumer(ctx, consumerID)
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		server, err := c.loadServer(ctx, c.store, entry.ServerID)
		if err != nil {
			return err
		}
		entries, err := c.store.ActiveEntries(ctx, entry.ServerID)
		if err != nil {
			return err
		}
		ev, ok := buildView(server, entries).Find(entry.ID)
		if !ok {
			// Moved to a terminal state between the two reads.
			return nil
		}
		status = ConsumerStatus{Entry: &ev, Server: &server}
		return nil
	})
	if err != nil {
		return ConsumerStatus{}, classify(err, "consumer status")
	}
	return status, nil
}

// Entry loads a single entry by id.
func (c *Controller) Entry(ctx context.Context, entryID string) (models.QueueEntry, error) {
	if err := requireID("entry id", entryID); err != nil {
		return models.QueueEntry{}, err
	}
	var entry models.QueueEntry
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		entry, err = c.loadEntry(ctx, c.store, entryID)
		return err
	})
	if err != nil {
		return models.QueueEntry{}, classify(err, "load entry")
	}
	return entry, nil
}

// SetAccepting opens or closes serverID for new entries. Entries already
// queued are unaffected and can still be advanced.
func (c *Controller) SetAccepting(ctx context.Context, serverID string, accepting bool, actor string) (ServerSession, error) {
	if err := requireID("server id", serverID); err != nil {
		return ServerSession{}, err
	}
	var (
		session ServerSession
		changed bool
	)
	err := c.serialized(ctx, serverID, func(ctx context.Context) error {
		changed = false
		err := c.store.Atomic(ctx, func(tx Tx) error {
			server, err := c.loadServer(ctx, tx, serverID)
			if err != nil {
				return err
			}
			session = ServerSession{ServerID: server.ID, ServerName: server.Name, IsAccepting: accepting}
			if server.IsAccepting == accepting {
				return nil
			}
			changed = true
			return tx.SetAccepting(ctx, serverID, accepting)
		})
		if err != nil || !changed {
			return err
		}
		c.notifier.PublishSession(session)
		c.broadcast(ctx, serverID)
		return nil
	})
	if err != nil {
		return ServerSession{}, classify(err, "set accepting")
	}
	if !changed {
		return session, nil
	}

	c.logger.WithFields(logrus.Fields{"server": serverID, "accepting": accepting}).Info("server session changed")
	c.record(ctx, actor, audit.SessionDetails{ServerID: serverID, IsAccepting: accepting})
	return session, nil
}

// ListServers returns the server directory with waiting counts, optionally
// restricted to servers currently accepting new entries.
func (c *Controller) ListServers(ctx context.Context, acceptingOnly bool) ([]ServerSummary, error) {
	out := []ServerSummary{}
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		servers, err := c.store.ListServers(ctx)
		if err != nil {
			return err
		}
		waiting, err := c.store.WaitingCounts(ctx)
		if err != nil {
			return err
		}
		for _, s := range servers {
			if acceptingOnly && !s.IsAccepting {
				continue
			}
			out = append(out, ServerSummary{Server: s, TotalWaiting: waiting[s.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "list servers")
	}
	return out, nil
}

// Server returns one directory row.
func (c *Controller) Server(ctx context.Context, serverID string) (ServerSummary, error) {
	if err := requireID("server id", serverID); err != nil {
		return ServerSummary{}, err
	}
	var summary ServerSummary
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		server, err := c.loadServer(ctx, c.store, serverID)
		if err != nil {
			return err
		}
		entries, err := c.store.ActiveEntries(ctx, serverID)
		if err != nil {
			return err
		}
		summary = ServerSummary{Server: server, TotalWaiting: buildView(server, entries).TotalWaiting}
		return nil
	})
	if err != nil {
		return ServerSummary{}, classify(err, "load server")
	}
	return summary, nil
}

// DayStats summarizes entry counts per server for serviceDay (today when empty).
func (c *Controller) DayStats(ctx context.Context, serviceDay string) (DayStats, error) {
	if serviceDay == "" {
		serviceDay = c.Today()
	} else if _, err := time.Parse("2006-01-02", serviceDay); err != nil {
		return DayStats{}, validationError("service day must be YYYY-MM-DD, got %q", serviceDay)
	}

	stats := DayStats{ServiceDay: serviceDay, Totals: map[models.Status]int{}}
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		servers, err := c.store.ListServers(ctx)
		if err != nil {
			return err
		}
		counts, err := c.store.CountByStatus(ctx, serviceDay)
		if err != nil {
			return err
		}
		index := make(map[string]int, len(servers))
		for i, s := range servers {
			index[s.ID] = i
			stats.Servers = append(stats.Servers, ServerStats{
				ServerID:              s.ID,
				ServerName:            s.Name,
				Department:            s.Department,
				IsAccepting:           s.IsAccepting,
				AverageServiceMinutes: s.AverageServiceMinutes,
			})
		}
		for _, row := range counts {
			stats.Totals[row.Status] += row.Count
			i, ok := index[row.ServerID]
			if !ok {
				continue
			}
			s := &stats.Servers[i]
			switch row.Status {
			case models.StatusWaiting:
				s.Waiting += row.Count
			case models.StatusServing:
				s.Serving += row.Count
			case models.StatusServed:
				s.Served += row.Count
			case models.StatusSkipped:
				s.Skipped += row.Count
			case models.StatusCancelled:
				s.Cancelled += row.Count
			}
		}
		return nil
	})
	if err != nil {
		return DayStats{}, classify(err, "day stats")
	}
	return stats, nil
}

// ExpireStale cancels entries left active from previous service days.
// It returns how many entries were expired.
func (c *Controller) ExpireStale(ctx context.Context) (int, error) {
	today := c.Today()
	var stale []models.QueueEntry
	err := c.withStoreTimeout(ctx, func(ctx context.Context) error {
		var err error
		stale, err = c.store.StaleActiveEntries(ctx, today)
		return err
	})
	if err != nil {
		return 0, classify(err, "list stale entries")
	}

	expired := 0
	touched := map[string]struct{}{}
	var firstErr error
	for _, e := range stale {
		entry, from, err := c.terminate(ctx, e.ID, models.StatusCancelled, nil)
		if err != nil {
			if errors.Is(err, ErrInvalidState) {
				continue // finished concurrently
			}
			c.logger.WithError(err).WithField("entry", e.ID).Warn("failed to expire entry")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		expired++
		touched[entry.ServerID] = struct{}{}
		c.record(ctx, SystemActor, audit.ExpiredDetails{
			EntryID:    entry.ID,
			ServerID:   entry.ServerID,
			ServiceDay: entry.ServiceDay,
			FromStatus: from,
		})
	}
	for serverID := range touched {
		c.publish(ctx, serverID)
	}
	if expired > 0 {
		c.logger.WithFields(logrus.Fields{"expired": expired, "before": today}).Info("stale entries expired")
	}
	return expired, firstErr
}

// Today is the current service day in the configured location.
func (c *Controller) Today() string {
	return c.serviceDay(c.now())
}

func (c *Controller) now() time.Time {
	return c.clock().UTC()
}

func (c *Controller) serviceDay(t time.Time) string {
	return t.In(c.location).Format("2006-01-02")
}

// serialized runs fn under serverID's lock with a store deadline, retrying
// once if it loses a race.
func (c *Controller) serialized(ctx context.Context, serverID string, fn func(context.Context) error) error {
	return c.retryOnConflict(ctx, func() error {
		lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
		unlock, err := c.locker.Lock(lockCtx, "server:"+serverID)
		cancel()
		if err != nil {
			return transient(err, "acquire server lock")
		}
		defer unlock()
		return c.withStoreTimeout(ctx, fn)
	})
}

func (c *Controller) retryOnConflict(ctx context.Context, fn func() error) error {
	err := classify(fn(), "store")
	if errors.Is(err, ErrConflict) && ctx.Err() == nil {
		c.logger.WithError(err).Debug("conflict, retrying once")
		err = classify(fn(), "store")
	}
	return err
}

func (c *Controller) withStoreTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func (c *Controller) loadServer(ctx context.Context, r Reader, serverID string) (models.Server, error) {
	server, err := r.GetServer(ctx, serverID)
	if errors.Is(err, ErrRecordNotFound) {
		return models.Server{}, notFound("server", serverID)
	}
	return server, err
}

func (c *Controller) loadEntry(ctx context.Context, r Reader, entryID string) (models.QueueEntry, error) {
	entry, err := r.GetEntry(ctx, entryID)
	if errors.Is(err, ErrRecordNotFound) {
		return models.QueueEntry{}, notFound("entry", entryID)
	}
	return entry, err
}

// publish broadcasts serverID's view for transitions committed outside the
// server lock. The lock orders the snapshot against every other publisher, so
// a view never reaches observers after a newer one.
func (c *Controller) publish(ctx context.Context, serverID string) {
	ctx = context.WithoutCancel(ctx)
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	unlock, err := c.locker.Lock(lockCtx, "server:"+serverID)
	cancel()
	if err != nil {
		c.logger.WithError(err).WithField("server", serverID).Warn("failed to lock server for publishing")
		return
	}
	defer unlock()
	c.broadcast(ctx, serverID)
}

// broadcast reads serverID's view and hands it to the notifier. The caller
// holds the server lock. Failures are logged: the transition already stands.
func (c *Controller) broadcast(ctx context.Context, serverID string) (ServerView, bool) {
	view, err := c.ServerView(context.WithoutCancel(ctx), serverID)
	if err != nil {
		c.logger.WithError(err).WithField("server", serverID).Warn("failed to build server view for publishing")
		return ServerView{}, false
	}
	c.notifier.PublishServerView(view)
	return view, true
}

func (c *Controller) record(ctx context.Context, actor string, details audit.Details) {
	if actor == "" {
		actor = SystemActor
	}
	c.auditor.Record(ctx, audit.Record{Actor: actor, Timestamp: c.now(), Details: details})
}

func requireID(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return validationError("%s is required", name)
	}
	if len(v) > 64 {
		return validationError("%s is too long", name)
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) PublishServerView(ServerView) {}
func (nopNotifier) PublishCalled(CalledNotice)   {}
func (nopNotifier) PublishSession(ServerSession) {}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, audit.Record) {}
