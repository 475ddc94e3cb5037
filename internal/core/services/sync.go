package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SyncEngine = (*SyncEngine)(nil)

const (
	defaultSyncConcurrency = 4
	defaultLockTTL         = 5 * time.Minute
	defaultLockWait        = 30 * time.Second
	defaultLockPoll        = 250 * time.Millisecond
)

// SyncEngine turns change notifications into file events.
// For one account a pass runs:
//  1. Take the account lock
//  2. Load the stored cursor (unregistered accounts are skipped)
//  3. Fetch and decode the credential from the automation platform
//  4. Drain change pages until has_more is false
//  5. Commit the final cursor and emit one event per new file, in the configured order
type SyncEngine struct {
	accounts    driven.AccountStore
	lock        driven.DistributedLock
	codec       driven.CredentialCodec
	provider    driven.StorageProvider
	platform    driven.AutomationPlatform
	mode        domain.DeliveryMode
	concurrency int
	lockTTL     time.Duration
	lockWait    time.Duration
	lockPoll    time.Duration
	logger      *slog.Logger
}

// SyncEngineConfig holds dependencies for SyncEngine.
type SyncEngineConfig struct {
	Accounts driven.AccountStore
	Lock     driven.DistributedLock
	Codec    driven.CredentialCodec
	Provider driven.StorageProvider
	Platform driven.AutomationPlatform

	// DeliveryMode defaults to domain.DeliveryCursorFirst.
	DeliveryMode domain.DeliveryMode

	// Concurrency bounds how many accounts of one delivery sync at once.
	Concurrency int

	// LockTTL is how long a held account lock survives without renewal.
	LockTTL time.Duration
	// LockWait is how long a pass waits for a busy account before giving up.
	LockWait time.Duration
	// LockPoll is the retry interval while waiting.
	LockPoll time.Duration

	Logger *slog.Logger
}

// NewSyncEngine creates a new sync engine.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := cfg.DeliveryMode
	if mode == "" {
		mode = domain.DeliveryCursorFirst
	}

	return &SyncEngine{
		accounts:    cfg.Accounts,
		lock:        cfg.Lock,
		codec:       cfg.Codec,
		provider:    cfg.Provider,
		platform:    cfg.Platform,
		mode:        mode,
		concurrency: orDefault(cfg.Concurrency, defaultSyncConcurrency),
		lockTTL:     orDefault(cfg.LockTTL, defaultLockTTL),
		lockWait:    orDefault(cfg.LockWait, defaultLockWait),
		lockPoll:    orDefault(cfg.LockPoll, defaultLockPoll),
		logger:      logger,
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// HandleDelivery syncs every distinct account in accountIDs.
// A failing account never prevents the others from being attempted.
func (e *SyncEngine) HandleDelivery(ctx context.Context, accountIDs []string) (*domain.DeliveryResult, error) {
	ids := uniqueAccounts(accountIDs)
	results := make([]domain.AccountSyncResult, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := e.SyncAccount(ctx, id)
			results[i] = *res
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.DeliveryResult{Accounts: results}
	err := errors.Join(errs...)

	e.logger.Info("delivery processed",
		"accounts", len(ids),
		"synced", result.Count(domain.AccountSynced),
		"skipped", result.Count(domain.AccountSkipped),
		"failed", result.Count(domain.AccountFailed),
		"events", result.EventsEmitted(),
	)

	return result, err
}

func uniqueAccounts(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SyncAccount runs one pass for accountID under its lock.
// The returned result is never nil.
func (e *SyncEngine) SyncAccount(ctx context.Context, accountID string) (*domain.AccountSyncResult, error) {
	startTime := time.Now()
	res := &domain.AccountSyncResult{AccountID: accountID, Status: domain.AccountFailed}

	ctx = driven.WithLockHolder(ctx, uuid.NewString())
	lockName := domain.AccountLockName(accountID)
	if err := e.acquire(ctx, lockName); err != nil {
		return e.fail(res, startTime, fmt.Errorf("lock account: %w", err))
	}
	defer func() {
		if err := e.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
			e.logger.Warn("failed to release account lock", "account_id", accountID, "error", err)
		}
	}()

	if err := e.syncLocked(ctx, res, lockName); err != nil {
		return e.fail(res, startTime, err)
	}

	if res.Status == domain.AccountSkipped {
		e.logger.Info("unregistered account", "account_id", accountID)
		return res, nil
	}

	e.logger.Info("account synced",
		"account_id", accountID,
		"entries", res.EntriesSeen,
		"files", res.FilesFound,
		"events", res.EventsEmitted,
		"cursor_advanced", res.CursorAdvanced(),
		"duration", time.Since(startTime),
	)
	return res, nil
}

func (e *SyncEngine) fail(res *domain.AccountSyncResult, startTime time.Time, err error) (*domain.AccountSyncResult, error) {
	res.Status = domain.AccountFailed
	res.Error = err.Error()
	e.logger.Error("account sync failed",
		"account_id", res.AccountID,
		"events", res.EventsEmitted,
		"duration", time.Since(startTime),
		"error", err,
	)
	return res, fmt.Errorf("account %s: %w", res.AccountID, err)
}

func (e *SyncEngine) syncLocked(ctx context.Context, res *domain.AccountSyncResult, lockName string) error {
	rec, err := e.accounts.Get(ctx, res.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		res.Status = domain.AccountSkipped
		return nil
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	res.PreviousCursor = rec.Cursor
	res.Cursor = rec.Cursor

	token, err := e.platform.LookupCredential(ctx, res.AccountID)
	if err != nil {
		return fmt.Errorf("lookup credential: %w", err)
	}
	access, err := e.codec.Decode(token)
	if err != nil {
		return fmt.Errorf("decode credential: %w", err)
	}
	cred := domain.Credential{AccessSecret: access}

	entries, cursor, err := e.drain(ctx, cred, rec.Cursor, lockName)
	if err != nil {
		return err
	}
	res.EntriesSeen = len(entries)

	var files []domain.ChangeEntry
	for _, entry := range entries {
		if entry.IsFile() {
			files = append(files, entry)
		}
	}
	res.FilesFound = len(files)

	switch e.mode {
	case domain.DeliveryEmitFirst:
		if err := e.emit(ctx, cred, res, files); err != nil {
			return err
		}
		if err := e.commit(ctx, res, rec.Cursor, cursor); err != nil {
			return err
		}
	default:
		if err := e.commit(ctx, res, rec.Cursor, cursor); err != nil {
			return err
		}
		if err := e.emit(ctx, cred, res, files); err != nil {
			return err
		}
	}

	res.Status = domain.AccountSynced
	return nil
}

// drain follows the change listing from cursor until the provider reports no more pages.
// Each page is requested with the cursor returned by the previous one.
func (e *SyncEngine) drain(ctx context.Context, cred domain.Credential, cursor, lockName string) ([]domain.ChangeEntry, string, error) {
	var entries []domain.ChangeEntry
	for {
		page, err := e.provider.ListChangesPage(ctx, cred, cursor)
		if err != nil {
			return nil, "", fmt.Errorf("list changes: %w", err)
		}
		entries = append(entries, page.Entries...)

		if !page.HasMore {
			if page.Cursor != "" {
				cursor = page.Cursor
			}
			return entries, cursor, nil
		}
		if page.Cursor == "" || page.Cursor == cursor {
			return nil, "", fmt.Errorf("list changes: provider reported more pages without advancing the cursor")
		}
		cursor = page.Cursor

		if err := e.lock.Extend(ctx, lockName, e.lockTTL); err != nil {
			e.logger.Warn("failed to extend account lock", "lock", lockName, "error", err)
		}
	}
}

func (e *SyncEngine) commit(ctx context.Context, res *domain.AccountSyncResult, expected, next string) error {
	if next == expected {
		return nil
	}
	if err := e.accounts.UpdateCursor(ctx, res.AccountID, expected, next); err != nil {
		return fmt.Errorf("commit cursor: %w", err)
	}
	res.Cursor = next
	return nil
}

// emit posts one event per file. The first failure stops the remaining emissions.
func (e *SyncEngine) emit(ctx context.Context, cred domain.Credential, res *domain.AccountSyncResult, files []domain.ChangeEntry) error {
	for _, file := range files {
		link, err := e.provider.CreatePublicLink(ctx, cred, file.Path)
		if err != nil {
			return fmt.Errorf("create shared link for %s: %w", file.Path, err)
		}

		event := domain.SyncEvent{
			AccountID:  res.AccountID,
			SharedLink: link,
			Kind:       domain.EventKindFile,
		}
		if err := e.platform.PostEvent(ctx, event); err != nil {
			return fmt.Errorf("post event for %s: %w", file.Path, err)
		}
		res.EventsEmitted++
	}
	return nil
}

// acquire polls the lock until it is taken, LockWait elapses or ctx ends.
// Each attempt runs under the LockWait deadline so a backend that blocks
// cannot hold the pass past it.
func (e *SyncEngine) acquire(ctx context.Context, name string) error {
	waitCtx, cancel := context.WithTimeout(ctx, e.lockWait)
	defer cancel()

	for {
		ok, err := e.lock.Acquire(waitCtx, name, e.lockTTL)
		switch {
		case ok:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case waitCtx.Err() != nil:
			return domain.ErrLockTimeout
		case err != nil:
			return err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return domain.ErrLockTimeout
		case <-time.After(e.lockPoll):
		}
	}
}
