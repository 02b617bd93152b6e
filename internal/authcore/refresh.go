package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/teamarr/teamarr/internal/core"
)

// errAccountError is the outcome error when Dispatcharr itself reports the
// account's refresh as status=error.
var errAccountError = errors.New("authcore: account refresh reported status=error")

// AccountStatus is the subset of an M3U account's refresh state the polling
// loop watches for.
type AccountStatus string

const (
	AccountIdle     AccountStatus = "idle"
	AccountFetching AccountStatus = "fetching"
	AccountParsing  AccountStatus = "parsing"
	AccountError    AccountStatus = "error"
	AccountSuccess  AccountStatus = "success"
	AccountDisabled AccountStatus = "disabled"
)

// AccountState is what RefreshAccounts needs to know about one account
// before and during a refresh.
type AccountState struct {
	AccountID int64
	UpdatedAt time.Time
}

// AccountGateway is the narrow surface RefreshAccounts needs from the
// Dispatcharr client: trigger a refresh, and poll current state.
type AccountGateway interface {
	TriggerRefresh(ctx context.Context, accountID int64) error
	GetAccountState(ctx context.Context, accountID int64) (status AccountStatus, updatedAt time.Time, err error)
}

// RefreshOptions configures the fan-out/poll phase.
type RefreshOptions struct {
	SkipIfRecent   time.Duration // accounts with UpdatedAt within this window are skipped entirely
	PollInterval   time.Duration
	PollTimeout    time.Duration
}

// RefreshAccounts dispatches a concurrent refresh trigger per account (one
// goroutine per account via conc.WaitGroup, the same "dispatch N, wait for
// N" shape the pack's media-control services use), then polls each
// account's status/updated_at on a fixed cadence — single-threaded — until
// it changes, errors, or the per-batch timeout elapses.
func RefreshAccounts(ctx context.Context, gw AccountGateway, accounts []AccountState, opts RefreshOptions) []core.AccountRefreshOutcome {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 120 * time.Second
	}

	outcomes := make([]core.AccountRefreshOutcome, len(accounts))
	pending := make([]int, 0, len(accounts))
	now := time.Now()

	var wg conc.WaitGroup
	for i, acct := range accounts {
		i, acct := i, acct
		if opts.SkipIfRecent > 0 && !acct.UpdatedAt.IsZero() && now.Sub(acct.UpdatedAt) < opts.SkipIfRecent {
			outcomes[i] = core.AccountRefreshOutcome{AccountID: acct.AccountID, Skipped: true}
			continue
		}
		pending = append(pending, i)
		wg.Go(func() {
			if err := gw.TriggerRefresh(ctx, acct.AccountID); err != nil {
				outcomes[i] = core.AccountRefreshOutcome{AccountID: acct.AccountID, Err: err}
			}
		})
	}
	wg.Wait()

	// Drop any accounts whose trigger already failed from the polling set.
	stillPending := pending[:0]
	for _, i := range pending {
		if outcomes[i].Err == nil {
			stillPending = append(stillPending, i)
		}
	}

	pollStates(ctx, gw, accounts, outcomes, stillPending, opts)
	return outcomes
}

// pollStates runs the single-threaded polling loop over the pending set at
// a fixed cadence until each account completes, errors, or the batch
// deadline elapses.
func pollStates(ctx context.Context, gw AccountGateway, accounts []AccountState, outcomes []core.AccountRefreshOutcome, pending []int, opts RefreshOptions) {
	if len(pending) == 0 {
		return
	}
	deadline := time.Now().Add(opts.PollTimeout)
	remaining := make(map[int]bool, len(pending))
	for _, i := range pending {
		remaining[i] = true
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for len(remaining) > 0 {
		if time.Now().After(deadline) || ctx.Err() != nil {
			for i := range remaining {
				outcomes[i].Err = context.DeadlineExceeded
			}
			return
		}
		for i := range remaining {
			status, updatedAt, err := gw.GetAccountState(ctx, accounts[i].AccountID)
			if err != nil {
				outcomes[i].Err = err
				delete(remaining, i)
				continue
			}
			outcomes[i].Status = string(status)
			switch {
			case status == AccountError:
				outcomes[i].Err = errAccountError
				delete(remaining, i)
			case status == AccountSuccess, status == AccountIdle && !updatedAt.Equal(accounts[i].UpdatedAt):
				outcomes[i].Succeeded = true
				delete(remaining, i)
			}
		}
		if len(remaining) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			for i := range remaining {
				outcomes[i].Err = ctx.Err()
			}
			return
		case <-ticker.C:
		}
	}
}
