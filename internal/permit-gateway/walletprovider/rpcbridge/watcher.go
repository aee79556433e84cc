package rpcbridge

import (
	"context"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// Watch polls the wallet until ctx is done and emits AccountsChanged and
// ChainChanged for differences against the last seen state. The event channel
// is closed on return.
func (b *Bridge) Watch(ctx context.Context) {
	defer func() {
		b.mu.Lock()
		b.closed = true
		close(b.events)
		b.mu.Unlock()
	}()

	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = b.pollInterval
	cfg.InitialDelayBeforeRetrying = b.pollInterval / 10

	timer := time.NewTimer(b.pollInterval)
	defer timer.Stop()
	polls := 0
	for {
		timer.Reset(b.pollInterval)
		select {
		case <-ctx.Done():
			log.Info("wallet watcher exiting", "polls", polls)
			return
		case <-timer.C:
			_, _ = retry.Retry(ctx, cfg,
				func(ctx context.Context) ([]interface{}, error) {
					polls++
					return nil, b.poll(ctx)
				},
				nil,
				"poll wallet state")
		}
	}
}

func (b *Bridge) poll(ctx context.Context) error {
	accounts, err := b.Accounts(ctx)
	if err != nil {
		return err
	}
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return err
	}
	for _, ev := range b.observe(accounts, chainID) {
		b.emit(ev)
	}
	return nil
}

// observe records the polled state and returns the events it implies. The
// first observation only sets the baseline.
func (b *Bridge) observe(accounts []common.Address, chainID uint64) []wtypes.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.haveState {
		b.accounts = slices.Clone(accounts)
		b.chainID = chainID
		b.haveState = true
		return nil
	}

	var out []wtypes.Event
	if !slices.Equal(b.accounts, accounts) {
		b.accounts = slices.Clone(accounts)
		out = append(out, wtypes.AccountsChanged{Accounts: slices.Clone(accounts)})
	}
	if b.chainID != chainID {
		b.chainID = chainID
		out = append(out, wtypes.ChainChanged{ChainID: chainID})
	}
	return out
}
