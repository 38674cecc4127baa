// Command dispatcher runs the multi-account transaction dispatcher: an HTTP
// admission front door, one Sender Loop per live account, a Confirmation
// Watcher, a Recovery Dispatcher on its own disjoint account pool, and
// periodic housekeeping, all supervised so that one component's exit tears
// the rest down cleanly (spec.md §5).
package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Ash20pk/breakchain-sub000/internal/account"
	"github.com/Ash20pk/breakchain-sub000/internal/chain"
	"github.com/Ash20pk/breakchain-sub000/internal/config"
	"github.com/Ash20pk/breakchain-sub000/internal/confirm"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatcher"
	"github.com/Ash20pk/breakchain-sub000/internal/dispatchererr"
	"github.com/Ash20pk/breakchain-sub000/internal/housekeeping"
	"github.com/Ash20pk/breakchain-sub000/internal/ingress"
	"github.com/Ash20pk/breakchain-sub000/internal/notify"
	"github.com/Ash20pk/breakchain-sub000/internal/recovery"
	"github.com/Ash20pk/breakchain-sub000/internal/sender"
	"github.com/Ash20pk/breakchain-sub000/internal/sideeffects"
	"github.com/Ash20pk/breakchain-sub000/internal/store"
)

const httpShutdownTimeout = 5 * time.Second

func main() {
	app := &cli.App{
		Name:  "dispatcher",
		Usage: "multi-account nonce-ordered chain transaction dispatcher",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to TOML config file"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dispatcher:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the dispatchererr taxonomy to spec.md §6's process exit
// codes: 1 for config errors, 2 for store errors, 3 for anything else fatal
// at startup.
func exitCode(err error) int {
	switch {
	case dispatchererr.Is(err, dispatchererr.ConfigInvalid):
		return 1
	case dispatchererr.Is(err, dispatchererr.StoreUnavailable):
		return 2
	default:
		return 3
	}
}

func run(cctx *cli.Context) error {
	logger := log.New("component", "main")
	log.SetDefault(logger)

	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewPostgres(ctx, cfg.StoreURL, cfg.StorePoolMax)
	if err != nil {
		return err
	}
	defer st.Close()

	chainID := big.NewInt(cfg.ChainID)
	liveChain, err := chain.DialEthClient(ctx, cfg.RPCURL, cfg.ContractAddress, chainID)
	if err != nil {
		return err
	}
	recoveryChain, err := chain.DialEthClient(ctx, cfg.RPCURL, cfg.ContractAddress, chainID)
	if err != nil {
		return err
	}

	livePool, liveKeys, err := buildPool(liveChain, cfg.AccountKeys)
	if err != nil {
		return err
	}
	recoveryPool, recoveryKeys, err := buildPool(recoveryChain, cfg.RecoveryAccountKeys)
	if err != nil {
		return err
	}
	if livePool.SharesKeysWith(recoveryPool) {
		return dispatchererr.Wrap(dispatchererr.ConfigInvalid,
			"account_keys and recovery_account_keys must be disjoint")
	}

	notifier := notify.New()
	sfx := sideeffects.New(st.Pool())

	senderCfg := sender.Config{
		TickInterval:   cfg.QueueProcessInterval(),
		Cooldown:       cfg.TransactionCooldown(),
		FaultThreshold: cfg.FaultThreshold,
	}

	loops := make(map[int]*sender.Loop, livePool.Len())
	wakers := make(map[int]func(), livePool.Len())
	for _, acc := range livePool.All() {
		loop := sender.New(acc, liveKeys[acc.Index], st, liveChain, notifier, senderCfg)
		loops[acc.Index] = loop
		wakers[acc.Index] = loop.Wake
	}

	d := dispatcher.New(st, livePool, notifier, sfx, wakers)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: ingress.New(d)}

	watcher := confirm.New(st, liveChain, notifier, 200)

	recoveryCfg := recovery.Config{
		Interval:   cfg.RecoveryInterval(),
		Batch:      cfg.RecoveryBatch,
		MaxRetries: uint32(cfg.MaxRetries),
		AgeLimit:   cfg.TxAgeLimit(),
	}
	recoveryKeyLookup := func(index int) string { return recoveryKeys[index] }
	recoveryDispatcher := recovery.New(st, recoveryChain, recoveryPool, recoveryKeyLookup, notifier, recoveryCfg)

	housekeepingRunner := housekeeping.New(st, housekeeping.Config{
		PendingStale: cfg.PendingStale(),
		Retention:    cfg.Retention(),
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, loop := range loops {
		loop := loop
		g.Go(func() error { return loop.Run(gctx) })
	}
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return recoveryDispatcher.Run(gctx) })
	g.Go(func() error { return housekeepingRunner.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	logger.Info("dispatcher: started", "live_accounts", livePool.Len(), "recovery_accounts", recoveryPool.Len(), "listen", cfg.ListenAddr)
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func buildPool(c chain.Client, keys []string) (*account.Pool, map[int]string, error) {
	addresses := make([]string, len(keys))
	keyByIndex := make(map[int]string, len(keys))
	for i, key := range keys {
		addr, err := c.AddressFromKey(key)
		if err != nil {
			return nil, nil, dispatchererr.Wrapf(dispatchererr.ConfigInvalid, "account %d: %v", i, err)
		}
		addresses[i] = addr
		keyByIndex[i] = key
	}
	return account.NewPool(addresses), keyByIndex, nil
}
