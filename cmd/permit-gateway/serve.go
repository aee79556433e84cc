package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/urfave/cli/v2"

	gatewayconfig "github.com/quantumauth-io/permit-gateway/cmd/permit-gateway/config"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/balances"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chainclient"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/ethwallet/keystore"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/helpers"
	gatewayhttp "github.com/quantumauth-io/permit-gateway/internal/permit-gateway/http"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/metrics"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/session"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/store"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/walletprovider/local"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/walletprovider/rpcbridge"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

const passwordEnv = "PERMIT_GATEWAY_KEYSTORE_PASSWORD"

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the wallet session API",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			log.Fatal("failed to parse config", "error", err)
		}
		return runServe(cctx.Context, cfg)
	},
}

func loadConfig(cctx *cli.Context) (*gatewayconfig.Config, error) {
	paths := cctx.StringSlice("config-dir")
	if len(paths) == 0 {
		paths = gatewayconfig.DefaultPaths()
	}
	return gatewayconfig.Load(paths...)
}

func runServe(parent context.Context, cfg *gatewayconfig.Config) error {
	log.Info("permit-gateway",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}
	pool, err := chains.NewClientPool(registry, chains.WithDialRetry(5*time.Second))
	if err != nil {
		return err
	}
	defer pool.Close()

	provider, closeProvider, err := openProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	client, err := chainclient.New(registry, pool, provider, chainclient.WithDisplayDecimals(cfg.Balances.DisplayDecimals))
	if err != nil {
		return err
	}
	agg, err := balances.NewAggregator(registry, client, cfg.BalanceConfig(), m)
	if err != nil {
		return err
	}
	signer, err := signing.NewService(provider, client, signing.Config{
		Statement:      cfg.Session.OwnershipStatement,
		AllowUnlimited: cfg.Permits.AllowUnlimited,
	})
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("store close failed", "error", err)
		}
	}()

	policy, err := cfg.PermitPolicy()
	if err != nil {
		return err
	}
	sess, err := session.New(session.Config{
		RequiredChainID: cfg.Session.RequiredChainID,
		Permits:         policy,
	}, session.Deps{
		Provider:  provider,
		Registry:  registry,
		Chains:    client,
		Balances:  agg,
		Signer:    signer,
		Principal: session.StaticPrincipal(cfg.Session.Principal),
		Sink:      db,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("session event loop stopped", "error", err)
		}
	}()

	router := gatewayhttp.NewRouter(gatewayhttp.NewHandler(sess, registry), cfg.Server.AllowedOrigins, promReg)
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "session", sess.ID(), "requiredChainId", cfg.Session.RequiredChainID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("HTTP server gracefully stopped")
	}
	return nil
}

// openProvider builds the wallet the session talks to.
func openProvider(ctx context.Context, cfg *gatewayconfig.Config) (wtypes.Provider, func(), error) {
	switch cfg.Wallet.Mode {
	case gatewayconfig.WalletModeRPC:
		b, err := rpcbridge.Dial(ctx, cfg.Wallet.RPCURL, rpcbridge.WithPollInterval(cfg.Wallet.PollInterval))
		if err != nil {
			return nil, nil, err
		}
		go b.Watch(ctx)
		log.Info("using json-rpc wallet", "url", cfg.Wallet.RPCURL, "pollInterval", cfg.Wallet.PollInterval.String())
		return b, b.Close, nil

	default:
		ks, err := keystore.NewStore(cfg.Wallet.KeystorePath)
		if err != nil {
			return nil, nil, err
		}
		pw, err := keystorePassword("Keystore password: ")
		if err != nil {
			return nil, nil, err
		}
		defer helpers.ZeroBytes(pw)

		w, err := ks.Ensure(pw)
		if err != nil {
			return nil, nil, err
		}

		approver := local.TerminalApprover()
		if cfg.Wallet.Approve == gatewayconfig.ApproveAuto {
			approver = local.AutoApprove
		}
		log.Info("using local wallet", "address", w.Address().Hex(), "keystore", ks.Path, "chainId", cfg.Wallet.ChainID)
		return local.New(w, cfg.Wallet.ChainID, local.WithApprover(approver)), func() {}, nil
	}
}

func envPassword() bool { return os.Getenv(passwordEnv) != "" }

func keystorePassword(prompt string) ([]byte, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		b := []byte(pw)
		if err := helpers.ValidatePassword(b); err != nil {
			return nil, err
		}
		return b, nil
	}
	return helpers.PromptPassword(prompt)
}
