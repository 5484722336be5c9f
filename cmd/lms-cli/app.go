package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/chainlms-net/lms/chain"
	_ "github.com/chainlms-net/lms/chain/db"
	_ "github.com/chainlms-net/lms/chain/memory"
	"github.com/chainlms-net/lms/config"
	"github.com/chainlms-net/lms/contract"
	"github.com/chainlms-net/lms/core"
	"github.com/chainlms-net/lms/query"
	"github.com/chainlms-net/lms/txflow"
	"github.com/chainlms-net/lms/wallet"
)

// defaultAccounts back the wallet when the config lists none.
var defaultAccounts = []string{
	"0x00000000000000000000000000000000000000aa",
	"0x00000000000000000000000000000000000000bb",
}

// app wires one command invocation: config, chain backend, wallet session,
// contract binding, aggregator and orchestrator.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  *chain.Backend
	session  *wallet.Session
	identity *wallet.Identity
	lms      *contract.LMSBinding
	source   contract.ExamSource
	queries  *query.Aggregator
	flow     *txflow.Orchestrator
}

// newApp builds the full client stack and connects the wallet session.
func newApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.Env == "local" || cfg.Env == "dev" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := chain.NewStore(chain.StoreType(cfg.Chain.Store), map[string]any{
		"db_path": cfg.Chain.DBPath,
	})
	if err != nil {
		return nil, fmt.Errorf("open chain store: %w", err)
	}

	lmsAddr, err := core.ParseAddress(cfg.LMSAddress)
	if err != nil {
		return nil, fmt.Errorf("lms_address: %w", err)
	}

	accountStrs := cfg.Chain.Accounts
	if len(accountStrs) == 0 {
		accountStrs = defaultAccounts
	}
	accounts := make([]core.Address, 0, len(accountStrs))
	for _, s := range accountStrs {
		addr, err := core.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("chain.accounts: %w", err)
		}
		accounts = append(accounts, addr)
	}

	backend := chain.NewBackend(store, lmsAddr, accounts, logger)
	session := wallet.NewSession(backend, logger)

	identity, err := session.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect wallet: %w", err)
	}

	handle, err := contract.Aggregate(identity, lmsAddr)
	if err != nil {
		return nil, err
	}
	lms := contract.NewLMSBinding(handle)

	source, err := contract.NewExamSource(contract.SourceMode(cfg.ExamSource), identity, lmsAddr)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		session:  session,
		identity: identity,
		lms:      lms,
		source:   source,
		queries:  query.New(logger),
		flow:     txflow.New(lms, source, logger),
	}, nil
}

func (a *app) close() {
	a.session.Close()
}

// examRef resolves an exam id to the ref the active exam source expects.
// Standalone mode needs a contract address; the backend derives it from the
// id the same way the factory deployment does.
func (a *app) examRef(examID uint64) contract.ExamRef {
	ref := contract.ExamRef{ID: examID}
	if a.cfg.ExamSource == string(contract.StandaloneSource) {
		ref.Address = a.backend.ExamContractAddress(examID).String()
	}
	return ref
}

// report prints a transaction outcome and returns a non-nil error for
// failures so cobra sets the exit code.
func report(res txflow.Result) error {
	if res.OK() {
		if res.State == txflow.StateConfirmed {
			color.Green("%s (tx %s)", res.Message, res.TxHash.String())
		} else {
			color.Yellow("%s", res.Message)
		}
		return nil
	}
	color.Red("%s failed: %s", res.Op, res.Message)
	return fmt.Errorf("%s: %s", res.Op, res.Message)
}
