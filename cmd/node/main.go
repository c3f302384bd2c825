package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"

	"github.com/nferraro/gridswap/internal/balance"
	balanceStore "github.com/nferraro/gridswap/internal/balance/store"
	"github.com/nferraro/gridswap/internal/config"
	"github.com/nferraro/gridswap/internal/database"
	gridswapHttp "github.com/nferraro/gridswap/internal/http"
	"github.com/nferraro/gridswap/internal/http/auth"
	nodeHandler "github.com/nferraro/gridswap/internal/http/node"
	proposalHandler "github.com/nferraro/gridswap/internal/http/proposal"
	tradeHandler "github.com/nferraro/gridswap/internal/http/trade"
	"github.com/nferraro/gridswap/internal/identity"
	"github.com/nferraro/gridswap/internal/notary"
	"github.com/nferraro/gridswap/internal/vault"
	vaultStore "github.com/nferraro/gridswap/internal/vault/store"
	"github.com/nferraro/gridswap/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// One process simulates the whole trading network. The configured org
	// gets the Postgres-backed vault and balance repository and the HTTP
	// facade; every peer runs on in-memory stores behind the same in-proc
	// session network and the shared notary.
	var (
		registry = identity.NewRegistry()
		network  = workflow.NewInProc()
	)

	notaryID, err := identity.New("Notary")
	if err != nil {
		slog.Error("failed to create notary identity", "error", err)
		os.Exit(1)
	}

	notarySvc := notary.NewInMemory(notaryID)

	orgs := append([]string{cfg.Node.Org, cfg.Node.Regulator}, cfg.Node.Peers...)
	slices.Sort(orgs)
	orgs = slices.Compact(orgs)

	var own *workflow.Node

	for _, org := range orgs {
		id, err := identity.New(org)
		if err != nil {
			slog.Error("failed to create identity", "org", org, "error", err)
			os.Exit(1)
		}

		registry.Register(id.Party())

		n := &workflow.Node{
			Identity:      id,
			Directory:     registry,
			Vault:         vault.NewMemory(),
			Balances:      balance.NewLedger(balance.NewMemoryRepository()),
			Notary:        notarySvc,
			RegulatorName: cfg.Node.Regulator,
			Clock:         time.Now,
			Log:           slog.Default().With("org", org),
		}

		if org == cfg.Node.Org {
			n.Vault = vaultStore.New(db)
			n.Balances = balance.NewLedger(balanceStore.New(db))
			own = n
		}

		network.Attach(n)
	}

	authSvc := auth.NewService(cfg.JWT.Secret, cfg.JWT.TTL, cfg.Node.Org)

	var (
		nodeH     = nodeHandler.NewHandler(own, authSvc, cfg.API.Password)
		proposalH = proposalHandler.NewHandler(own, own.Vault)
		tradeH    = tradeHandler.NewHandler(own, own.Vault)
	)

	router := gridswapHttp.New(authSvc, nodeH, proposalH, tradeH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting node", "org", cfg.Node.Org, "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
