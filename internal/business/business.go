package business

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/memory-match/internal/config"
	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/schedule"
	"github.com/openkcm/memory-match/internal/session"
	sessionmemory "github.com/openkcm/memory-match/internal/session/memory"
	sessionsql "github.com/openkcm/memory-match/internal/session/sql"
	sessionvalkey "github.com/openkcm/memory-match/internal/session/valkey"
)

// initRepository opens the configured save backend. closeFn releases its
// connections and is never nil on success.
func initRepository(ctx context.Context, cfg *config.Config) (_ session.Repository, closeFn func(), _ error) {
	format, err := record.ParseFormat(cfg.Storage.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing save format: %w", err)
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory, "":
		return sessionmemory.NewRepository(cfg.Storage.Retention), func() {}, nil
	case config.BackendPostgres:
		db, err := newPgxPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}

		return sessionsql.NewRepository(db, format), db.Close, nil
	case config.BackendValkey:
		client, err := newValkeyClient(cfg.ValKey)
		if err != nil {
			return nil, nil, err
		}

		return sessionvalkey.NewRepository(client, cfg.ValKey.Prefix, format, cfg.Storage.Retention), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newPgxPool(ctx context.Context, dbCfg config.Database) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}

func newValkeyClient(vkCfg config.ValKey) (valkey.Client, error) {
	creds, err := config.LoadValkeyCredentials(vkCfg)
	if err != nil {
		return nil, err
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{creds.Address},
		Username:    creds.Username,
		Password:    creds.Password,
	}

	if vkCfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&vkCfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	client, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return client, nil
}

func initManager(ctx context.Context, cfg *config.Config, repo session.Repository, scheduler schedule.Scheduler) (*session.Manager, error) {
	manager, err := session.NewManager(&cfg.Game, repo, scheduler, session.WithSlot(cfg.Storage.Slot))
	if err != nil {
		return nil, fmt.Errorf("creating session manager: %w", err)
	}

	if err := registerMetrics(ctx, cfg, manager); err != nil {
		slogctx.Warn(ctx, "Game metrics are disabled", "error", err)
	}

	return manager, nil
}
