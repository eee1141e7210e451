package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/domain"
	"github.com/vladislavdragonenkov/breaks/internal/storage/memory"
	"github.com/vladislavdragonenkov/breaks/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения. PGStore равен nil в режиме
// памяти.
type Dependencies struct {
	OrderRepo domain.OrderRepository
	AuthRepo  domain.AuthKeyRepository
	PGStore   *postgres.Store
	Logger    *log.Entry
}

// NewDependencies выбирает хранилище по конфигурации: PostgreSQL при
// заданном DATABASE_URL (с прогоном миграций), иначе память со
// статическими ключами доступа.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.DatabaseURL == "" {
		keys, err := parseAuthKeys(cfg.AuthKeys)
		if err != nil {
			return nil, fmt.Errorf("parse auth keys: %w", err)
		}
		logger.Info("хранилище в памяти, перезапуск теряет очередь")
		return &Dependencies{
			OrderRepo: memory.NewOrderRepository(),
			AuthRepo:  memory.NewAuthKeyRepository(keys),
			Logger:    logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.MigrateUp(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("хранилище PostgreSQL готово")

	return &Dependencies{
		OrderRepo: postgres.NewOrderRepository(store),
		AuthRepo:  postgres.NewAuthKeyRepository(store),
		PGStore:   store,
		Logger:    logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d.PGStore != nil {
		if err := d.PGStore.Close(); err != nil {
			d.Logger.WithError(err).Warn("не удалось закрыть postgres")
		}
	}
}
