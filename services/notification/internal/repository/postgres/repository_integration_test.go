//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для goose

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/migrations"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("notifications"),
		postgres.WithUsername("notification_user"),
		postgres.WithPassword("notification_password"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	goose.SetBaseFS(migrations.FS)
	t.Cleanup(func() { goose.SetBaseFS(nil) })
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, "."), "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestInbox_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupPool(t))

	event := repository.InboxEvent{
		EventID:     "evt-1",
		EventType:   "order.placed",
		AggregateID: "ord-1",
		OccurredAt:  time.Now().UTC(),
		Topic:       "pharma.orders",
		Partition:   0,
		Offset:      10,
	}

	// первая доставка
	res, err := repo.UpsertInboxPending(ctx, event)
	require.NoError(t, err)
	assert.True(t, res.CanProcess)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, 1, res.Attempts)

	// неудача оставляет запись pending, повтор увеличивает attempts
	require.NoError(t, repo.MarkInboxFailed(ctx, event.EventID, "smtp: connection refused"))
	event.Offset = 11
	res, err = repo.UpsertInboxPending(ctx, event)
	require.NoError(t, err)
	assert.True(t, res.CanProcess)
	assert.Equal(t, 2, res.Attempts)

	// после sent повторная доставка пропускается
	require.NoError(t, repo.MarkInboxSent(ctx, event.EventID))
	res, err = repo.UpsertInboxPending(ctx, event)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.False(t, res.CanProcess)
	assert.Equal(t, 2, res.Attempts)

	// MarkInboxFailed не трогает sent запись
	require.NoError(t, repo.MarkInboxFailed(ctx, event.EventID, "late failure"))
	res, err = repo.UpsertInboxPending(ctx, event)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
}
