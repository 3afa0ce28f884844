package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lafcloud/platform/internal/account/domain"
	"github.com/lafcloud/platform/internal/account/repository"
	"github.com/lafcloud/platform/internal/account/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE accounts (
			id BIGINT PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_accounts_owner ON accounts(owner_id)`,
		`CREATE TABLE account_transactions (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			balance BIGINT NOT NULL,
			message TEXT NOT NULL,
			order_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(22)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestGetOrCreateFirstUse(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	ownerID := snowflake.ID(77)
	account, err := svc.GetOrCreate(ctx, ownerID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if account.OwnerID != ownerID {
		t.Fatalf("expected owner %d, got %d", ownerID, account.OwnerID)
	}
	if account.Balance != 0 {
		t.Fatalf("expected zero starting balance, got %d", account.Balance)
	}

	again, err := svc.GetOrCreate(ctx, ownerID)
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if again.ID != account.ID {
		t.Fatalf("expected stable account id, got %d and %d", account.ID, again.ID)
	}

	var count int64
	if err := db.Raw("SELECT COUNT(1) FROM accounts").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one account, got %d", count)
	}
}

func TestGetOrCreateRejectsZeroOwner(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	if _, err := svc.GetOrCreate(ctx, 0); err != domain.ErrInvalidOwner {
		t.Fatalf("expected invalid owner, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	if _, err := svc.Get(ctx, snowflake.ID(404)); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIncrementBalanceMissingAccount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	if _, err := repo.IncrementBalance(ctx, db, snowflake.ID(404), 100); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)
	repo := repository.Provide()

	account, err := svc.GetOrCreate(ctx, snowflake.ID(88))
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	now := time.Now().UTC()
	for i := 1; i <= 3; i++ {
		txn := &domain.Transaction{
			ID:        snowflake.ID(i),
			AccountID: account.ID,
			Amount:    int64(i * 100),
			Balance:   int64(i * 100),
			Message:   "Recharge",
			OrderID:   snowflake.ID(1000 + i),
			CreatedAt: now,
		}
		if err := repo.InsertTransaction(ctx, db, txn); err != nil {
			t.Fatalf("insert transaction: %v", err)
		}
	}

	items, err := svc.ListTransactions(ctx, account.ID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != snowflake.ID(3) {
		t.Fatalf("expected newest first, got id %d", items[0].ID)
	}
}
