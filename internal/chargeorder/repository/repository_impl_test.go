package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lafcloud/platform/internal/chargeorder/domain"
	"github.com/lafcloud/platform/internal/chargeorder/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = db.Exec(`CREATE TABLE charge_orders (
		id BIGINT PRIMARY KEY,
		account_id BIGINT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		channel TEXT NOT NULL,
		phase TEXT NOT NULL,
		result TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("schema exec failed: %v", err)
	}

	return db
}

func insertOrder(t *testing.T, db *gorm.DB, repo domain.Repository, id, accountID snowflake.ID) *domain.ChargeOrder {
	t.Helper()

	now := time.Now().UTC()
	order := &domain.ChargeOrder{
		ID:        id,
		AccountID: accountID,
		Amount:    500,
		Currency:  "CNY",
		Channel:   domain.ChannelWeChatPay,
		Phase:     domain.PhasePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Insert(context.Background(), db, order); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	return order
}

func TestConditionalTransitionMatchesOnce(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	order := insertOrder(t, db, repo, snowflake.ID(10), snowflake.ID(1))

	payload := datatypes.JSON(`{"trade_state":"SUCCESS"}`)
	matched, err := repo.ConditionalTransition(ctx, db, order.ID, domain.PhasePending, domain.PhasePaid, payload)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if matched != 1 {
		t.Fatalf("expected 1 matched row, got %d", matched)
	}

	// The precondition is gone, so replaying the same transition matches nothing.
	matched, err = repo.ConditionalTransition(ctx, db, order.ID, domain.PhasePending, domain.PhasePaid, payload)
	if err != nil {
		t.Fatalf("replay transition: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched rows on replay, got %d", matched)
	}

	found, err := repo.FindByID(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.Phase != domain.PhasePaid {
		t.Fatalf("expected paid order, got %+v", found)
	}
	if len(found.Result) == 0 {
		t.Fatalf("expected stored result payload")
	}
}

func TestConditionalTransitionWrongPhase(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	order := insertOrder(t, db, repo, snowflake.ID(11), snowflake.ID(1))

	matched, err := repo.ConditionalTransition(ctx, db, order.ID, domain.PhasePaid, domain.PhaseFailed, nil)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched rows, got %d", matched)
	}

	found, err := repo.FindByID(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Phase != domain.PhasePending {
		t.Fatalf("expected order untouched, got phase %s", found.Phase)
	}
}

func TestConditionalTransitionUnknownOrder(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	matched, err := repo.ConditionalTransition(ctx, db, snowflake.ID(404), domain.PhasePending, domain.PhasePaid, nil)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched rows, got %d", matched)
	}
}

func TestFindByIDForAccountScopesToOwner(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	order := insertOrder(t, db, repo, snowflake.ID(12), snowflake.ID(7))

	found, err := repo.FindByIDForAccount(ctx, db, snowflake.ID(7), order.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil {
		t.Fatalf("expected order for owning account")
	}

	other, err := repo.FindByIDForAccount(ctx, db, snowflake.ID(8), order.ID)
	if err != nil {
		t.Fatalf("find other: %v", err)
	}
	if other != nil {
		t.Fatalf("expected no order for foreign account, got %+v", other)
	}
}
