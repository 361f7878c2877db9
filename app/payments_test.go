package app

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error = %v", err)
	}
	prev := db
	db = mockDB
	t.Cleanup(func() {
		db = prev
		mockDB.Close()
	})
	return mock
}

func TestSettlePaymentFirstTimeUpgrades(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payment_transactions").
		WithArgs("paid", "completed", "cs_test_1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plan_type"}).AddRow("user-1", "starter"))
	mock.ExpectExec("UPDATE subscriptions").
		WithArgs("cancelled", "user-1", "active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := settlePayment(context.Background(), "cs_test_1"); err != nil {
		t.Fatalf("settlePayment error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettlePaymentSecondTimeIsNoop(t *testing.T) {
	mock := newMockDB(t)

	// The conditional update matches no row once the session is paid, so no
	// subscription statements run and no second upgrade happens.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payment_transactions").
		WithArgs("paid", "completed", "cs_test_1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	if err := settlePayment(context.Background(), "cs_test_1"); err != nil {
		t.Fatalf("settlePayment should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettlePaymentUpgradeFailureRollsBack(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payment_transactions").
		WithArgs("paid", "completed", "cs_test_2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plan_type"}).AddRow("user-1", "pro"))
	mock.ExpectExec("UPDATE subscriptions").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	if err := settlePayment(context.Background(), "cs_test_2"); err == nil {
		t.Fatal("settlePayment should surface the upgrade failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettlePaymentRejectsUnknownPlan(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payment_transactions").
		WithArgs("paid", "completed", "cs_test_3").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plan_type"}).AddRow("user-1", "platinum"))
	mock.ExpectRollback()

	if err := settlePayment(context.Background(), "cs_test_3"); err == nil {
		t.Fatal("settlePayment should reject a plan missing from the catalog")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
