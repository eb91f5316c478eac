package lock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTargetLockName(t *testing.T) {
	tests := []struct {
		database string
		table    string
		expected string
	}{
		{"shop", "orders", "gopurge:shop.orders"},
		{"shop", "order_items", "gopurge:shop.order_items"},
		{"shop-eu", "Orders2", "gopurge:shop-eu.Orders2"},
		{"shop", "orders;drop", "gopurge:shop.orders_drop"},
		{"my db", "t.x", "gopurge:my_db.t_x"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := TargetLockName(tt.database, tt.table); got != tt.expected {
				t.Errorf("TargetLockName(%q, %q) = %q, expected %q", tt.database, tt.table, got, tt.expected)
			}
		})
	}
}

func TestTargetLockName_Truncated(t *testing.T) {
	name := TargetLockName(strings.Repeat("d", 40), strings.Repeat("t", 40))
	if len(name) != maxLockNameLen {
		t.Errorf("len = %d, expected %d", len(name), maxLockNameLen)
	}
	if !strings.HasPrefix(name, "gopurge:") {
		t.Errorf("name %q lost its prefix", name)
	}
}

func TestAcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT GET_LOCK").
		WithArgs("gopurge:shop.orders", TimeoutShort).
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectQuery("SELECT RELEASE_LOCK").
		WithArgs("gopurge:shop.orders").
		WillReturnRows(sqlmock.NewRows([]string{"RELEASE_LOCK"}).AddRow(1))

	l := NewTargetLock(db, "shop", "orders")
	if err := l.Acquire(context.Background(), TimeoutShort); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !l.IsHeld() {
		t.Error("lock should be held after Acquire()")
	}

	// Re-acquiring a held lock issues no query.
	if err := l.Acquire(context.Background(), TimeoutShort); err != nil {
		t.Errorf("second Acquire() error: %v", err)
	}

	if err := l.Release(context.Background()); err != nil {
		t.Errorf("Release() error: %v", err)
	}
	if l.IsHeld() {
		t.Error("lock should not be held after Release()")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAcquire_HeldElsewhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT GET_LOCK").
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(0))

	l := NewAdvisoryLock(db, "gopurge:shop.orders")
	err = l.Acquire(context.Background(), TimeoutImmediate)
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Acquire() error = %v, expected ErrLockTimeout", err)
	}
	if l.IsHeld() {
		t.Error("lock should not be held")
	}
}

func TestAcquire_Errors(t *testing.T) {
	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
		substr string
	}{
		{
			name: "query failure",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT GET_LOCK").WillReturnError(errors.New("connection reset"))
			},
			substr: "failed to execute GET_LOCK",
		},
		{
			name: "null result",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT GET_LOCK").WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(nil))
			},
			substr: "returned NULL",
		},
		{
			name: "unexpected value",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT GET_LOCK").WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(7))
			},
			substr: "unexpected GET_LOCK return value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("Failed to create mock: %v", err)
			}
			defer db.Close()
			tt.expect(mock)

			err = NewAdvisoryLock(db, "x").Acquire(context.Background(), TimeoutShort)
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Acquire() error = %v, expected %q", err, tt.substr)
			}
		})
	}
}

func TestRelease_NotHeld(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	if err := NewAdvisoryLock(db, "x").Release(context.Background()); err != nil {
		t.Errorf("Release() on unheld lock returned %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestWithLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT GET_LOCK").WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectQuery("SELECT RELEASE_LOCK").WillReturnRows(sqlmock.NewRows([]string{"RELEASE_LOCK"}).AddRow(1))

	l := NewTargetLock(db, "shop", "orders")
	fnErr := errors.New("delete failed")
	called := false
	err = l.WithLock(context.Background(), TimeoutShort, func() error {
		called = true
		if !l.IsHeld() {
			t.Error("lock should be held inside fn")
		}
		return fnErr
	})

	if !called {
		t.Error("fn was not called")
	}
	if !errors.Is(err, fnErr) {
		t.Errorf("WithLock() error = %v, expected fn error", err)
	}
	if l.IsHeld() {
		t.Error("lock should be released after WithLock()")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithLock_Panic(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT GET_LOCK").WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectQuery("SELECT RELEASE_LOCK").WillReturnRows(sqlmock.NewRows([]string{"RELEASE_LOCK"}).AddRow(1))

	l := NewTargetLock(db, "shop", "orders")
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = l.WithLock(context.Background(), TimeoutShort, func() error {
			panic("boom")
		})
	}()

	if l.IsHeld() {
		t.Error("lock should be released after panic")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithLock_NotAcquired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT GET_LOCK").WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(0))

	called := false
	err = NewTargetLock(db, "shop", "orders").WithLock(context.Background(), TimeoutShort, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("WithLock() error = %v, expected ErrLockTimeout", err)
	}
	if called {
		t.Error("fn must not run without the lock")
	}
}
