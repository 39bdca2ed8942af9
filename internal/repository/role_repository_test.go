package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

func TestReserveSlot(t *testing.T) {
	cases := []struct {
		name     string
		affected int64
		exists   bool
		want     error
	}{
		{"slot available", 1, true, nil},
		{"role full", 0, true, model.ErrRoleFull},
		{"role missing", 0, false, model.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()
			repo := NewRoleRepo(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE event_roles SET filled_slots = filled_slots + 1`)).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))
			if tc.affected == 0 {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tc.exists))
			}

			tx, err := db.Begin()
			if err != nil {
				t.Fatal(err)
			}
			defer tx.Rollback()

			err = repo.ReserveSlotTx(context.Background(), tx, 5)
			if tc.want == nil && err != nil {
				t.Fatalf("ReserveSlotTx: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestReleaseSlotHasFloorGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewRoleRepo(db)

	mock.ExpectBegin()
	// Zero affected rows is fine here: a double release must not error
	// and must not drive the count negative.
	mock.ExpectExec(regexp.QuoteMeta(`filled_slots = filled_slots - 1 WHERE id = ? AND filled_slots > 0`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	if err := repo.ReleaseSlotTx(context.Background(), tx, 5); err != nil {
		t.Fatalf("ReleaseSlotTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
