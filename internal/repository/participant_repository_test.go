package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

func TestCreateTxDuplicateApplication(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewParticipantRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO participants`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate entry"})

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	role := &model.EventRole{ID: 5, RoleName: "Bartender", PriceCents: 120000}
	if _, err := repo.CreateTx(context.Background(), tx, 1, 2, role); !errors.Is(err, model.ErrAlreadyApplied) {
		t.Fatalf("got %v, want ErrAlreadyApplied", err)
	}
}

// Approving an application that is no longer pending must fail: the
// update's status predicate matches nothing.
func TestTransitionTxWrongStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewParticipantRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE participants SET status = ? WHERE id = ? AND status = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	err = repo.TransitionTx(context.Background(), tx, 9, model.ParticipantApplied, model.ParticipantApproved)
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestCancelTxTerminalState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewParticipantRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE participants SET status = ? WHERE id = ? AND status NOT IN (?, ?)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	if err := repo.CancelTx(context.Background(), tx, 9); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestUpdateRoleTxAfterApproval(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewParticipantRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE participants SET role_id = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	role := &model.EventRole{ID: 5, RoleName: "Security", PriceCents: 150000}
	if err := repo.UpdateRoleTx(context.Background(), tx, 9, role); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}
