package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

var attendanceTestCols = []string{
	"id", "event_id", "staff_id", "role_id", "status",
	"check_in_time", "check_in_method", "check_in_verified_by",
	"check_out_time", "check_out_method", "check_out_verified_by",
	"overridden", "notes", "created_at", "updated_at",
}

func attendanceRow(id uint64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(attendanceTestCols).
		AddRow(id, uint64(1), uint64(2), uint64(3), status,
			nil, nil, nil, nil, nil, nil,
			false, nil, now, now)
}

func TestCheckInSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CheckIn(context.Background(), 10, model.MethodQR, nil, time.Now()); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// The conditional update matches zero rows when another scan won the
// race; the re-read must classify the loser as already checked in.
func TestCheckInRaceLoser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance WHERE id = ?`)).
		WillReturnRows(attendanceRow(10, model.StatusActive))

	err = repo.CheckIn(context.Background(), 10, model.MethodQR, nil, time.Now())
	if !errors.Is(err, model.ErrAlreadyCheckedIn) {
		t.Fatalf("got %v, want ErrAlreadyCheckedIn", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCheckInAbsentLocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance WHERE id = ?`)).
		WillReturnRows(attendanceRow(10, model.StatusAbsent))

	err = repo.CheckIn(context.Background(), 10, model.MethodQR, nil, time.Now())
	if !errors.Is(err, model.ErrAbsentLocked) {
		t.Fatalf("got %v, want ErrAbsentLocked", err)
	}
}

func TestCheckOutBeforeCheckIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance WHERE id = ?`)).
		WillReturnRows(attendanceRow(10, model.StatusAssigned))

	err = repo.CheckOut(context.Background(), 10, model.MethodQR, nil, time.Now())
	if !errors.Is(err, model.ErrNotCheckedIn) {
		t.Fatalf("got %v, want ErrNotCheckedIn", err)
	}
}

func TestCheckOutRaceLoser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance WHERE id = ?`)).
		WillReturnRows(attendanceRow(10, model.StatusCompleted))

	err = repo.CheckOut(context.Background(), 10, model.MethodQR, nil, time.Now())
	if !errors.Is(err, model.ErrAlreadyCheckedOut) {
		t.Fatalf("got %v, want ErrAlreadyCheckedOut", err)
	}
}

// Approval retries and racing creations both land on the unique
// (event_id, staff_id) index; the existing record must come back
// instead of an error.
func TestCreateAssignedTxIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attendance`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate entry"})
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance WHERE event_id = ? AND staff_id = ?`)).
		WillReturnRows(attendanceRow(10, model.StatusAssigned))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	a, err := repo.CreateAssignedTx(context.Background(), tx, 1, 2, 3)
	if err != nil {
		t.Fatalf("CreateAssignedTx: %v", err)
	}
	if a.ID != 10 || a.Status != model.StatusAssigned {
		t.Fatalf("unexpected record %+v", a)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewAttendanceRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows(attendanceTestCols))

	if _, err := repo.GetByID(context.Background(), 99); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
