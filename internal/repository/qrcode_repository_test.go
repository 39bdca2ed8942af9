package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

var qrTestCols = []string{"id", "event_id", "token", "expires_at", "created_by", "is_active", "created_at"}

// Issuing deactivates every prior active code before inserting the new
// one, all in one transaction, so an event never has two live codes.
func TestIssueReplacesActiveCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewQRCodeRepo(db)

	exp := time.Now().UTC().Add(time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE qr_codes SET is_active = 0 WHERE event_id = ? AND is_active = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO qr_codes`)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM qr_codes WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows(qrTestCols).
			AddRow(uint64(7), uint64(3), "signed-token", exp, uint64(1), true, time.Now().UTC()))
	mock.ExpectCommit()

	code, err := repo.Issue(context.Background(), 3, "signed-token", exp, 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if code.ID != 7 || !code.IsActive || code.EventID != 3 {
		t.Fatalf("unexpected code %+v", code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetActiveByTokenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewQRCodeRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE token = ? AND is_active = 1`)).
		WillReturnRows(sqlmock.NewRows(qrTestCols))

	// A revoked or unknown token is indistinguishable from a forged
	// one as far as the scanner is concerned.
	if _, err := repo.GetActiveByToken(context.Background(), "revoked"); !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestDeactivateAlreadyInactive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewQRCodeRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE qr_codes SET is_active = 0 WHERE id = ? AND is_active = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM qr_codes WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows(qrTestCols).
			AddRow(uint64(7), uint64(3), "signed-token", time.Now().UTC(), uint64(1), false, time.Now().UTC()))

	if err := repo.Deactivate(context.Background(), 7); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestDeactivateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := NewQRCodeRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE qr_codes SET is_active = 0`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM qr_codes WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows(qrTestCols))

	if err := repo.Deactivate(context.Background(), 7); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
