package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rxlab/tempmail/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func insertMessage(t *testing.T, db *DB, msg *models.Message) *models.Message {
	t.Helper()
	if err := db.CreateMessage(context.Background(), msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	return msg
}

func setReceivedAt(t *testing.T, db *DB, id int64, at time.Time) {
	t.Helper()
	if _, err := db.Exec(`UPDATE messages SET received_at = ? WHERE id = ?`, at, id); err != nil {
		t.Fatalf("set received_at: %v", err)
	}
}

func TestCreateAndGetMessage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	msg := insertMessage(t, db, &models.Message{
		ToAddress:   "box@tempmail.local",
		FromAddress: "sender@example.com",
		Subject:     "Your OTP",
		TextBody:    "code is 482913",
		MessageType: models.TypeOTP,
		OTPCode:     sql.NullString{String: "482913", Valid: true},
	})

	if msg.ID == 0 {
		t.Fatal("CreateMessage did not assign an id")
	}
	if msg.ReceivedAt.IsZero() {
		t.Fatal("CreateMessage did not set received_at")
	}

	got, err := db.GetMessageByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessageByID: %v", err)
	}
	if got.ToAddress != "box@tempmail.local" {
		t.Errorf("ToAddress: got %q, want %q", got.ToAddress, "box@tempmail.local")
	}
	if got.MessageType != models.TypeOTP {
		t.Errorf("MessageType: got %q, want %q", got.MessageType, models.TypeOTP)
	}
	if !got.OTPCode.Valid || got.OTPCode.String != "482913" {
		t.Errorf("OTPCode: got %+v, want 482913", got.OTPCode)
	}
}

func TestGetMessageByIDNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	if _, err := db.GetMessageByID(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListByRecipientOrdering(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	addr := "box@tempmail.local"
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	normalOld := insertMessage(t, db, &models.Message{ToAddress: addr, FromAddress: "a@x.com", MessageType: models.TypeNormal})
	otpOld := insertMessage(t, db, &models.Message{ToAddress: addr, FromAddress: "b@x.com", MessageType: models.TypeOTP})
	normalNew := insertMessage(t, db, &models.Message{ToAddress: addr, FromAddress: "c@x.com", MessageType: models.TypeNormal, HTMLBody: "<p>hi</p>"})
	otpNew := insertMessage(t, db, &models.Message{ToAddress: addr, FromAddress: "d@x.com", MessageType: models.TypeOTP})

	setReceivedAt(t, db, normalOld.ID, base)
	setReceivedAt(t, db, otpOld.ID, base.Add(1*time.Hour))
	setReceivedAt(t, db, normalNew.ID, base.Add(2*time.Hour))
	setReceivedAt(t, db, otpNew.ID, base.Add(3*time.Hour))

	// A row for another address must not leak in.
	insertMessage(t, db, &models.Message{ToAddress: "other@tempmail.local", FromAddress: "e@x.com", MessageType: models.TypeNormal})

	got, err := db.ListByRecipient(ctx, addr, false)
	if err != nil {
		t.Fatalf("ListByRecipient: %v", err)
	}

	wantOrder := []int64{otpNew.ID, otpOld.ID, normalNew.ID, normalOld.ID}
	if len(got) != len(wantOrder) {
		t.Fatalf("rows: got %d, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("row %d: got id %d, want %d", i, got[i].ID, want)
		}
	}

	for _, summary := range got {
		wantHTML := summary.ID == normalNew.ID
		if summary.HasHTML != wantHTML {
			t.Errorf("row %d HasHTML: got %v, want %v", summary.ID, summary.HasHTML, wantHTML)
		}
	}
}

func TestPinGate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	addr := "locked@tempmail.local"

	insertMessage(t, db, &models.Message{
		ToAddress:   addr,
		FromAddress: "a@x.com",
		MessageType: models.TypeNormal,
		HasPin:      true,
		PinHash:     sql.NullString{String: HashPin("4321"), Valid: true},
	})

	required, err := db.HasPinRequirement(ctx, addr)
	if err != nil {
		t.Fatalf("HasPinRequirement: %v", err)
	}
	if !required {
		t.Fatal("HasPinRequirement: got false, want true")
	}

	if _, err := db.ListByRecipient(ctx, addr, false); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("unverified list: got %v, want ErrAccessDenied", err)
	}

	ok, err := db.VerifyPin(ctx, addr, "0000")
	if err != nil {
		t.Fatalf("VerifyPin: %v", err)
	}
	if ok {
		t.Error("VerifyPin with wrong pin: got true, want false")
	}

	ok, err = db.VerifyPin(ctx, addr, "4321")
	if err != nil {
		t.Fatalf("VerifyPin: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPin with correct pin: got false, want true")
	}

	got, err := db.ListByRecipient(ctx, addr, true)
	if err != nil {
		t.Fatalf("verified list: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("verified list rows: got %d, want 1", len(got))
	}
}

func TestNoPinRequirement(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	addr := "open@tempmail.local"

	insertMessage(t, db, &models.Message{ToAddress: addr, FromAddress: "a@x.com", MessageType: models.TypeNormal})

	required, err := db.HasPinRequirement(ctx, addr)
	if err != nil {
		t.Fatalf("HasPinRequirement: %v", err)
	}
	if required {
		t.Error("HasPinRequirement: got true, want false")
	}

	got, err := db.ListByRecipient(ctx, addr, false)
	if err != nil {
		t.Fatalf("ListByRecipient: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("rows: got %d, want 1", len(got))
	}
}

func TestMessageStatsAndRecent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	insertMessage(t, db, &models.Message{ToAddress: "a@tempmail.local", FromAddress: "x@x.com", MessageType: models.TypeNormal})
	insertMessage(t, db, &models.Message{ToAddress: "b@tempmail.local", FromAddress: "x@x.com", MessageType: models.TypeOTP})
	old := insertMessage(t, db, &models.Message{ToAddress: "c@tempmail.local", FromAddress: "x@x.com", MessageType: models.TypeNormal})
	setReceivedAt(t, db, old.ID, time.Now().Add(-48*time.Hour))

	stats, err := db.MessageStats(ctx)
	if err != nil {
		t.Fatalf("MessageStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total: got %d, want 3", stats.Total)
	}
	if stats.OTP != 1 {
		t.Errorf("OTP: got %d, want 1", stats.OTP)
	}
	// Day boundary is the host's local date, so a two-day-old row never
	// counts while rows inserted just now always do.
	if stats.Today != 2 {
		t.Errorf("Today: got %d, want 2", stats.Today)
	}

	recent, err := db.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("recent rows: got %d, want 3", len(recent))
	}
}
