package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

const uuidKeyPattern = `^perpx:msg:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`

func TestPushStoresMessageAndEnqueuesKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := New(db, 60*time.Second)

	mock.Regexp().ExpectSet(uuidKeyPattern, `payload`, 60*time.Second).SetVal("OK")
	mock.Regexp().ExpectRPush(`^perpx:queue:events$`, uuidKeyPattern).SetVal(1)

	if err := q.Push(context.Background(), "events", "payload", 0); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations not met: %v", err)
	}
}

func TestPushHonorsExplicitTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := New(db, 60*time.Second)

	mock.Regexp().ExpectSet(uuidKeyPattern, `payload`, 5*time.Second).SetVal("OK")
	mock.Regexp().ExpectRPush(`^perpx:queue:alerts$`, uuidKeyPattern).SetVal(1)

	if err := q.Push(context.Background(), "alerts", "payload", 5*time.Second); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations not met: %v", err)
	}
}

func TestPushSurfacesStoreError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := New(db, 60*time.Second)

	mock.Regexp().ExpectSet(uuidKeyPattern, `payload`, 60*time.Second).SetErr(errors.New("connection refused"))

	if err := q.Push(context.Background(), "events", "payload", 0); err == nil {
		t.Fatal("expected error when the value store fails")
	}
}

func TestPushSurfacesEnqueueError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := New(db, 60*time.Second)

	mock.Regexp().ExpectSet(uuidKeyPattern, `payload`, 60*time.Second).SetVal("OK")
	mock.Regexp().ExpectRPush(`^perpx:queue:events$`, uuidKeyPattern).SetErr(errors.New("connection refused"))

	if err := q.Push(context.Background(), "events", "payload", 0); err == nil {
		t.Fatal("expected error when the list push fails")
	}
}

func TestPushUsesFreshKeyPerMessage(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := New(db, time.Minute)

	for i := 0; i < 2; i++ {
		mock.Regexp().ExpectSet(uuidKeyPattern, `payload`, time.Minute).SetVal("OK")
		mock.Regexp().ExpectRPush(`^perpx:queue:events$`, uuidKeyPattern).SetVal(int64(i + 1))
	}

	if err := q.Push(context.Background(), "events", "payload", 0); err != nil {
		t.Fatalf("first Push failed: %v", err)
	}
	if err := q.Push(context.Background(), "events", "payload", 0); err != nil {
		t.Fatalf("second Push failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations not met: %v", err)
	}
}
