package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestKeyIsStable(t *testing.T) {
	a := Key("https://api.example/qr?data=x")
	b := Key("https://api.example/qr?data=x")
	if a != b {
		t.Fatal("same URL produced different keys")
	}
	if !strings.HasPrefix(a, "qrimg:") || len(a) != len("qrimg:")+64 {
		t.Fatalf("key = %q", a)
	}
	if a == Key("https://api.example/qr?data=y") {
		t.Fatal("different URLs share a key")
	}
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 0)

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
	data := []byte("png")
	if err := m.Set(ctx, "k", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'x'
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "png" {
		t.Fatalf("got %q, stored value must not alias caller's slice", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 10)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", []byte("v"))
	now = now.Add(30 * time.Second)
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("before expiry: %v", err)
	}
	now = now.Add(31 * time.Second)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("after expiry: err = %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry not removed, len = %d", m.Len())
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 2)
	_ = m.Set(ctx, "a", []byte("1"))
	_ = m.Set(ctx, "b", []byte("2"))
	_ = m.Set(ctx, "a", []byte("3"))
	_ = m.Set(ctx, "c", []byte("4"))

	if m.Len() != 2 {
		t.Fatalf("len = %d", m.Len())
	}
	if _, err := m.Get(ctx, "b"); !errors.Is(err, ErrMiss) {
		t.Fatal("expected b to be evicted")
	}
	if got, _ := m.Get(ctx, "a"); string(got) != "3" {
		t.Fatalf("a = %q", got)
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	_ = c.Set(context.Background(), "k", []byte("v"))
	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrMiss) {
		t.Fatal("Nop must always miss")
	}
}
