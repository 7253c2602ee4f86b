package kvstore

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Set(ctx, "foo", "bar"); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get(ctx, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if v != "bar" {
		t.Errorf("got %q, want bar", v)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSetExExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.SetEx(ctx, "ttl", "v", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	_, err := s.Get(ctx, "ttl")
	if !IsNotFound(err) {
		t.Errorf("expected key to have expired, got err=%v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Set(ctx, "k", "v")
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Get(ctx, "k")
	if !IsNotFound(err) {
		t.Errorf("expected key to be gone after delete")
	}
}

func TestMemoryStoreSubNamespace(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := s.Sub("a")
	b := s.Sub("b")
	a.Set(ctx, "k", "a-value")
	b.Set(ctx, "k", "b-value")

	v, err := a.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if v != "a-value" {
		t.Errorf("got %q from sub a, want a-value", v)
	}
	v, err = b.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if v != "b-value" {
		t.Errorf("got %q from sub b, want b-value", v)
	}
	if _, err := s.Get(ctx, "k"); !IsNotFound(err) {
		t.Errorf("expected unprefixed key to be untouched by subs")
	}
}

func TestMemoryStoreExpire(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Set(ctx, "k", "v")
	if err := s.Expire(ctx, "k", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.Get(ctx, "k"); !IsNotFound(err) {
		t.Errorf("expected key to have expired after Expire")
	}
}

func TestMemoryStoreExpireMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.Expire(context.Background(), "missing", time.Second)
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
