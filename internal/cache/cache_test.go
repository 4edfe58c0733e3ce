package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

type countingSource struct {
	calls    int
	entities []model.Entity
	err      error
}

func (s *countingSource) Entities(ctx context.Context) ([]model.Entity, error) {
	s.calls++
	return s.entities, s.err
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	c.Set("a", 1, 0)
	if v, ok := c.Get("a"); !ok || v.(int) != 1 {
		t.Errorf("expected cached 1, got %v %v", v, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after delete")
	}

	c.Set("b", 2, 0)
	c.Set("c", 3, 0)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	c.Set("a", 1, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestEntityCache(t *testing.T) {
	src := &countingSource{entities: []model.Entity{{ID: 1, Name: "Kollong"}}}
	ec := NewEntityCache(src, NewMemoryCache(time.Minute, time.Minute), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := ec.Entities(ctx)
		if err != nil {
			t.Fatalf("Entities failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 entity, got %d", len(got))
		}
	}
	if src.calls != 1 {
		t.Errorf("expected 1 source call, got %d", src.calls)
	}

	ec.Invalidate()
	if _, err := ec.Entities(ctx); err != nil {
		t.Fatalf("Entities failed: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("expected reload after invalidate, got %d calls", src.calls)
	}
}

func TestEntityCache_Disabled(t *testing.T) {
	src := &countingSource{}
	ec := NewEntityCache(src, nil, time.Minute)

	ec.Entities(context.Background())
	ec.Entities(context.Background())
	ec.Invalidate()

	if src.calls != 2 {
		t.Errorf("expected every call to hit the source, got %d", src.calls)
	}
}

func TestEntityCache_ErrorNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	ec := NewEntityCache(src, NewMemoryCache(time.Minute, time.Minute), time.Minute)

	if _, err := ec.Entities(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	src.err = nil
	if _, err := ec.Entities(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 calls, got %d", src.calls)
	}
}
