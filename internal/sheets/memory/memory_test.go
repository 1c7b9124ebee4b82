package memory

import (
	"context"
	"testing"

	"monetra/internal/core"
)

func sample(id string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Title:    "Groceries",
		Amount:   120_000,
		Category: "Food",
		Type:     core.Expense,
		Date:     "2025-06-01",
	}
}

func TestUpsertStoresAndOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Upsert(ctx, sample("tx-1"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if ref != "mem:tx-1" {
		t.Errorf("row ref = %q, want mem:tx-1", ref)
	}

	updated := sample("tx-1")
	updated.Amount = 90_000
	if _, err := s.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 after overwrite", s.Len())
	}
	got, ok := s.Get("tx-1")
	if !ok || got.Amount != 90_000 {
		t.Errorf("Get = %+v ok=%v, want overwritten amount", got, ok)
	}
}

func TestUpsertRejectsInvalid(t *testing.T) {
	s := New()
	bad := sample("tx-1")
	bad.Amount = -5

	if _, err := s.Upsert(context.Background(), bad); err == nil {
		t.Error("expected validation error")
	}
	if s.Len() != 0 {
		t.Error("invalid transaction must not be stored")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Upsert(ctx, sample("tx-1"))

	if err := s.Delete(ctx, "tx-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "tx-1"); err != nil {
		t.Errorf("repeated Delete: %v, want nil", err)
	}
	if _, ok := s.Get("tx-1"); ok {
		t.Error("row still present after delete")
	}
}
