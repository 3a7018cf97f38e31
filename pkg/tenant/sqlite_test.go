package tenant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tenants.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorePutAndPolicy(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, Policy{TenantID: "acme", EUOnly: true, DPAAccepted: true}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	p, err := store.Policy(ctx, "acme")
	if err != nil {
		t.Fatalf("Policy() error = %v", err)
	}
	if !p.EUOnly || !p.DPAAccepted {
		t.Errorf("policy = %+v", p)
	}

	// Upsert flips flags in place.
	if err := store.Put(ctx, Policy{TenantID: "acme"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	p, err = store.Policy(ctx, "acme")
	if err != nil {
		t.Fatalf("Policy() error = %v", err)
	}
	if p.EUOnly || p.DPAAccepted {
		t.Errorf("policy after upsert = %+v", p)
	}
}

func TestSQLiteStoreUnknownTenant(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.Policy(context.Background(), "ghost")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type = %T, want *NotFoundError", err)
	}
}

func TestSQLiteStoreReplace(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, Policy{TenantID: "a", EUOnly: true}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Replace(ctx, []Policy{{TenantID: "b", EUOnly: true}}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if _, err := store.Policy(ctx, "a"); err == nil {
		t.Error("tenant a should be gone after Replace")
	}
	p, err := store.Policy(ctx, "b")
	if err != nil || !p.EUOnly {
		t.Errorf("Policy(b) = %+v, %v", p, err)
	}
}
