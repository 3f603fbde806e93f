package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	tmp := t.TempDir()
	store, err := Open(filepath.Join(tmp, "cache.db"), filepath.Join(tmp, "cache.lock"))
	if err != nil {
		t.Fatalf("Open cache failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDecimalsSetGet(t *testing.T) {
	store := openStore(t)

	if err := store.SetDecimals("501", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", 6); err != nil {
		t.Fatalf("SetDecimals failed: %v", err)
	}

	decimals, ok, err := store.GetDecimals("501", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", time.Hour)
	if err != nil {
		t.Fatalf("GetDecimals failed: %v", err)
	}
	if !ok || decimals != 6 {
		t.Fatalf("expected fresh hit with 6 decimals, got ok=%v decimals=%d", ok, decimals)
	}
}

func TestDecimalsMissOnUnknownToken(t *testing.T) {
	store := openStore(t)

	_, ok, err := store.GetDecimals("501", "So11111111111111111111111111111111111111112", time.Hour)
	if err != nil {
		t.Fatalf("GetDecimals failed: %v", err)
	}
	if ok {
		t.Fatal("expected miss for unknown token")
	}
}

func TestDecimalsKeyedByChain(t *testing.T) {
	store := openStore(t)

	if err := store.SetDecimals("501", "mint", 6); err != nil {
		t.Fatalf("SetDecimals failed: %v", err)
	}
	if _, ok, _ := store.GetDecimals("1", "mint", time.Hour); ok {
		t.Fatal("entry leaked across chains")
	}
}

func TestDecimalsExpiry(t *testing.T) {
	store := openStore(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	if err := store.setDecimalsAt("501", "mint", 9, old); err != nil {
		t.Fatalf("setDecimalsAt failed: %v", err)
	}

	if _, ok, _ := store.GetDecimals("501", "mint", 24*time.Hour); ok {
		t.Fatal("expected expired entry to read as a miss")
	}
	// A negative maxAge disables expiry.
	decimals, ok, err := store.GetDecimals("501", "mint", -1)
	if err != nil {
		t.Fatalf("GetDecimals failed: %v", err)
	}
	if !ok || decimals != 9 {
		t.Fatalf("expected hit with expiry disabled, got ok=%v decimals=%d", ok, decimals)
	}
}

func TestDecimalsUpsert(t *testing.T) {
	store := openStore(t)

	if err := store.SetDecimals("501", "mint", 6); err != nil {
		t.Fatalf("SetDecimals failed: %v", err)
	}
	if err := store.SetDecimals("501", "mint", 8); err != nil {
		t.Fatalf("SetDecimals overwrite failed: %v", err)
	}
	decimals, ok, err := store.GetDecimals("501", "mint", time.Hour)
	if err != nil {
		t.Fatalf("GetDecimals failed: %v", err)
	}
	if !ok || decimals != 8 {
		t.Fatalf("expected updated value 8, got ok=%v decimals=%d", ok, decimals)
	}
}

func TestDecimalsPrune(t *testing.T) {
	store := openStore(t)

	if err := store.setDecimalsAt("501", "old", 6, time.Now().UTC().Add(-48*time.Hour)); err != nil {
		t.Fatalf("setDecimalsAt failed: %v", err)
	}
	if err := store.SetDecimals("501", "fresh", 9); err != nil {
		t.Fatalf("SetDecimals failed: %v", err)
	}

	if err := store.Prune(24 * time.Hour); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	if _, ok, _ := store.GetDecimals("501", "old", -1); ok {
		t.Fatal("pruned entry still readable")
	}
	if _, ok, _ := store.GetDecimals("501", "fresh", time.Hour); !ok {
		t.Fatal("fresh entry removed by prune")
	}
}

func TestDecimalsConcurrentOpenAndSet(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "cache.db")
	lockPath := filepath.Join(tmp, "cache.lock")

	const workers = 16
	const iterations = 40

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			store, err := Open(dbPath, lockPath)
			if err != nil {
				errCh <- fmt.Errorf("worker %d open: %w", workerID, err)
				return
			}
			defer store.Close()

			for i := 0; i < iterations; i++ {
				token := fmt.Sprintf("worker-%d-mint-%d", workerID, i)
				if err := store.SetDecimals("501", token, 6); err != nil {
					errCh <- fmt.Errorf("worker %d set iter %d: %w", workerID, i, err)
					return
				}
				_, ok, err := store.GetDecimals("501", token, time.Minute)
				if err != nil {
					errCh <- fmt.Errorf("worker %d get iter %d: %w", workerID, i, err)
					return
				}
				if !ok {
					errCh <- fmt.Errorf("worker %d get iter %d: expected hit", workerID, i)
					return
				}
			}
		}(worker)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}
