package testsupport

import (
	"context"
	"testing"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewListing creates a pending listing for tests using the provided store.
func NewListing(t testing.TB, store *catalog.Store, dealerID, stockNumber string) *catalog.Listing {
	t.Helper()

	listing, err := store.CreateListing(context.Background(), &catalog.Listing{
		DealerID:    dealerID,
		StockNumber: stockNumber,
		Year:        2021,
		Make:        "Honda",
		Model:       "Civic",
		Price:       21995,
		PhotoURLs:   `["https://photos.example.com/a.jpg","https://photos.example.com/b.jpg"]`,
	})
	if err != nil {
		t.Fatalf("store.CreateListing: %v", err)
	}
	return listing
}
