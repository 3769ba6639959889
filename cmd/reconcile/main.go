// Command reconcile scans the order collections for the leftovers of an
// interrupted dispatch: push keys present in both OrderDetails and
// CompletedOrder. It prints what it finds and never repairs anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wavefood-admin/internal/ingest"
	"wavefood-admin/internal/lifecycle"
	"wavefood-admin/internal/notify"
	"wavefood-admin/internal/store"
)

func main() {
	_ = godotenv.Load()

	seedFile := flag.String("seed", os.Getenv("STORE_SEED_FILE"), "path to the store seed JSON")
	flag.Parse()

	if *seedFile == "" {
		log.Fatal("no seed file: pass -seed or set STORE_SEED_FILE")
	}

	st := store.NewMemStore()
	if err := st.SeedFromFile(*seedFile); err != nil {
		log.Fatalf("failed to load store seed: %v", err)
	}

	duplicates, err := run(context.Background(), st)
	if err != nil {
		log.Fatal(err)
	}

	if len(duplicates) == 0 {
		fmt.Println("No duplicate orders found.")
		return
	}

	fmt.Printf("%d order(s) present in both collections:\n", len(duplicates))
	for _, key := range duplicates {
		fmt.Printf("  %s\n", key)
	}
	os.Exit(1)
}

func run(ctx context.Context, st store.Store) ([]string, error) {
	gateway := notify.NewLogGateway(zap.NewNop())
	pending := ingest.NewService(st, gateway)
	machine := lifecycle.NewMachine(st, gateway, pending)

	duplicates, err := machine.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return duplicates, nil
}
