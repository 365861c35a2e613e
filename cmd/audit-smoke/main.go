// Command audit-smoke exercises the audit publisher end to end: async
// buffering, the synchronous fallback under load, and store readback. Run it
// manually when touching the audit pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	id "veritas/pkg/domain"
	"veritas/pkg/platform/audit"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := audit.NewInMemoryStore()
	// Small buffer so the flood below forces the synchronous fallback.
	publisher := audit.NewPublisher(store,
		audit.WithAsyncBuffer(10),
		audit.WithPublisherLogger(logger),
	)

	ctx := context.Background()

	fmt.Println("=== Audit Publisher Smoke Test ===")

	fmt.Println("1. Emitting 5 events through the async buffer...")
	for i := 0; i < 5; i++ {
		event := audit.Event{
			Action:         audit.ActionIssuanceSucceeded,
			SubjectID:      id.SubjectID(uuid.New()),
			CredentialID:   id.NewCredentialID(),
			CredentialType: "AcademicCredential",
			Reason:         fmt.Sprintf("smoke event %d", i+1),
		}
		if err := publisher.Emit(ctx, event); err != nil {
			fmt.Printf("   event %d failed: %v\n", i+1, err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Println("2. Flooding with 50 events (buffer size 10, rest go synchronous)...")
	failed := 0
	for i := 0; i < 50; i++ {
		event := audit.Event{
			Action:       audit.ActionCredentialRevoked,
			IssuerID:     id.IssuerID("did:web:veritas.example.edu"),
			CredentialID: id.NewCredentialID(),
			Reason:       "fraud",
		}
		if err := publisher.Emit(ctx, event); err != nil {
			failed++
		}
	}
	fmt.Printf("   emitted 50 events, %d failed\n", failed)

	publisher.Close()

	events, err := store.Recent(ctx, 100)
	if err != nil {
		fmt.Printf("readback failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("3. Store holds %d events (expect 55).\n", len(events))
	for _, event := range events[:min(3, len(events))] {
		fmt.Printf("   %s %s %s\n", event.Timestamp.Format(time.RFC3339), event.Action, event.Reason)
	}
}
