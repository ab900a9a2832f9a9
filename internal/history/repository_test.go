package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dwetherby/audioctl/internal/infrastructure/database"
	_ "github.com/dwetherby/audioctl/migrations"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return NewRepository(db.DB)
}

func TestRepository_RecordAndRecent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	entries := []Entry{
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "Headphones", Operation: OpPair, Outcome: OutcomeSuccess, StartedAt: time.Now().Add(-2 * time.Minute), Duration: 4 * time.Second},
		{Operation: OpScan, Outcome: OutcomeSuccess, StartedAt: time.Now().Add(-1 * time.Minute), Duration: 10 * time.Second},
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "Headphones", Operation: OpConnect, Outcome: OutcomeFailed, Reason: "timeout", StartedAt: time.Now(), Duration: 30 * time.Second},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(got))
	}

	// Most recent first.
	if got[0].Operation != OpConnect {
		t.Errorf("first entry operation = %q, want %q", got[0].Operation, OpConnect)
	}
	if got[0].Outcome != OutcomeFailed || got[0].Reason != "timeout" {
		t.Errorf("first entry = %+v", got[0])
	}
	if got[0].DurationMS != 30000 {
		t.Errorf("first entry duration = %d ms, want 30000", got[0].DurationMS)
	}
	if got[2].MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("oldest entry MAC = %q", got[2].MAC)
	}
}

func TestRepository_Recent_Empty(t *testing.T) {
	repo := openTestRepo(t)

	got, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recent() returned %d entries, want 0", len(got))
	}
}

func TestRepository_Recent_LimitClamping(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for i := 0; i < defaultLimit+5; i++ {
		e := Entry{Operation: OpScan, Outcome: OutcomeSuccess, StartedAt: time.Now()}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != defaultLimit {
		t.Errorf("Recent(0) returned %d entries, want default %d", len(got), defaultLimit)
	}

	got, err = repo.Recent(ctx, maxLimit+100)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != defaultLimit+5 {
		t.Errorf("Recent(oversized) returned %d entries, want %d", len(got), defaultLimit+5)
	}
}
