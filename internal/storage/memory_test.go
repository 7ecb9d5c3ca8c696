package storage

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// TestMemoryStore runs the shared store behavior against the in-memory store.
func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemory() })
}

// TestClampLimit verifies session list limits fall back to the default and
// are capped.
func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultSessionLimit},
		{-3, DefaultSessionLimit},
		{5, 5},
		{MaxSessionLimit + 1, MaxSessionLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestSortSetsTieBreak verifies sets logged at the same instant with the
// same set number always come back in id order.
func TestSortSetsTieBreak(t *testing.T) {
	at := time.Date(2026, 2, 19, 5, 0, 0, 0, time.UTC)
	for range 20 {
		sets := []models.WorkoutSet{
			{ID: "c", SetNumber: 1, CreatedAt: at},
			{ID: "a", SetNumber: 1, CreatedAt: at},
			{ID: "d", SetNumber: 1, CreatedAt: at.Add(-time.Second)},
			{ID: "b", SetNumber: 1, CreatedAt: at},
		}
		rand.Shuffle(len(sets), func(i, j int) { sets[i], sets[j] = sets[j], sets[i] })
		sortSets(sets)

		var got []string
		for _, s := range sets {
			got = append(got, s.ID)
		}
		if want := []string{"d", "a", "b", "c"}; !slices.Equal(got, want) {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
