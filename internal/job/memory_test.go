package job

import (
	"context"
	"testing"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New()

	err := repo.Save(ctx, j)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify it was saved
	saved, err := repo.FindByID(ctx, j.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != j.ID {
		t.Errorf("expected ID %s, got %s", j.ID, saved.ID)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New()

	// Save initial
	_ = repo.Save(ctx, j)

	// Update plan
	_ = j.Start()
	j.SetPlanShape(3, 0)
	_ = repo.Save(ctx, j)

	// Verify update
	saved, _ := repo.FindByID(ctx, j.ID)
	if saved.Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, saved.Status)
	}
	if saved.TotalClips != 3 {
		t.Errorf("expected 3 clips, got %d", saved.TotalClips)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New()
	_ = repo.Save(ctx, j)

	// Get plan
	found, _ := repo.FindByID(ctx, j.ID)

	// Modify returned plan
	found.SetPlanShape(9, 0)
	_ = found.Start()

	// Original in repo should be unchanged
	original, _ := repo.FindByID(ctx, j.ID)
	if original.TotalClips != 0 {
		t.Error("modifying returned plan should not affect repository")
	}
	if original.Status != StatusInQueue {
		t.Error("modifying returned plan status should not affect repository")
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Empty list
	plans, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("expected 0 plans, got %d", len(plans))
	}

	// Add plans
	plan1 := New()
	plan2 := New()
	_ = repo.Save(ctx, plan1)
	_ = repo.Save(ctx, plan2)

	plans, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Errorf("expected 2 plans, got %d", len(plans))
	}
}

func TestMemoryRepository_List_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New()
	_ = repo.Save(ctx, j)

	// Get list
	plans, _ := repo.List(ctx)

	// Modify returned plan
	plans[0].SetPlanShape(9, 0)

	// Original in repo should be unchanged
	original, _ := repo.FindByID(ctx, j.ID)
	if original.TotalClips != 0 {
		t.Error("modifying listed plan should not affect repository")
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New()
	_ = repo.Save(ctx, j)

	err := repo.Delete(ctx, j.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify deleted
	_, err = repo.FindByID(ctx, j.ID)
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_Delete_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	err := repo.Delete(ctx, "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	done := make(chan bool)

	// Concurrent writes
	go func() {
		for i := 0; i < 100; i++ {
			j := New()
			_ = repo.Save(ctx, j)
		}
		done <- true
	}()

	// Concurrent reads
	go func() {
		for i := 0; i < 100; i++ {
			_, _ = repo.List(ctx)
		}
		done <- true
	}()

	<-done
	<-done
	// If no race conditions, test passes
}
