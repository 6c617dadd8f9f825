package watcher

import (
	"fmt"
	"sort"
	"testing"
	"time"
)

const testInterval = 50 * time.Millisecond

func receiveBatch(t *testing.T, d *Debouncer, timeout time.Duration) []Change {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func Test_Debouncer_SingleChange(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add(Change{Path: "/proj/notes.md", RootPath: "/proj", Op: OpWrite})

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 1 {
		t.Fatalf("expected 1 change, got %d", len(batch))
	}
	if batch[0].Path != "/proj/notes.md" {
		t.Errorf("expected path '/proj/notes.md', got '%s'", batch[0].Path)
	}
	if batch[0].RootPath != "/proj" {
		t.Errorf("expected root '/proj', got '%s'", batch[0].RootPath)
	}
	if batch[0].Op != OpWrite {
		t.Errorf("expected OpWrite, got %s", batch[0].Op)
	}
}

func Test_Debouncer_CollapsesSamePath(t *testing.T) {
	d := NewDebouncer(testInterval)

	// Same path twice: one change with the latest op
	d.Add(Change{Path: "/proj/notes.md", RootPath: "/proj", Op: OpCreate})
	d.Add(Change{Path: "/proj/notes.md", RootPath: "/proj", Op: OpWrite})

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 1 {
		t.Fatalf("expected 1 collapsed change, got %d", len(batch))
	}
	if batch[0].Op != OpWrite {
		t.Errorf("expected latest op OpWrite, got %s", batch[0].Op)
	}
}

func Test_Debouncer_RenamePairSharesBatch(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add(Change{Path: "/proj/draft.md", RootPath: "/proj", Op: OpRename})
	d.Add(Change{Path: "/proj/final.md", RootPath: "/proj", Op: OpCreate})

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 2 {
		t.Fatalf("expected rename pair in one batch, got %d changes", len(batch))
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	if batch[0].Op != OpRename || batch[1].Op != OpCreate {
		t.Errorf("expected rename then create, got %s and %s", batch[0].Op, batch[1].Op)
	}
}

func Test_Debouncer_TimerResetExtendsQuietPeriod(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add(Change{Path: "/proj/a.md", RootPath: "/proj", Op: OpWrite})
	time.Sleep(testInterval / 2)
	d.Add(Change{Path: "/proj/b.md", RootPath: "/proj", Op: OpWrite})

	batch := receiveBatch(t, d, 500*time.Millisecond)

	if len(batch) != 2 {
		t.Fatalf("expected both changes in a single batch, got %d", len(batch))
	}
}

func Test_Debouncer_StalledConsumerNeverBlocksAdd(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	defer d.Stop()

	// Nobody reading: fill the output buffer and leave one flush blocked
	// mid-send.
	for i := 0; i < 20; i++ {
		d.Add(Change{Path: fmt.Sprintf("/proj/f%d.md", i), RootPath: "/proj", Op: OpWrite})
		time.Sleep(10 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		d.Add(Change{Path: "/proj/late.md", RootPath: "/proj", Op: OpWrite})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Add blocked behind a stalled flush")
	}
}

func Test_Debouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add(Change{Path: "/proj/a.md", RootPath: "/proj", Op: OpWrite})
	d.Stop()

	// Adds after Stop are dropped, the channel is closed.
	d.Add(Change{Path: "/proj/b.md", RootPath: "/proj", Op: OpWrite})

	select {
	case batch, ok := <-d.Output():
		if ok {
			t.Errorf("expected closed channel, got batch %v", batch)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}
