package activity

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemcrud/internal/item"
)

func TestRecorder_RecordAndReadAll(t *testing.T) {
	r := NewRecorder(10)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6e6, time.UTC) }

	r.Record(ActionCreate, &item.Item{ID: "a", Name: "Widget"})
	r.Record(ActionUpdate, &item.Item{ID: "a", Name: "Widget2"})

	entries := r.ReadAll()
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCreate, entries[0].Action)
	assert.Equal(t, "Widget", entries[0].Item.Name)
	assert.Equal(t, ActionUpdate, entries[1].Action)
	assert.Equal(t, "Widget2", entries[1].Item.Name)
	assert.Equal(t, "2024-01-02T03:04:05.006Z", entries[0].Timestamp)
}

func TestRecorder_EvictsOldestBeyondCapacity(t *testing.T) {
	r := NewRecorder(0)
	require.Equal(t, DefaultCapacity, r.Capacity())

	for i := 0; i < DefaultCapacity+1; i++ {
		r.Record(ActionCreate, &item.Item{ID: fmt.Sprint(i)})
	}

	entries := r.ReadAll()
	require.Len(t, entries, DefaultCapacity)
	assert.Equal(t, "1", entries[0].Item.ID, "first entry should have been evicted")
	assert.Equal(t, fmt.Sprint(DefaultCapacity), entries[len(entries)-1].Item.ID)
}

func TestRecorder_SnapshotsAreIndependent(t *testing.T) {
	r := NewRecorder(5)
	it := &item.Item{ID: "a", Name: "before", Tags: []string{"x"}}
	r.Record(ActionCreate, it)

	it.Name = "after"
	it.Tags[0] = "y"

	got := r.ReadAll()[0].Item
	assert.Equal(t, "before", got.Name)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestRecorder_ReadAllReturnsCopy(t *testing.T) {
	r := NewRecorder(5)
	r.Record(ActionDelete, &item.Item{ID: "a"})

	entries := r.ReadAll()
	entries[0].Action = ActionCreate

	assert.Equal(t, ActionDelete, r.ReadAll()[0].Action)
}

func TestRecorder_ConcurrentRecordRespectsCapacity(t *testing.T) {
	r := NewRecorder(50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Record(ActionUpdate, &item.Item{ID: "x"})
				assert.LessOrEqual(t, r.Len(), 50)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}
