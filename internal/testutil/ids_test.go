package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs_StartsAtOne(t *testing.T) {
	ids := NewSequentialIDs("")
	assert.Equal(t, int64(0), ids.Issued())
	assert.Equal(t, "ctx-1", ids.Next())
	assert.Equal(t, "ctx-2", ids.Next())
	assert.Equal(t, int64(2), ids.Issued())
}

func TestSequentialIDs_Reset(t *testing.T) {
	ids := NewSequentialIDs("live")
	ids.Next()
	ids.Next()
	ids.Reset()
	assert.Equal(t, "live-1", ids.Next())
}

func TestSequentialIDs_ConcurrentAccess(t *testing.T) {
	ids := NewSequentialIDs("c")

	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(ids.Next(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), ids.Issued())
}
