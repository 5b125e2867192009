package collection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncMap_PutIfAbsent(t *testing.T) {
	m := NewSyncMap[string, int]()
	var wg sync.WaitGroup
	stored := make([]bool, 8)
	for i := range stored {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, stored[i] = m.PutIfAbsent("key", i)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range stored {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, m.Len())

	m.Delete("key")
	_, ok := m.Get("key")
	assert.False(t, ok)
}

func TestSyncMap_Range(t *testing.T) {
	m := NewSyncMap[int, string]()
	m.Put(1, "a")
	m.Put(2, "b")
	m.Put(3, "c")

	visited := 0
	m.Range(func(key int, value string) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
