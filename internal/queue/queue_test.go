package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[record]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Take(0))
}

func TestQueue_PushTakeAll(t *testing.T) {
	q := New[record]()
	q.Push(record{ID: 1})
	q.Push(record{ID: 2}, record{ID: 3})

	got := q.Take(0)
	assert.Equal(t, []record{{ID: 1}, {ID: 2}, {ID: 3}}, got)
	assert.True(t, q.Empty())
}

func TestQueue_TakeBounded(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	assert.Equal(t, []int{1, 2}, q.Take(2))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{3, 4, 5}, q.Take(10))
	assert.True(t, q.Empty())
}

func TestQueue_TakeBoundedDoesNotAlias(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	first := q.Take(1)
	q.Push(9)
	first[0] = 100

	assert.Equal(t, []int{2, 3, 9}, q.Take(0))
}

func TestQueue_RequeueKeepsOrder(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.Take(2)
	q.Push(4)
	q.Requeue(batch)

	assert.Equal(t, []int{1, 2, 3, 4}, q.Take(0))
}

func TestQueue_RequeueEmpty(t *testing.T) {
	q := New[string]()
	q.Requeue(nil)
	assert.True(t, q.Empty())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(g*100 + i)
			}
		}(g)
	}

	var mu sync.Mutex
	taken := 0
	for g := 0; g < 5; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				n := len(q.Take(3))
				mu.Lock()
				taken += n
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1000, taken+q.Len())
}
