package convctx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
)

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	h, created := m.GetOrCreate(ctx, "s1", generate.System("seed"))
	assert.True(t, created)
	assert.Equal(t, []generate.Message{generate.System("seed")}, h)

	h[0].Content = "mutated"
	h, created = m.GetOrCreate(ctx, "s1", generate.System("other seed"))
	assert.False(t, created)
	assert.Equal(t, "seed", h[0].Content)
	assert.Equal(t, 1, m.Len())
}

func TestAppendAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	err := m.Append(ctx, "missing", generate.User("hi"))
	assert.ErrorIs(t, err, ErrContextNotFound)

	m.GetOrCreate(ctx, "s1", generate.System("seed"))
	require.NoError(t, m.Append(ctx, "s1", generate.User("answer"), generate.Assistant("question")))
	h, _ := m.GetOrCreate(ctx, "s1")
	assert.Len(t, h, 3)

	m.Clear(ctx, "s1")
	assert.Equal(t, 0, m.Len())
	_, created := m.GetOrCreate(ctx, "s1")
	assert.True(t, created)
}

func TestTrimKeepsSeed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)
	m.GetOrCreate(ctx, "s1", generate.System("seed"))
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Append(ctx, "s1", generate.User(fmt.Sprint(i))))
	}
	h, _ := m.GetOrCreate(ctx, "s1")
	require.Len(t, h, 4)
	assert.Equal(t, "seed", h[0].Content)
	assert.Equal(t, []string{"7", "8", "9"}, []string{h[1].Content, h[2].Content, h[3].Content})
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	m.GetOrCreate(ctx, "s1", generate.System("seed"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.Append(ctx, "s1", generate.User(fmt.Sprint(i)), generate.Assistant(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	h, _ := m.GetOrCreate(ctx, "s1")
	require.Len(t, h, 101)
	for i := 1; i < len(h); i += 2 {
		assert.Equal(t, generate.RoleUser, h[i].Role)
		assert.Equal(t, generate.RoleAssistant, h[i+1].Role)
		assert.Equal(t, h[i].Content, h[i+1].Content)
	}
}
