package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ n int }
type pong struct{}

func TestSubscribePublish(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var got []int
	first := Subscribe(func(_ context.Context, p ping) { got = append(got, p.n) })
	second := Subscribe(func(_ context.Context, p ping) { got = append(got, -p.n) })
	pongs := 0
	Subscribe(func(context.Context, pong) { pongs++ })

	Publish(context.Background(), ping{n: 1})
	assert.Equal(t, []int{1, -1}, got)

	first()
	first()
	Publish(context.Background(), ping{n: 2})
	assert.Equal(t, []int{1, -1, -2}, got)
	assert.Zero(t, pongs)

	second()
	Publish(context.Background(), ping{n: 3})
	Publish(context.Background(), pong{})
	assert.Equal(t, []int{1, -1, -2}, got)
	assert.Equal(t, 1, pongs)
}

func TestDisabledBus(t *testing.T) {
	Use(nil)
	called := false
	unsubscribe := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsubscribe()
	assert.False(t, called)
}
