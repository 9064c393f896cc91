package httpgin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_NotifiesSubscribersOfEvent(t *testing.T) {
	h := NewHub()

	a, cancelA := h.Subscribe(1)
	defer cancelA()
	b, cancelB := h.Subscribe(2)
	defer cancelB()

	h.InventoryChanged(context.Background(), 1)
	h.InventoryChanged(context.Background(), 1)

	assert.Len(t, a, 1, "signals coalesce")
	assert.Len(t, b, 0)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe(1)
	assert.Equal(t, 1, h.Subscribers(1))

	cancel()
	assert.Equal(t, 0, h.Subscribers(1))

	h.InventoryChanged(context.Background(), 1)
}
