package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiveTopic(t *testing.T) {
	assert.Equal(t, "order:o-1", LiveTopic(AggregateOrder, "o-1"))
	assert.Equal(t, "payment:p-1", LiveTopic(AggregatePayment, "p-1"))
}

func TestRestaurantOrdersTopic(t *testing.T) {
	assert.Equal(t, "restaurant-orders:r-1", RestaurantOrdersTopic("r-1"))
}

func TestExtractRestaurantID(t *testing.T) {
	id, ok := extractRestaurantID([]byte(`{"orderId":"o-1","restaurantId":"r-1","totalMinor":1500}`))
	assert.True(t, ok)
	assert.Equal(t, "r-1", id)

	_, ok = extractRestaurantID([]byte(`{"orderId":"o-1"}`))
	assert.False(t, ok)

	_, ok = extractRestaurantID([]byte(`not-json`))
	assert.False(t, ok)
}
