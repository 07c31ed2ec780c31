package transport

import (
	"testing"

	"foodcourt/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateOrderBody(t *testing.T) {
	valid := []byte(`{
		"restaurantId": "r-1",
		"customerName": "Ana",
		"customerPhone": "+381601234567",
		"deliveryType": "dine_in",
		"items": [{"productId": "prod-1", "quantity": 2}]
	}`)
	assert.NoError(t, validateCreateOrderBody(valid))

	t.Run("empty items rejected", func(t *testing.T) {
		body := []byte(`{
			"restaurantId": "r-1",
			"customerName": "Ana",
			"customerPhone": "+381601234567",
			"deliveryType": "dine_in",
			"items": []
		}`)
		err := validateCreateOrderBody(body)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.ValidationFailed))
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		body := []byte(`{
			"restaurantId": "r-1",
			"customerName": "Ana",
			"customerPhone": "+381601234567",
			"deliveryType": "dine_in",
			"items": [{"productId": "prod-1", "quantity": 0}]
		}`)
		assert.Error(t, validateCreateOrderBody(body))
	})

	t.Run("unknown delivery type rejected", func(t *testing.T) {
		body := []byte(`{
			"restaurantId": "r-1",
			"customerName": "Ana",
			"customerPhone": "+381601234567",
			"deliveryType": "drone",
			"items": [{"productId": "prod-1", "quantity": 1}]
		}`)
		assert.Error(t, validateCreateOrderBody(body))
	})

	t.Run("missing restaurant rejected with field details", func(t *testing.T) {
		body := []byte(`{
			"customerName": "Ana",
			"customerPhone": "+381601234567",
			"deliveryType": "takeaway",
			"items": [{"productId": "prod-1", "quantity": 1}]
		}`)
		err := validateCreateOrderBody(body)
		require.Error(t, err)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.NotEmpty(t, appErr.Details)
	})
}

func TestValidateCreateInviteBody(t *testing.T) {
	valid := []byte(`{
		"restaurantId": "r-1",
		"grantedRole": "cook",
		"expiresAt": "2026-09-01T00:00:00Z",
		"maxUses": 3
	}`)
	assert.NoError(t, validateCreateInviteBody(valid))

	t.Run("unknown role rejected", func(t *testing.T) {
		body := []byte(`{
			"restaurantId": "r-1",
			"grantedRole": "astronaut",
			"expiresAt": "2026-09-01T00:00:00Z",
			"maxUses": 1
		}`)
		assert.Error(t, validateCreateInviteBody(body))
	})

	t.Run("zero maxUses rejected", func(t *testing.T) {
		body := []byte(`{
			"restaurantId": "r-1",
			"grantedRole": "cook",
			"expiresAt": "2026-09-01T00:00:00Z",
			"maxUses": 0
		}`)
		assert.Error(t, validateCreateInviteBody(body))
	})
}
