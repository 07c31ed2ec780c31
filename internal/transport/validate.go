package transport

import (
	"fmt"
	"sync"

	"foodcourt/internal/apperr"

	"github.com/xeipuuv/gojsonschema"
)

// Request-body schema validation for the two structurally complex inbound
// payloads, ahead of business-rule validation: shape errors are caught
// before any domain code runs.

const createOrderSchemaJSON = `{
	"type": "object",
	"required": ["restaurantId", "customerName", "customerPhone", "deliveryType", "items"],
	"properties": {
		"restaurantId": {"type": "string", "minLength": 1},
		"tableId": {"type": ["string", "null"]},
		"customerName": {"type": "string", "minLength": 1},
		"customerPhone": {"type": "string", "minLength": 1},
		"deliveryType": {"type": "string", "enum": ["dine_in", "takeaway"]},
		"specialInstructions": {"type": ["string", "null"]},
		"items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["productId", "quantity"],
				"properties": {
					"productId": {"type": "string", "minLength": 1},
					"variantLabel": {"type": ["string", "null"]},
					"quantity": {"type": "integer", "minimum": 1},
					"specialInstructions": {"type": ["string", "null"]}
				}
			}
		}
	}
}`

const createInviteSchemaJSON = `{
	"type": "object",
	"required": ["restaurantId", "grantedRole", "expiresAt", "maxUses"],
	"properties": {
		"restaurantId": {"type": "string", "minLength": 1},
		"grantedRole": {"type": "string", "enum": ["manager", "cashier", "cook", "waiter", "cleaner"]},
		"hourlyWageMinor": {"type": ["integer", "null"]},
		"expiresAt": {"type": "string", "minLength": 1},
		"maxUses": {"type": "integer", "minimum": 1}
	}
}`

var (
	createOrderSchemaOnce sync.Once
	createOrderSchema     gojsonschema.JSONLoader

	createInviteSchemaOnce sync.Once
	createInviteSchema     gojsonschema.JSONLoader
)

func validateAgainstSchema(once *sync.Once, loader *gojsonschema.JSONLoader, schemaJSON string, body []byte) error {
	once.Do(func() {
		*loader = gojsonschema.NewStringLoader(schemaJSON)
	})

	result, err := gojsonschema.Validate(*loader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "schema validation failed", err)
	}
	if !result.Valid() {
		details := make(map[string]any, len(result.Errors()))
		for _, e := range result.Errors() {
			details[e.Field()] = e.Description()
		}
		return apperr.New(apperr.ValidationFailed, fmt.Sprintf("request body failed schema validation (%d errors)", len(result.Errors()))).WithDetails(details)
	}
	return nil
}

func validateCreateOrderBody(body []byte) error {
	return validateAgainstSchema(&createOrderSchemaOnce, &createOrderSchema, createOrderSchemaJSON, body)
}

func validateCreateInviteBody(body []byte) error {
	return validateAgainstSchema(&createInviteSchemaOnce, &createInviteSchema, createInviteSchemaJSON, body)
}
