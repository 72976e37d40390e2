// Package docs registers the OpenAPI document served at /swagger/*.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {"get": {"tags": ["health"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}},
        "/health/ready": {"get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}},
        "/v1/quotes": {"post": {"security": [{"BearerAuth": []}], "tags": ["pricing"], "summary": "Price a prospective shipment", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid pricing input"}}}},
        "/v1/shipments": {"post": {"security": [{"BearerAuth": []}], "tags": ["shipments"], "summary": "Create a shipment", "responses": {"201": {"description": "Created"}, "200": {"description": "Idempotent replay"}, "422": {"description": "Validation failed"}}}},
        "/v1/shipments/{awb}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["shipments"], "summary": "Get a shipment by AWB", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["shipments"], "summary": "Edit a pending shipment", "responses": {"200": {"description": "OK"}, "409": {"description": "Shipment locked"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["shipments"], "summary": "Cancel a pending shipment", "responses": {"200": {"description": "OK"}, "409": {"description": "Shipment locked"}}}
        },
        "/v1/shipments/{awb}/status": {"post": {"security": [{"BearerAuth": []}], "tags": ["shipments"], "summary": "Move a shipment to its next status", "responses": {"200": {"description": "OK"}, "422": {"description": "Illegal transition"}}}},
        "/v1/shipments/{awb}/locations": {"get": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "Recent rider positions for a shipment", "responses": {"200": {"description": "OK"}}}},
        "/v1/locations": {"post": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "Report a rider GPS ping", "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid coordinate"}}}},
        "/v1/riders/{id}/location": {"get": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "Last known rider position", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/v1/events": {"post": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Ingest a scanner status event", "responses": {"202": {"description": "Accepted"}}}},
        "/v1/events/batch": {"post": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Ingest a batch of scanner status events", "responses": {"202": {"description": "Accepted"}}}},
        "/v1/tracking/active": {"get": {"security": [{"BearerAuth": []}], "tags": ["tracking"], "summary": "AWBs with live subscribers", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Courier Service API",
	Description:      "Shipment lifecycle, pricing and live AWB tracking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
