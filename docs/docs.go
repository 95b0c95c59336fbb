// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/audit/logs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Query audit logs",
                "parameters": [
                    {"type": "string", "name": "startTime", "in": "query", "description": "Inclusive start of event-time range (ISO 8601 or epoch milliseconds)"},
                    {"type": "string", "name": "endTime", "in": "query", "description": "Inclusive end of event-time range (ISO 8601 or epoch milliseconds)"},
                    {"type": "string", "name": "level", "in": "query", "enum": ["INFO", "WARN", "ERROR"]},
                    {"type": "string", "name": "employer", "in": "query"},
                    {"type": "string", "name": "actionType", "in": "query", "enum": ["stream_creation", "contract_interaction", "monitoring", "scheduling", "system"]},
                    {"type": "integer", "name": "limit", "in": "query", "description": "Page size (default: 1000)"},
                    {"type": "integer", "name": "offset", "in": "query", "description": "Entries to skip (default: 0)"}
                ],
                "responses": {
                    "200": {"description": "Matching audit entries"},
                    "400": {"description": "Invalid query parameters"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/v1/audit/logs/export": {
            "get": {
                "produces": ["application/json", "text/csv"],
                "tags": ["audit"],
                "summary": "Export audit logs",
                "parameters": [
                    {"type": "string", "name": "employer", "in": "query", "required": true},
                    {"type": "string", "name": "format", "in": "query", "enum": ["json", "csv"]},
                    {"type": "string", "name": "startTime", "in": "query"},
                    {"type": "string", "name": "endTime", "in": "query"},
                    {"type": "string", "name": "level", "in": "query"},
                    {"type": "string", "name": "actionType", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Serialized export document"},
                    "400": {"description": "Invalid query parameters"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/v1/audit/events": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Ingest a generic audit event",
                "responses": {
                    "202": {"description": "Event accepted"},
                    "400": {"description": "Malformed request body"}
                }
            }
        },
        "/api/v1/audit/events/stream-creation": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Ingest a stream creation event",
                "responses": {
                    "202": {"description": "Event accepted"},
                    "400": {"description": "Malformed request body"}
                }
            }
        },
        "/api/v1/audit/events/contract-interaction": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Ingest a contract interaction event",
                "responses": {
                    "202": {"description": "Event accepted"},
                    "400": {"description": "Malformed request body"}
                }
            }
        },
        "/api/v1/audit/events/scheduler": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Ingest a scheduler task event",
                "responses": {
                    "202": {"description": "Event accepted"},
                    "400": {"description": "Malformed request body"}
                }
            }
        },
        "/api/v1/audit/events/monitor": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Ingest a treasury monitor event",
                "responses": {
                    "202": {"description": "Event accepted"},
                    "400": {"description": "Malformed request body"}
                }
            }
        },
        "/api/v1/audit/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Audit pipeline statistics",
                "parameters": [
                    {"type": "string", "name": "startTime", "in": "query"},
                    {"type": "string", "name": "endTime", "in": "query"},
                    {"type": "string", "name": "employer", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Aggregated statistics"},
                    "400": {"description": "Invalid query parameters"},
                    "500": {"description": "Internal server error"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "StreamPay Audit Log API",
	Description:      "Structured audit logging for the StreamPay payroll-streaming backend: event ingestion, redaction, batched persistence, and compliance retrieval.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
