// Package docs registers the OpenAPI document served at /swagger/doc.json.
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
        "/api/token/request": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Request a one-time voting token",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"election_id": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "token issued exactly once"},
                    "401": {"description": "unauthenticated"},
                    "403": {"description": "not eligible"},
                    "404": {"description": "unknown election"},
                    "409": {"description": "live token already issued"}
                }
            }
        },
        "/api/my-status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Token status for the calling member",
                "parameters": [{"name": "election_id", "in": "query", "type": "string", "required": true}],
                "responses": {"200": {"description": "status"}}
            }
        },
        "/api/admin/reset-election": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Reset issued tokens (scope mine or all)",
                "responses": {
                    "200": {"description": "deletion counts"},
                    "403": {"description": "refused by role or production guardrail"}
                }
            }
        },
        "/api/elections": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "List visible elections",
                "parameters": [{"name": "include_hidden", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "elections"}}
            }
        },
        "/api/elections/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Fetch one election",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "election"}, "404": {"description": "unknown or hidden"}}
            }
        },
        "/api/elections/{id}/ballot": {
            "post": {
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Record a ballot (member credential or one-time token)",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "recorded"},
                    "409": {"description": "already voted or token spent"},
                    "422": {"description": "ballot payload invalid"}
                }
            }
        },
        "/api/elections/{id}/results": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Tabulated results",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "results"}, "403": {"description": "not closed yet"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Kosning Voting API",
	Description:      "Token issuance (Events) and anonymous balloting (Elections).",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
