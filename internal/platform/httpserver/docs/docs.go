// Package docs holds the generated OpenAPI document served at /swagger/.
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
        "/api/v1/polls": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Open a blind conviction poll on a deal",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "X-Firm-Id", "in": "header", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/v1/polls/{poll_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Fetch one poll with its vote count",
                "parameters": [
                    {"type": "string", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/v1/deals/{deal_id}/polls": {
            "get": {
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "List a deal's polls, newest first",
                "parameters": [
                    {"type": "string", "name": "deal_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/polls/{poll_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Submit or update the caller's vote",
                "parameters": [
                    {"type": "string", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            },
            "get": {
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "List votes the caller may see",
                "parameters": [
                    {"type": "string", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/polls/{poll_id}/votes/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Fetch the caller's own vote",
                "parameters": [
                    {"type": "string", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/v1/polls/{poll_id}/reveal": {
            "post": {
                "produces": ["application/json"],
                "tags": ["polls"],
                "summary": "Reveal a poll once its vote threshold is met",
                "parameters": [
                    {"type": "string", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/api/v1/polls/{poll_id}/divergence": {
            "get": {
                "produces": ["application/json"],
                "tags": ["divergence"],
                "summary": "Divergence summary for a revealed poll",
                "parameters": [
                    {"type": "string", "name": "poll_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/api/v1/divergence/attention": {
            "get": {
                "produces": ["application/json"],
                "tags": ["divergence"],
                "summary": "Revealed polls with high divergence",
                "parameters": [
                    {"type": "integer", "name": "min_divergence", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Dealdesk Conviction Polling API",
	Description:      "Blind conviction polling and divergence reveal for IC deal review.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
