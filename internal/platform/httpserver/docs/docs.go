// Package docs holds the generated OpenAPI document served at /swagger/.
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
    "paths": {
        "/v1/constitutions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["constitutions"],
                "summary": "Found a constitution with its tier ladder",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/constitutions/resolve": {
            "get": {
                "produces": ["application/json"],
                "tags": ["constitutions"],
                "summary": "Resolve a constitution by slug, or the default when absent",
                "parameters": [
                    {"type": "string", "name": "slug", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/constitutions/{constitution_id}/tiers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tiers"],
                "summary": "List the tier ladder",
                "parameters": [
                    {"type": "string", "name": "constitution_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/constitutions/{constitution_id}/tiers/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tiers"],
                "summary": "Per-tier member counts",
                "parameters": [
                    {"type": "string", "name": "constitution_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/constitutions/{constitution_id}/tiers/{level}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tiers"],
                "summary": "Get one tier",
                "parameters": [
                    {"type": "string", "name": "constitution_id", "in": "path", "required": true},
                    {"type": "integer", "name": "level", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/constitutions/{constitution_id}/tiers/{level}/members": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tiers"],
                "summary": "List agents at a tier",
                "parameters": [
                    {"type": "string", "name": "constitution_id", "in": "path", "required": true},
                    {"type": "integer", "name": "level", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/constitutions/{constitution_id}/agents": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["agents"],
                "summary": "Register an agent at the bootstrap tier",
                "parameters": [
                    {"type": "string", "name": "constitution_id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/constitutions/{constitution_id}/promotions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["promotions"],
                "summary": "Open a promotion for a candidate",
                "parameters": [
                    {"type": "string", "name": "constitution_id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/promotions/{promotion_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["promotions"],
                "summary": "Get a promotion with its live tally",
                "parameters": [
                    {"type": "string", "name": "promotion_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/promotions/{promotion_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["promotions"],
                "summary": "Cast or replace a vote on an open promotion",
                "parameters": [
                    {"type": "string", "name": "promotion_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/promotions/{promotion_id}/withdraw": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["promotions"],
                "summary": "Withdraw an open promotion",
                "parameters": [
                    {"type": "string", "name": "promotion_id", "in": "path", "required": true},
                    {"type": "string", "name": "X-Admin-Id", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/promotions/{promotion_id}/resolve": {
            "post": {
                "produces": ["application/json"],
                "tags": ["promotions"],
                "summary": "Tally and resolve a promotion",
                "parameters": [
                    {"type": "string", "name": "promotion_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
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
	Title:            "Concord Governance API",
	Description:      "Constitution registry and tier promotion engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
