// Package docs registers the OpenAPI description of the campaign API with swag
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
        "/api/v1/admin/campaigns": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Campaigns"],
                "summary": "Admin List Campaigns",
                "parameters": [
                    {"type": "string", "description": "Filter by title (contains)", "name": "title", "in": "query"},
                    {"type": "string", "description": "Filter by status (draft|scheduled|sending|sent)", "name": "status", "in": "query"},
                    {"type": "string", "description": "Filter by target audience (all|customers|sellers)", "name": "target_audience", "in": "query"},
                    {"type": "string", "description": "newest|oldest", "name": "orderby", "in": "query"},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/campaigns/dispatch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Resolve the campaign audience, send one WhatsApp message per eligible recipient and record the outcome",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin Campaigns"],
                "summary": "Dispatch Campaign",
                "parameters": [
                    {"description": "Campaign to dispatch", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.DispatchCampaignRequest"}}
                ],
                "responses": {
                    "200": {"description": "Dispatch finished, possibly with failed recipients", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Invalid request, campaign already sent or no eligible recipients", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Caller is not an admin", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Campaign not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Dispatch already in progress", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/campaigns/{uuid}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Campaigns"],
                "summary": "Admin Get Campaign",
                "parameters": [{"type": "string", "description": "Campaign UUID", "name": "uuid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Invalid campaign id", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Campaign not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/campaigns/{uuid}/audience-preview": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Campaigns"],
                "summary": "Admin Audience Preview",
                "parameters": [{"type": "string", "description": "Campaign UUID", "name": "uuid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Campaign not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/campaigns/{uuid}/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Campaigns"],
                "summary": "Admin List Campaign Logs",
                "parameters": [
                    {"type": "string", "description": "Campaign UUID", "name": "uuid", "in": "path", "required": true},
                    {"type": "string", "description": "pending|sent|failed", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Invalid campaign id, status or pagination", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Campaign not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/campaigns/{uuid}/logs/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Admin Campaigns"],
                "summary": "Admin Export Campaign Logs (Excel)",
                "parameters": [{"type": "string", "description": "Campaign UUID", "name": "uuid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Excel file", "schema": {"type": "string"}},
                    "404": {"description": "Campaign not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {}
            }
        },
        "dto.DispatchCampaignRequest": {
            "type": "object",
            "required": ["campaignId"],
            "properties": {
                "campaignId": {"type": "string"},
                "campaign_id": {"type": "string", "description": "Accepted when campaignId is absent"}
            }
        },
        "dto.DispatchCampaignResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "campaignId": {"type": "string"},
                "totalRecipients": {"type": "integer"},
                "sentCount": {"type": "integer"},
                "deliveredCount": {"type": "integer"},
                "failedCount": {"type": "integer"},
                "segmentationCriteria": {"type": "object"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront Campaigns API",
	Description:      "Admin API for dispatching WhatsApp marketing campaigns to storefront customers and sellers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
