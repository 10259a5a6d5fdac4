// Package docs registers the OpenAPI document served under /docs.
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
        "/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {
                        "description": "User registration details",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.registerRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.PublicUser"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.detailResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.detailResponse"}}
                }
            }
        },
        "/token": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Obtain an access and a refresh token",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true},
                    {"type": "string", "description": "Must be password when present", "name": "grant_type", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.TokenPair"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.oauthErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.oauthErrorResponse"}}
                }
            }
        },
        "/refresh": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh the access token",
                "parameters": [
                    {
                        "description": "Refresh token",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.refreshRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.AccessGrant"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.oauthErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.detailResponse"}}
                }
            }
        },
        "/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.detailResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PublicUser"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.detailResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.detailResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "Offset", "name": "skip", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "boolean", "description": "Filter by active flag", "name": "is_active", "in": "query"},
                    {"type": "boolean", "description": "Filter by superuser flag", "name": "is_superuser", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.PublicUser"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.detailResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.detailResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.detailResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.detailResponse": {
            "type": "object",
            "properties": {"detail": {"type": "string"}}
        },
        "api.oauthErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "error_description": {"type": "string"}}
        },
        "domain.AccessGrant": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_in": {"type": "integer"},
                "token_type": {"type": "string"}
            }
        },
        "domain.PublicUser": {
            "type": "object",
            "properties": {
                "disabled": {"type": "boolean"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "domain.TokenPair": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_in": {"type": "integer"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"}
            }
        },
        "handler.messageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "handler.refreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["email", "full_name", "password", "username"],
            "properties": {
                "email": {"type": "string"},
                "full_name": {"type": "string", "maxLength": 100, "minLength": 1},
                "password": {"type": "string", "minLength": 8},
                "username": {"type": "string", "maxLength": 50, "minLength": 3}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Auth API",
	Description:      "Token authentication service: registration, OAuth2 password grant, refresh, logout and profile.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
