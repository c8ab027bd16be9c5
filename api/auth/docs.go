// Package auth holds the generated swagger registration for the auth
// service API. Regenerate with:
//
//	swag init -g cmd/auth/main.go -o api/auth --instanceName auth
package auth

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
        "/v1/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new account",
                "description": "Creates an enabled account with the default role and returns a token pair.",
                "parameters": [
                    {
                        "description": "Registration details",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.registerRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.tokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "description": "Verifies a username-or-email plus password pair and returns a token pair.",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.loginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.tokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.APIError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/auth/refresh": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh the session",
                "description": "Rotates the presented refresh token and returns a new token pair. The old token is revoked; reusing it fails.",
                "parameters": [
                    {
                        "description": "Refresh token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.refreshRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.tokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/auth/logout": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["auth"],
                "summary": "Log out",
                "description": "Revokes the presented refresh token. The access token stays valid until it expires.",
                "parameters": [
                    {
                        "description": "Refresh token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.refreshRequest"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/auth/password/change": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["password"],
                "summary": "Change password",
                "description": "Verifies the current password, stores the new one and revokes every refresh token.",
                "parameters": [
                    {
                        "description": "Current and new password",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.changePasswordRequest"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/auth/password/forgot": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["password"],
                "summary": "Request a password reset",
                "description": "Sends a reset token to the address when an account exists. Responds 202 either way.",
                "parameters": [
                    {
                        "description": "Account email",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.forgotPasswordRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/auth/password/reset": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["password"],
                "summary": "Reset password",
                "description": "Consumes a single-use reset token, stores the new password and revokes every refresh token.",
                "parameters": [
                    {
                        "description": "Reset token and new password",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.resetPasswordRequest"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/internal/users/by-username": {
            "get": {
                "security": [{"APIKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["internal"],
                "summary": "Look up a user by username (internal)",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.internalUserResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/internal/users/{id}": {
            "get": {
                "security": [{"APIKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["internal"],
                "summary": "Look up a user by id (internal)",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.internalUserResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/v1/internal/users/{id}/enabled": {
            "put": {
                "security": [{"APIKeyAuth": []}],
                "consumes": ["application/json"],
                "tags": ["internal"],
                "summary": "Enable or disable a user (internal)",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "id", "in": "path", "required": true},
                    {
                        "description": "Desired state",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.setEnabledRequest"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.APIError"}}
                }
            }
        },
        "/livez": {
            "get": {
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["system"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        }
    },
    "definitions": {
        "http.registerRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "http.loginRequest": {
            "type": "object",
            "properties": {
                "identifier": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "http.refreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "http.changePasswordRequest": {
            "type": "object",
            "properties": {
                "current_password": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "http.forgotPasswordRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"}
            }
        },
        "http.resetPasswordRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "http.setEnabledRequest": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"}
            }
        },
        "http.tokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "user_id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "http.internalUserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "enabled": {"type": "boolean"},
                "roles": {"type": "array", "items": {"type": "string"}}
            }
        },
        "httpx.APIError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "APIKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported swagger info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "EduStack Auth API",
	Description:      "Authentication and token lifecycle service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
