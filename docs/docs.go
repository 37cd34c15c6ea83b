// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login user",
                "parameters": [
                    {"description": "Login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout user",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Actor"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cases/submit": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Submit a case",
                "parameters": [
                    {"description": "Case data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SubmitCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.SubmitCaseResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cases": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "List cases",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.CaseSummary"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cases/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Get case by id",
                "parameters": [
                    {"type": "string", "description": "Case ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Case"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/cases/{id}/workflow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Perform a workflow action",
                "parameters": [
                    {"type": "string", "description": "Case ID", "name": "id", "in": "path", "required": true},
                    {"description": "Action", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.WorkflowActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.WorkflowActionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List assignable users",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.User"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/dashboard/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Dashboard statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.DashboardStats"}}
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "error": {"type": "string"}}
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "handler.UserInfo": {
            "type": "object",
            "properties": {"full_name": {"type": "string"}, "id": {"type": "string"}, "role": {"type": "string"}, "username": {"type": "string"}}
        },
        "handler.LoginResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_at": {"type": "string"},
                "token_type": {"type": "string"},
                "user": {"$ref": "#/definitions/handler.UserInfo"}
            }
        },
        "handler.SubmitCaseRequest": {
            "type": "object",
            "required": ["case_type", "submitter_data"],
            "properties": {
                "case_type": {"type": "string", "enum": ["birth_registration", "business_registration", "land_registration"]},
                "documents": {"type": "array", "items": {"type": "string"}},
                "submitted_by": {"type": "string"},
                "submitter_data": {"type": "object", "additionalProperties": true}
            }
        },
        "handler.SubmitCaseResponse": {
            "type": "object",
            "properties": {"case_id": {"type": "string"}, "case_number": {"type": "string"}, "success": {"type": "boolean"}}
        },
        "handler.WorkflowActionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["assign", "review", "approve", "reject", "request_documents"]},
                "assigned_team": {"type": "string"},
                "assigned_to": {"type": "string"},
                "comment": {"type": "string"}
            }
        },
        "handler.WorkflowActionResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "status": {"type": "string"}, "success": {"type": "boolean"}}
        },
        "model.Actor": {
            "type": "object",
            "properties": {"full_name": {"type": "string"}, "id": {"type": "string"}, "role": {"type": "string"}, "username": {"type": "string"}}
        },
        "model.WorkflowEvent": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "comment": {"type": "string"},
                "performed_by": {"type": "string"},
                "performed_by_name": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "model.Case": {
            "type": "object",
            "properties": {
                "assigned_team": {"type": "string"},
                "assigned_to": {"type": "string"},
                "case_number": {"type": "string"},
                "case_type": {"type": "string"},
                "created_at": {"type": "string"},
                "documents": {"type": "array", "items": {"type": "string"}},
                "id": {"type": "string"},
                "status": {"type": "string"},
                "submitted_by": {"type": "string"},
                "submitter_data": {"type": "object", "additionalProperties": true},
                "updated_at": {"type": "string"},
                "workflow_history": {"type": "array", "items": {"$ref": "#/definitions/model.WorkflowEvent"}}
            }
        },
        "model.CaseSummary": {
            "type": "object",
            "properties": {
                "assigned_team": {"type": "string"},
                "assigned_to": {"type": "string"},
                "case_number": {"type": "string"},
                "case_type": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "status": {"type": "string"},
                "submitted_by": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "model.DashboardStats": {
            "type": "object",
            "properties": {
                "by_status": {"type": "object", "additionalProperties": {"type": "integer"}},
                "by_type": {"type": "object", "additionalProperties": {"type": "integer"}},
                "my_assigned": {"type": "integer"}
            }
        },
        "model.User": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "id": {"type": "string"},
                "is_active": {"type": "boolean"},
                "role": {"type": "string"},
                "team": {"type": "string"},
                "updated_at": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8001",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Caseflow API",
	Description:      "Administrative case submission and workflow routing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
