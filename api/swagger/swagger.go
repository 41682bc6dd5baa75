package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Visit & Internship Intake API",
        "description": "Slot-limited visit booking and internship applications with admin review.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Visits", "description": "Visit booking and review"},
        {"name": "Internships", "description": "Internship applications and review"},
        {"name": "Status", "description": "Applicant status lookup"},
        {"name": "Reports", "description": "Statistics and exports"},
        {"name": "Notifications", "description": "Pending request feed"}
    ],
    "paths": {
        "/visits/availability/{date}": {
            "get": {
                "tags": ["Visits"],
                "summary": "Slot availability for a date",
                "parameters": [
                    {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "INVALID_DATE, PAST_DATE or NON_BUSINESS_DAY", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/visits": {
            "post": {
                "tags": ["Visits"],
                "summary": "Book a visit",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "organizationName", "in": "formData", "required": true, "type": "string"},
                    {"name": "contactPerson", "in": "formData", "required": true, "type": "string"},
                    {"name": "email", "in": "formData", "required": true, "type": "string"},
                    {"name": "phone", "in": "formData", "required": true, "type": "string"},
                    {"name": "participantCount", "in": "formData", "required": true, "type": "integer"},
                    {"name": "visitDate", "in": "formData", "required": true, "type": "string", "format": "date"},
                    {"name": "session", "in": "formData", "required": true, "type": "string", "enum": ["SESSION_1", "SESSION_2"]},
                    {"name": "introductionLetter", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "SLOT_FULL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "RATE_LIMITED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Visits"],
                "summary": "List visits",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/visits/{id}/status": {
            "put": {
                "tags": ["Visits"],
                "summary": "Accept, reject or reopen a visit",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data", "application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "status", "in": "formData", "required": true, "type": "string", "enum": ["PENDING", "ACCEPTED", "REJECTED"]},
                    {"name": "reason", "in": "formData", "type": "string"},
                    {"name": "responseLetter", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "INVALID_TRANSITION or SLOT_FULL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/visits/{id}/schedule": {
            "patch": {
                "tags": ["Visits"],
                "summary": "Move a visit to another slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleVisitRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/internships": {
            "post": {
                "tags": ["Internships"],
                "summary": "Submit an internship application",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "coverLetter", "in": "formData", "required": true, "type": "file"},
                    {"name": "cv", "in": "formData", "required": true, "type": "file"},
                    {"name": "transcript", "in": "formData", "required": true, "type": "file"},
                    {"name": "studentCard", "in": "formData", "required": true, "type": "file"},
                    {"name": "idPhoto", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "MISSING_ARTIFACT or VALIDATION_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/internships/{id}/status": {
            "put": {
                "tags": ["Internships"],
                "summary": "Approve, reject or reopen an application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusUpdate"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/status-check": {
            "post": {
                "tags": ["Status"],
                "summary": "Look up the latest request by applicant keyword",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/visit-response/{id}": {
            "get": {
                "tags": ["Visits"],
                "summary": "Download a response letter through a signed link",
                "produces": ["application/pdf", "image/png", "image/jpeg"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "File"}, "403": {"description": "Expired or invalid link"}}
            }
        },
        "/statistics": {
            "get": {
                "tags": ["Reports"],
                "summary": "Request counts per status",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/{type}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export requests as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "type", "in": "path", "required": true, "type": "string", "enum": ["visit", "internship"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Requests awaiting review",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/stream": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Server-sent events for pending request changes",
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "responses": {"200": {"description": "Event stream"}}
            }
        }
    },
    "definitions": {
        "RescheduleVisitRequest": {
            "type": "object",
            "properties": {
                "visitDate": {"type": "string", "format": "date"},
                "session": {"type": "string", "enum": ["SESSION_1", "SESSION_2"]}
            }
        },
        "StatusUpdate": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "StatusCheckRequest": {
            "type": "object",
            "required": ["type", "keyword"],
            "properties": {
                "type": {"type": "string", "enum": ["visit", "internship"]},
                "keyword": {"type": "string", "minLength": 3}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
