package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutor Center API",
        "description": "Back-office API for course booking, attendance and parent reminders",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Staff login and session info"},
        {"name": "Bookings", "description": "Booking mutation, conflict checks and day sheets"},
        {"name": "Guardians", "description": "Guardian messaging identities"},
        {"name": "Reminders", "description": "Class reminder dispatcher"},
        {"name": "Webhook", "description": "LINE webhook callbacks"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/bookings/{id}": {
            "patch": {
                "tags": ["Bookings"],
                "summary": "Update a booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBookingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict or already confirmed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/bookings/check-conflicts": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Check booking candidates for conflicts",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckConflictsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/bookings/day-sheet": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Day sheet for the front desk",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/guardians/{id}/line-identity": {
            "post": {
                "tags": ["Guardians"],
                "summary": "Link a LINE identity to a guardian",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BindIdentityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Identity taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reminders/run": {
            "post": {
                "tags": ["Reminders"],
                "summary": "Run the reminder dispatcher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/RunRemindersRequest"}}
                ],
                "responses": {
                    "200": {"description": "Run report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/reminders/test": {
            "post": {
                "tags": ["Reminders"],
                "summary": "Send one test reminder",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TestReminderRequest"}}
                ],
                "responses": {
                    "204": {"description": "Sent"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/line/webhook": {
            "post": {
                "tags": ["Webhook"],
                "summary": "LINE webhook endpoint",
                "responses": {
                    "200": {"description": "Processed"},
                    "400": {"description": "Bad signature"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UpdateBookingRequest": {
            "type": "object",
            "properties": {
                "attendance": {"type": "string", "enum": ["pending", "confirmed", "present", "absent", "cancelled"]},
                "remark": {"type": "string"},
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "room": {"type": "string"},
                "teacher_id": {"type": "integer"}
            }
        },
        "CheckConflictsRequest": {
            "type": "object",
            "required": ["candidates"],
            "properties": {
                "candidates": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/BookingCandidate"}
                }
            }
        },
        "BookingCandidate": {
            "type": "object",
            "required": ["date", "start_time", "end_time", "room", "student_id"],
            "properties": {
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "room": {"type": "string"},
                "teacher_id": {"type": "integer"},
                "student_id": {"type": "integer"},
                "exclude_id": {"type": "integer"}
            }
        },
        "BindIdentityRequest": {
            "type": "object",
            "required": ["line_user_id"],
            "properties": {
                "line_user_id": {"type": "string"}
            }
        },
        "RunRemindersRequest": {
            "type": "object",
            "properties": {
                "offset_days": {"type": "integer"}
            }
        },
        "TestReminderRequest": {
            "type": "object",
            "required": ["guardian_id", "booking_id"],
            "properties": {
                "guardian_id": {"type": "integer"},
                "booking_id": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
