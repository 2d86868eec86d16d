package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Attendance API",
        "description": "Attendance state machine, absence sweep and business-day calendar",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Bookings, check-in/out and status overrides"},
        {"name": "Holidays", "description": "Holiday calendar management"},
        {"name": "Calendar", "description": "Business-day arithmetic"},
        {"name": "Enrollments", "description": "Enrollment credit ledger"}
    ],
    "paths": {
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List the attendance records of a day",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attendance/bookings": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Book a student into a session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/check-in": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Check a student in to today's session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckInRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "INVALID_TRANSITION or CONCURRENT_MODIFICATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/{id}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get an attendance record",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/{id}/check-out": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Check a student out",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CheckOutRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attendance/{id}/status": {
            "patch": {
                "tags": ["Attendance"],
                "summary": "Override an attendance status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attendance/{id}/class-completed": {
            "patch": {
                "tags": ["Attendance"],
                "summary": "Mark whether the class was completed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassCompletedRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/attendance/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Download the attendance sheet of a day",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "Attendance sheet", "schema": {"type": "file"}}}
            }
        },
        "/attendance/export/links": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Publish the attendance sheet of a day behind a signed link",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "201": {"description": "Link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Publishing not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Download a published attendance sheet",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Attendance sheet", "schema": {"type": "file"}},
                    "404": {"description": "Unknown or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/sweep": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Run the absence sweep now",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SweepRequest"}}
                ],
                "responses": {"200": {"description": "Sweep report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/holidays": {
            "get": {
                "tags": ["Holidays"],
                "summary": "List holidays of a year",
                "parameters": [{"name": "year", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Holidays"],
                "summary": "Register a holiday",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateHolidayRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Date already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/holidays/{id}": {
            "delete": {
                "tags": ["Holidays"],
                "summary": "Delete a holiday",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/holidays/import": {
            "post": {
                "tags": ["Holidays"],
                "summary": "Import holidays from an iCalendar document",
                "consumes": ["text/calendar"],
                "responses": {"200": {"description": "Import result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/holidays/seed": {
            "post": {
                "tags": ["Holidays"],
                "summary": "Register the default public holidays",
                "parameters": [{"name": "year", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/is-holiday": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Check whether a date is a holiday",
                "parameters": [{"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/business-days": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Count business days in (start, end]",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "INVALID_RANGE", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/add-business-days": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Move n business days from a date",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "n", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/enrollment-end": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Last day of an enrollment lasting n business days",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "n", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{id}/adjustments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a student's enrollment adjustments",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/metrics/summary": {
            "get": {
                "summary": "Service counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "BookSessionRequest": {
            "type": "object",
            "required": ["student_id", "schedule_id", "session_date"],
            "properties": {
                "student_id": {"type": "string"},
                "schedule_id": {"type": "string"},
                "session_date": {"type": "string", "format": "date"},
                "memo": {"type": "string"}
            }
        },
        "CheckInRequest": {
            "type": "object",
            "required": ["student_id", "schedule_id"],
            "properties": {
                "student_id": {"type": "string"},
                "schedule_id": {"type": "string"},
                "expected_leave_time": {"type": "string", "example": "12:30"}
            }
        },
        "CheckOutRequest": {
            "type": "object",
            "properties": {
                "time": {"type": "string", "format": "date-time"}
            }
        },
        "ManualStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["PRESENT", "LATE", "ABSENT", "EXCUSED", "EARLY_LEAVE"]},
                "reason": {"type": "string"}
            }
        },
        "ClassCompletedRequest": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"}
            }
        },
        "SweepRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"}
            }
        },
        "CreateHolidayRequest": {
            "type": "object",
            "required": ["date", "name"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "name": {"type": "string"},
                "is_recurring": {"type": "boolean"},
                "description": {"type": "string"}
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
