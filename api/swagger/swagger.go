package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clinic Scheduling API",
        "description": "Appointment slot availability, tentative holds and booking commits",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Doctor Schedules", "description": "Weekly templates, overrides and forced blocks"},
        {"name": "Appointment Slots", "description": "Availability search and tentative holds"},
        {"name": "Commands", "description": "Booking commit and cancel commands"}
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
        "/doctor-schedules": {
            "get": {
                "tags": ["Doctor Schedules"],
                "summary": "List base schedules",
                "parameters": [
                    {"name": "doctor_profile_id", "in": "query", "type": "string"},
                    {"name": "location_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Doctor Schedules"],
                "summary": "Create base schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBaseScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlapping schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctor-schedules/{id}": {
            "delete": {
                "tags": ["Doctor Schedules"],
                "summary": "Deactivate base schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/doctor-schedules/overrides": {
            "get": {
                "tags": ["Doctor Schedules"],
                "summary": "List schedule overrides",
                "parameters": [
                    {"name": "doctor_profile_id", "in": "query", "type": "string"},
                    {"name": "start_date", "in": "query", "type": "string"},
                    {"name": "end_date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Doctor Schedules"],
                "summary": "Create schedule override",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOverrideRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctor-schedules/forced-blocks": {
            "get": {
                "tags": ["Doctor Schedules"],
                "summary": "List a doctor's forced blocks in a date range",
                "parameters": [
                    {"name": "doctor_profile_id", "in": "query", "required": true, "type": "string"},
                    {"name": "start_date", "in": "query", "type": "string"},
                    {"name": "end_date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Doctor Schedules"],
                "summary": "Create forced block",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateForcedBlockRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctor-schedules/regenerate": {
            "post": {
                "tags": ["Doctor Schedules"],
                "summary": "Regenerate slots for a doctor and date range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegenerateSlotsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/doctor-schedules/export": {
            "get": {
                "tags": ["Doctor Schedules"],
                "summary": "Export a doctor's schedule as CSV or PDF",
                "parameters": [
                    {"name": "doctor_profile_id", "in": "query", "required": true, "type": "string"},
                    {"name": "start_date", "in": "query", "required": true, "type": "string"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/appointment-slots/availability": {
            "get": {
                "tags": ["Appointment Slots"],
                "summary": "Search bookable slots",
                "parameters": [
                    {"name": "doctor_profile_id", "in": "query", "type": "string"},
                    {"name": "location_id", "in": "query", "type": "string"},
                    {"name": "specialty", "in": "query", "type": "string"},
                    {"name": "start_date", "in": "query", "type": "string"},
                    {"name": "end_date", "in": "query", "type": "string"},
                    {"name": "consultation_mode", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointment-slots/admin/search": {
            "get": {
                "tags": ["Appointment Slots"],
                "summary": "Search all slots including blocked and full ones",
                "parameters": [
                    {"name": "doctor_profile_id", "in": "query", "type": "string"},
                    {"name": "location_id", "in": "query", "type": "string"},
                    {"name": "start_date", "in": "query", "type": "string"},
                    {"name": "end_date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointment-slots/{id}": {
            "get": {
                "tags": ["Appointment Slots"],
                "summary": "Get a slot with live remaining capacity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointment-slots/{id}/hold": {
            "post": {
                "tags": ["Appointment Slots"],
                "summary": "Acquire a tentative hold on a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateHoldRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Appointment Slots"],
                "summary": "Release the caller's active holds on a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Released"}
                }
            }
        },
        "/appointment-slots/{id}/holds": {
            "get": {
                "tags": ["Appointment Slots"],
                "summary": "List active holds on a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/holds/{id}": {
            "get": {
                "tags": ["Appointment Slots"],
                "summary": "Get a hold by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointment-slots/{id}/block": {
            "post": {
                "tags": ["Appointment Slots"],
                "summary": "Manually block a slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BlockSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commands/schedule-appointment": {
            "post": {
                "tags": ["Commands"],
                "summary": "Convert a hold into a confirmed appointment",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Command"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Capacity exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Hold expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commands/cancel-appointment": {
            "post": {
                "tags": ["Commands"],
                "summary": "Cancel a confirmed appointment",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Command"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments/{id}": {
            "get": {
                "tags": ["Commands"],
                "summary": "Get an appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateBaseScheduleRequest": {
            "type": "object",
            "properties": {
                "doctor_profile_id": {"type": "string"},
                "location_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "slot_duration_minutes": {"type": "integer"},
                "buffer_time_minutes": {"type": "integer"},
                "max_appointments_per_slot": {"type": "integer"},
                "consultation_mode": {"type": "string"},
                "max_in_person_capacity": {"type": "integer"},
                "max_tele_capacity": {"type": "integer"},
                "effective_from": {"type": "string"},
                "effective_until": {"type": "string"}
            },
            "required": ["doctor_profile_id", "location_id", "start_time", "end_time", "slot_duration_minutes", "max_appointments_per_slot", "consultation_mode", "effective_from"]
        },
        "CreateOverrideRequest": {
            "type": "object",
            "properties": {
                "doctor_profile_id": {"type": "string"},
                "location_id": {"type": "string"},
                "override_date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "slot_duration_minutes": {"type": "integer"},
                "buffer_time_minutes": {"type": "integer"},
                "max_appointments_per_slot": {"type": "integer"},
                "consultation_mode": {"type": "string"},
                "max_in_person_capacity": {"type": "integer"},
                "max_tele_capacity": {"type": "integer"},
                "reason": {"type": "string"}
            },
            "required": ["doctor_profile_id", "location_id", "override_date", "start_time", "end_time", "slot_duration_minutes", "max_appointments_per_slot", "consultation_mode"]
        },
        "CreateForcedBlockRequest": {
            "type": "object",
            "properties": {
                "doctor_profile_id": {"type": "string"},
                "start_datetime": {"type": "string"},
                "end_datetime": {"type": "string"},
                "reason": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["doctor_profile_id", "start_datetime", "end_datetime", "reason"]
        },
        "RegenerateSlotsRequest": {
            "type": "object",
            "properties": {
                "doctor_profile_id": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["doctor_profile_id", "start_date", "end_date"]
        },
        "CreateHoldRequest": {
            "type": "object",
            "properties": {
                "patient_id": {"type": "string"},
                "hold_type": {"type": "string", "enum": ["patient_booking", "admin_booking", "system_reservation"]},
                "consultation_mode": {"type": "string"},
                "hold_duration_minutes": {"type": "integer"},
                "notes": {"type": "string"}
            },
            "required": ["hold_type"]
        },
        "BlockSlotRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["reason"]
        },
        "Command": {
            "type": "object",
            "properties": {
                "command_id": {"type": "string"},
                "idempotency_key": {"type": "string"},
                "aggregate_id": {"type": "string"},
                "payload": {"type": "object"}
            },
            "required": ["command_id", "idempotency_key", "payload"]
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
