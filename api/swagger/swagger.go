package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Trazio API",
        "description": "Academic social tracking platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Registration and login"},
        {"name": "Curriculum", "description": "Curriculum catalog"},
        {"name": "Onboarding", "description": "Profile completion and enrollment matching"},
        {"name": "Profile", "description": "Student and teacher profiles"},
        {"name": "Artifacts", "description": "Exams, assignments and projects"},
        {"name": "Feed", "description": "Aggregated activity feed"},
        {"name": "Social", "description": "Likes, comments and highlights"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/curricula": {
            "get": {
                "tags": ["Curriculum"],
                "summary": "List curricula",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/curricula/{id}/subjects": {
            "get": {
                "tags": ["Curriculum"],
                "summary": "List curriculum subjects",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "semester", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/onboarding/student": {
            "post": {
                "tags": ["Onboarding"],
                "summary": "Complete student onboarding",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentOnboardingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Profile already completed"}
                }
            }
        },
        "/onboarding/teacher": {
            "post": {
                "tags": ["Onboarding"],
                "summary": "Complete teacher onboarding",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TeacherOnboardingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Subject already claimed"}
                }
            }
        },
        "/posts": {
            "get": {
                "tags": ["Feed"],
                "summary": "List feed",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "hashtag", "in": "query", "type": "string"},
                    {"name": "author_id", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Feed"],
                "summary": "Create post",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePostRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/posts/{id}/likes": {
            "post": {
                "tags": ["Social"],
                "summary": "Like post",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already liked"}
                }
            },
            "delete": {
                "tags": ["Social"],
                "summary": "Unlike post",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Like not found"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["full_name", "email", "password"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "StudentOnboardingRequest": {
            "type": "object",
            "properties": {
                "curriculum_id": {"type": "string"},
                "current_semester": {"type": "integer"},
                "subject_ids": {"type": "array", "items": {"type": "string"}},
                "dragged_subject_ids": {"type": "array", "items": {"type": "string"}},
                "bio": {"type": "string"},
                "academic_interests": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["curriculum_id", "current_semester", "subject_ids"]
        },
        "TeacherOnboardingRequest": {
            "type": "object",
            "properties": {
                "subject_ids": {"type": "array", "items": {"type": "string"}},
                "institutional_email": {"type": "string"},
                "bio": {"type": "string"},
                "visibility": {"type": "string"}
            },
            "required": ["subject_ids"]
        },
        "CreatePostRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "type": {"type": "string"},
                "curriculum_subject_id": {"type": "string"},
                "hashtags": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["content"]
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
