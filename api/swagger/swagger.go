package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "BiodivHub API",
        "description": "Biodiversity data management API: occurrence submissions, attachment security review, region associations and funding sources.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Submissions", "description": "Occurrence submission intake and status tracking"},
        {"name": "Attachments", "description": "Survey attachment files"},
        {"name": "Security", "description": "Attachment security review workflow"},
        {"name": "Regions", "description": "Spatial region lookups and associations"},
        {"name": "FundingSources", "description": "Funding source management"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
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
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/api/v1/projects/{projectId}/surveys/{surveyId}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Upload an occurrence submission file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "projectId", "in": "path", "required": true, "type": "integer"},
                    {"name": "surveyId", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "source", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid upload"}
                }
            }
        },
        "/api/v1/projects/{projectId}/surveys/{surveyId}/summary/submission": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Latest summary submission for a survey",
                "parameters": [
                    {"name": "projectId", "in": "path", "required": true, "type": "integer"},
                    {"name": "surveyId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK (data is null when no summary submission exists)"}
                }
            }
        },
        "/api/v1/submissions/{submissionId}/errors": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Record a structured submission failure",
                "parameters": [
                    {"name": "submissionId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordSubmissionErrorRequest"}}
                ],
                "responses": {
                    "200": {"description": "Recorded"},
                    "400": {"description": "Invalid payload or rejected insert"}
                }
            }
        },
        "/api/v1/submissions/{submissionId}/status": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Record a status with a single message",
                "parameters": [
                    {"name": "submissionId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordStatusAndMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/submissions/{submissionId}/status/latest": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Latest submission status with messages",
                "parameters": [
                    {"name": "submissionId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No recorded status"}
                }
            }
        },
        "/api/v1/submissions/{submissionId}/errors/export": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Export submission findings as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "submissionId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        },
        "/api/v1/projects/{projectId}/surveys/{surveyId}/attachments/{attachmentId}/security/apply": {
            "put": {
                "tags": ["Security"],
                "summary": "Apply security rules to an attachment",
                "parameters": [
                    {"name": "projectId", "in": "path", "required": true, "type": "integer"},
                    {"name": "surveyId", "in": "path", "required": true, "type": "integer"},
                    {"name": "attachmentId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplySecurityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Affected row count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown attachment type or zero rows affected"}
                }
            }
        },
        "/api/v1/projects/{projectId}/surveys/{surveyId}/attachments/{attachmentId}/security": {
            "delete": {
                "tags": ["Security"],
                "summary": "Remove all security rules from an attachment",
                "parameters": [
                    {"name": "projectId", "in": "path", "required": true, "type": "integer"},
                    {"name": "surveyId", "in": "path", "required": true, "type": "integer"},
                    {"name": "attachmentId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Affected row count"}
                }
            }
        },
        "/api/v1/projects/{projectId}/surveys/{surveyId}/attachments/{attachmentId}/security/reasons": {
            "get": {
                "tags": ["Security"],
                "summary": "List the security reasons applied to an attachment",
                "parameters": [
                    {"name": "projectId", "in": "path", "required": true, "type": "integer"},
                    {"name": "surveyId", "in": "path", "required": true, "type": "integer"},
                    {"name": "attachmentId", "in": "path", "required": true, "type": "integer"},
                    {"name": "attachmentType", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "State and applied rules"}
                }
            }
        },
        "/api/v1/security-rules": {
            "get": {
                "tags": ["Security"],
                "summary": "List the security rule catalog",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rule catalog (empty when the index is unavailable)"}
                }
            }
        },
        "/api/v1/regions/search": {
            "post": {
                "tags": ["Regions"],
                "summary": "Search regions by name and source layer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SearchRegionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Matching regions"}
                }
            }
        },
        "/api/v1/projects/{projectId}/regions": {
            "put": {
                "tags": ["Regions"],
                "summary": "Replace a project's region associations",
                "parameters": [
                    {"name": "projectId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceRegionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replaced"}
                }
            }
        },
        "/api/v1/funding-sources": {
            "get": {
                "tags": ["FundingSources"],
                "summary": "List funding sources",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["FundingSources"],
                "summary": "Create a funding source",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFundingSourceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/funding-sources/{id}": {
            "put": {
                "tags": ["FundingSources"],
                "summary": "Update a funding source",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateFundingSourceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated"},
                    "409": {"description": "Revision count is stale"}
                }
            },
            "delete": {
                "tags": ["FundingSources"],
                "summary": "Delete a funding source",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
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
        "RecordSubmissionErrorRequest": {
            "type": "object",
            "required": ["status", "messages"],
            "properties": {
                "status": {"type": "string"},
                "messages": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "type": {"type": "string"},
                            "message": {"type": "string"},
                            "errorCode": {"type": "string"}
                        }
                    }
                }
            }
        },
        "RecordStatusAndMessageRequest": {
            "type": "object",
            "required": ["status", "messageType", "message"],
            "properties": {
                "status": {"type": "string"},
                "messageType": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "ApplySecurityRequest": {
            "type": "object",
            "required": ["attachmentType", "securityReasonIds"],
            "properties": {
                "attachmentType": {"type": "string", "enum": ["Report", "Other"]},
                "securityReasonIds": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "SearchRegionsRequest": {
            "type": "object",
            "required": ["details"],
            "properties": {
                "details": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "regionName": {"type": "string"},
                            "sourceLayer": {"type": "string"}
                        }
                    }
                }
            }
        },
        "ReplaceRegionsRequest": {
            "type": "object",
            "required": ["regionIds"],
            "properties": {
                "regionIds": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "CreateFundingSourceRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"}
            }
        },
        "UpdateFundingSourceRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "revisionCount": {"type": "integer"}
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
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
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
