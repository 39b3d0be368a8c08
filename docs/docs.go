// Package docs 接口文档，swag init 会按处理器上的注释重新生成
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
        "/health": {"get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}},
        "/{filename}": {"get": {"tags": ["public"], "summary": "Redirect to image by filename", "parameters": [{"type": "string", "name": "filename", "in": "path", "required": true}], "responses": {"302": {"description": "Found"}, "404": {"description": "Not found"}}}},
        "/s/{code}": {"get": {"tags": ["public"], "summary": "Redirect by short code", "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}], "responses": {"302": {"description": "Found"}, "404": {"description": "Not found"}}}},
        "/files/{key}": {"get": {"tags": ["public"], "summary": "Serve stored file", "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/thumbnails/{filename}": {"get": {"tags": ["public"], "summary": "Get thumbnail", "parameters": [{"type": "string", "name": "filename", "in": "path", "required": true}, {"type": "integer", "name": "w", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/api/import": {"post": {"tags": ["public"], "summary": "Import image from URL", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid URL"}, "502": {"description": "Fetch failed"}}}},
        "/api/auth/signin": {"post": {"tags": ["auth"], "summary": "Sign in", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}}},
        "/api/auth/signup": {"post": {"tags": ["auth"], "summary": "Sign up", "responses": {"200": {"description": "OK"}, "409": {"description": "Email taken"}}}},
        "/api/auth/refresh": {"post": {"tags": ["auth"], "summary": "Refresh session", "responses": {"200": {"description": "OK"}}}},
        "/api/auth/signout": {"post": {"tags": ["auth"], "summary": "Sign out", "responses": {"200": {"description": "OK"}}}},
        "/api/auth/password/reset": {"post": {"tags": ["auth"], "summary": "Request password reset", "responses": {"200": {"description": "OK"}}}},
        "/api/auth/password/confirm": {"post": {"tags": ["auth"], "summary": "Confirm password reset", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/images": {"get": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "List images", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/images/upload": {"post": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "Upload images", "responses": {"200": {"description": "OK"}, "409": {"description": "Name collision"}}}},
        "/api/v1/images/delete": {"post": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "Delete selected images", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/images/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "Get image", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "Delete image", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/api/v1/images/{id}/access": {"patch": {"security": [{"BearerAuth": []}], "tags": ["images"], "summary": "Set image access type", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/folders": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "List folders", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Create folder", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/folders/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Get folder", "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Update folder", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Delete folder", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/folders/{id}/images": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "List folder images", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Add images to folder", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Remove images from folder", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/folders/{id}/drop": {"post": {"security": [{"BearerAuth": []}], "tags": ["folders"], "summary": "Drop dragged images on folder", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/profile": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["profile"], "summary": "Get profile", "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["profile"], "summary": "Update profile", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/events": {"get": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Event stream", "responses": {"101": {"description": "Switching Protocols"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the access token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "dev",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Image Shelf API",
	Description:      "Personal image library: uploads with name-collision handling, folders, short links and URL imports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
