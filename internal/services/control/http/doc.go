package http

// openAPIDoc is the hand-maintained OAS3 document served at /docs/doc.json.
// Keep it in sync with the routes in NewHandler
const openAPIDoc = `{
  "openapi": "3.0.3",
  "info": {
    "title": "bridgebot control plane",
    "description": "Loopback surface the chat front-end drives: service lifecycle, command lists, access grants, and account verification.",
    "version": "1.0.0"
  },
  "components": {
    "securitySchemes": {
      "adminKey": {"type": "http", "scheme": "bearer"}
    },
    "schemas": {
      "Envelope": {
        "type": "object",
        "properties": {
          "status_code": {"type": "integer"},
          "status": {"type": "string"},
          "code": {"type": "integer"},
          "error": {"type": "string"},
          "request_id": {"type": "string"},
          "data": {}
        }
      },
      "CommandDefinition": {
        "type": "object",
        "required": ["command_name"],
        "properties": {
          "command_name": {"type": "string"},
          "full_command": {"type": "string"},
          "parameters": {"type": "array", "items": {"type": "string"}, "maxItems": 5},
          "active": {"type": "boolean"},
          "created_at": {"type": "string", "format": "date-time"},
          "created_by": {"type": "integer", "format": "int64"}
        }
      },
      "Credentials": {
        "type": "object",
        "properties": {
          "service_id": {"type": "string"},
          "api_key": {"type": "string"},
          "secret_token": {"type": "string"},
          "url": {"type": "string"},
          "port": {"type": "integer"}
        }
      }
    }
  },
  "paths": {
    "/health": {
      "get": {
        "summary": "Control plane health and live service summaries",
        "responses": {"200": {"description": "healthy", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Envelope"}}}}}
      }
    },
    "/services": {
      "post": {
        "summary": "Create a relay service and start its listener",
        "security": [{"adminKey": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["guild_id", "user_id", "service_name"],
          "properties": {
            "guild_id": {"type": "integer", "format": "int64"},
            "user_id": {"type": "integer", "format": "int64"},
            "service_name": {"type": "string", "maxLength": 64}
          }
        }}}},
        "responses": {
          "201": {"description": "created", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Credentials"}}}},
          "409": {"description": "service already exists"},
          "503": {"description": "no free port or bind failure"}
        }
      }
    },
    "/services/{service_id}": {
      "delete": {
        "summary": "Stop a service (idempotent)",
        "security": [{"adminKey": []}],
        "parameters": [
          {"name": "service_id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "requested_by", "in": "query", "required": true, "schema": {"type": "integer", "format": "int64"}}
        ],
        "responses": {"200": {"description": "stopped"}, "403": {"description": "not owner or full grantee"}}
      }
    },
    "/services/{service_id}/commands": {
      "put": {
        "summary": "Replace the command list",
        "security": [{"adminKey": []}],
        "parameters": [{"name": "service_id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["requested_by", "commands"],
          "properties": {
            "requested_by": {"type": "integer", "format": "int64"},
            "commands": {"type": "array", "items": {"$ref": "#/components/schemas/CommandDefinition"}}
          }
        }}}},
        "responses": {"200": {"description": "updated"}, "404": {"description": "unknown service"}}
      },
      "post": {
        "summary": "Append one command definition",
        "security": [{"adminKey": []}],
        "parameters": [{"name": "service_id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["requested_by", "command"],
          "properties": {
            "requested_by": {"type": "integer", "format": "int64"},
            "command": {"$ref": "#/components/schemas/CommandDefinition"}
          }
        }}}},
        "responses": {"200": {"description": "added"}, "409": {"description": "duplicate command name"}}
      }
    },
    "/grants": {
      "post": {
        "summary": "Grant a user access to an owner's services",
        "security": [{"adminKey": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["guild_id", "owner_id", "grantee_id", "level"],
          "properties": {
            "guild_id": {"type": "integer", "format": "int64"},
            "owner_id": {"type": "integer", "format": "int64"},
            "grantee_id": {"type": "integer", "format": "int64"},
            "level": {"type": "string", "enum": ["full", "commands"]}
          }
        }}}},
        "responses": {"200": {"description": "granted"}}
      },
      "delete": {
        "summary": "Revoke a grant",
        "security": [{"adminKey": []}],
        "parameters": [
          {"name": "guild_id", "in": "query", "required": true, "schema": {"type": "integer", "format": "int64"}},
          {"name": "owner_id", "in": "query", "required": true, "schema": {"type": "integer", "format": "int64"}},
          {"name": "grantee_id", "in": "query", "required": true, "schema": {"type": "integer", "format": "int64"}}
        ],
        "responses": {"200": {"description": "revoked"}}
      }
    },
    "/verify": {
      "post": {
        "summary": "Start account verification for a chat user",
        "security": [{"adminKey": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["chat_user_id", "username"],
          "properties": {
            "chat_user_id": {"type": "integer", "format": "int64"},
            "username": {"type": "string", "minLength": 3, "maxLength": 20}
          }
        }}}},
        "responses": {"200": {"description": "challenge issued"}, "404": {"description": "unknown username"}}
      }
    },
    "/verify/confirm": {
      "post": {
        "summary": "Confirm a pending verification",
        "security": [{"adminKey": []}],
        "requestBody": {"required": true, "content": {"application/json": {"schema": {
          "type": "object",
          "required": ["chat_user_id"],
          "properties": {"chat_user_id": {"type": "integer", "format": "int64"}}
        }}}},
        "responses": {
          "200": {"description": "verified"},
          "403": {"description": "code not present in profile description"},
          "404": {"description": "no attempt in progress or expired"}
        }
      }
    }
  }
}`
