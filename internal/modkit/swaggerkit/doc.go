package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	"tulflow/internal/core/version"
)

// doc is maintained by hand; the api tests walk the mounted routes against Documented
var doc = map[string]any{
	"openapi": "3.0.3",
	"info": map[string]any{
		"title":       "tulflow harvest API",
		"description": "Trigger OAI-PMH harvests and read the run ledger",
	},
	"servers": []any{map[string]any{"url": "/api/v1"}},
	"paths": map[string]any{
		"/harvests": map[string]any{
			"post": op("Run one harvest and wait for totals", "HarvestRequest", "RunTotals"),
		},
		"/harvests/runs": map[string]any{
			"get": op("List recent runs (limit query param)", "", "RunList"),
		},
		"/harvests/runs/{id}": map[string]any{
			"get": op("One run with its per set rows", "", "RunDetail"),
		},
		"/meta/health": map[string]any{
			"get": op("Health check", "", "Health"),
		},
		"/meta/ready": map[string]any{
			"get": op("Readiness of pg, ch and the object store", "", "Ready"),
		},
		"/meta/version": map[string]any{
			"get": op("Build information", "", "Version"),
		},
	},
	"components": map[string]any{
		"schemas": map[string]any{
			"ErrorResponse": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status_code": map[string]any{"type": "integer"},
					"status":      map[string]any{"type": "string"},
					"code":        map[string]any{"type": "integer"},
					"error":       map[string]any{"type": "string"},
					"request_id":  map[string]any{"type": "string"},
				},
			},
			"HarvestRequest": map[string]any{"type": "object"},
			"RunTotals": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"updated": map[string]any{"type": "integer"},
					"deleted": map[string]any{"type": "integer"},
					"sets":    map[string]any{"type": "array"},
				},
			},
			"RunList":   map[string]any{"type": "object"},
			"RunDetail": map[string]any{"type": "object"},
			"Health": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ok":      map[string]any{"type": "boolean"},
					"service": map[string]any{"type": "string"},
					"started": map[string]any{"type": "string"},
					"uptime":  map[string]any{"type": "integer"},
				},
			},
			"Ready": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{"type": "string"},
					"checks": map[string]any{"type": "array"},
					"now":    map[string]any{"type": "string"},
				},
			},
			"Version": map[string]any{"type": "object"},
		},
	},
}

// Documented reports whether the doc lists method on path, path relative to /api/v1
func Documented(method, path string) bool {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	ops, ok := doc["paths"].(map[string]any)[path].(map[string]any)
	if !ok {
		return false
	}
	_, ok = ops[strings.ToLower(method)]
	return ok
}

func op(summary, body, out string) map[string]any {
	o := map[string]any{
		"summary": summary,
		"responses": map[string]any{
			"200": ref("ok", out),
			"400": ref("Bad Request", "ErrorResponse"),
			"500": ref("Internal Server Error", "ErrorResponse"),
		},
	}
	if body != "" {
		o["requestBody"] = map[string]any{
			"content": map[string]any{
				"application/json": map[string]any{"schema": schemaRef(body)},
			},
		}
	}
	return o
}

func ref(desc, schema string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{"schema": schemaRef(schema)},
		},
	}
}

func schemaRef(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

// serveDocJSON serves the spec with the running version stamped in
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := doc["info"].(map[string]any)
		spec := make(map[string]any, len(doc))
		for k, v := range doc {
			spec[k] = v
		}
		spec["info"] = map[string]any{
			"title":       info["title"],
			"description": info["description"],
			"version":     version.Info().Version,
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}
