package swagger

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/baynext/baynext/pkg/httputil"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// SwaggerHandlers provides HTTP handlers for OpenAPI/Swagger documentation
type SwaggerHandlers struct {
	once     sync.Once
	specJSON []byte
	jsonErr  error
}

// NewSwaggerHandlers creates a new SwaggerHandlers instance
func NewSwaggerHandlers() *SwaggerHandlers {
	return &SwaggerHandlers{}
}

// RegisterRoutes registers the swagger routes with the router
func (h *SwaggerHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/openapi.yaml", h.serveOpenAPISpec).Methods(http.MethodGet)
	router.HandleFunc("/openapi.json", h.serveOpenAPISpecJSON).Methods(http.MethodGet)
	router.HandleFunc("/swagger-ui", h.serveSwaggerUI).Methods(http.MethodGet)
	router.HandleFunc("/api-docs", h.serveSwaggerUI).Methods(http.MethodGet) // Alias
}

// serveOpenAPISpec serves the OpenAPI specification in YAML format
func (h *SwaggerHandlers) serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	w.Write(openapiSpec)
}

// serveOpenAPISpecJSON serves the same document converted to JSON
func (h *SwaggerHandlers) serveOpenAPISpecJSON(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.specJSON, h.jsonErr = specToJSON(openapiSpec)
	})
	if h.jsonErr != nil {
		httputil.WriteInternalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	w.Write(h.specJSON)
}

// serveSwaggerUI serves the Swagger UI HTML page
func (h *SwaggerHandlers) serveSwaggerUI(w http.ResponseWriter, r *http.Request) {
	// Use Swagger UI CDN for convenience
	tmpl := template.Must(template.New("swagger").Parse(swaggerUITemplate))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, nil); err != nil {
		httputil.WriteInternalError(w)
		return
	}
}

func specToJSON(spec []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(spec, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse openapi.yaml: %w", err)
	}
	return json.Marshal(jsonCompatible(doc))
}

// jsonCompatible rewrites non-string mapping keys, which encoding/json rejects
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = jsonCompatible(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	}
	return v
}

const swaggerUITemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>baynext API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui.css" />
  <style>
    html {
      box-sizing: border-box;
      overflow-y: scroll;
    }
    *, *:before, *:after {
      box-sizing: inherit;
    }
    body {
      margin:0;
      padding:0;
    }
  </style>
</head>
<body>
<div id="swagger-ui"></div>

<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui-bundle.js" charset="UTF-8"></script>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui-standalone-preset.js" charset="UTF-8"></script>
<script>
window.onload = function() {
  window.ui = SwaggerUIBundle({
    url: "/openapi.yaml",
    dom_id: '#swagger-ui',
    deepLinking: true,
    presets: [
      SwaggerUIBundle.presets.apis,
      SwaggerUIStandalonePreset
    ],
    layout: "StandaloneLayout",
    persistAuthorization: true
  });
};
</script>
</body>
</html>`
