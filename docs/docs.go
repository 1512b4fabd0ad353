// Package docs embeds the OpenAPI description of the dashboard API.
package docs

import _ "embed"

// SwaggerJSON is served at /swagger/doc.json
//
//go:embed swagger.json
var SwaggerJSON []byte
