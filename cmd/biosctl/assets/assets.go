package assets

import _ "embed"

// OpenApiData is the REST API description served by the Swagger UI.
//
//go:embed openapi.yaml
var OpenApiData []byte
