// Package web holds files compiled into the server binary.
package web

import _ "embed"

// FallbackDocument is served by GET /data when no document has been saved
// and the missing document policy is "fallback".
//
//go:embed fallback.json
var FallbackDocument []byte
