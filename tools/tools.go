//go:build tools

package tools

// Pins the CLI tools used around this module: oapi-codegen for the HTTP
// contract and goose for running the embedded migrations by hand.
// Run `go mod tidy` after adding/removing tools here.

import (
    _ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
    _ "github.com/pressly/goose/v3/cmd/goose"
)
