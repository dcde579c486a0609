//go:build tools

// Package tools pins code generators used by go:generate directives.
//
// mockgen regenerates internal/mocks:
//
//	go generate ./internal/mocks
//
// Linting runs golangci-lint from CI rather than go.mod:
//
//	go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
