// Package mocks provides mock implementations for testing the verification job queue.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the core ports.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	verifier := mocks.NewMockVerifier(ctrl)
//	verifier.EXPECT().Verify(gomock.Any(), "text", gomock.Any()).Return(result, nil)
package mocks

// Generate mock for JobStore interface from internal/core package.
// This creates MockJobStore with methods: CreateJob, GetJob, UpdateJob
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/target/verifyd/internal/core JobStore

// Generate mock for Verifier interface from internal/core package.
// This creates MockVerifier with methods: Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=verifier_mock.go github.com/target/verifyd/internal/core Verifier

// Generate mock for WebhookSender interface from internal/core package.
// This creates MockWebhookSender with methods: Deliver
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=webhook_sender_mock.go github.com/target/verifyd/internal/core WebhookSender
