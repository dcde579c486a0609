// Package testutil provides testing utilities and helpers for the verification job queue.
package testutil

import (
	"github.com/target/verifyd/internal/domain/model"
)

// JobInputBuilder provides a fluent interface for building JobInput values for testing.
type JobInputBuilder struct {
	in model.JobInput
}

// NewJobInput creates a new JobInputBuilder with the canonical Eiffel Tower example.
func NewJobInput() *JobInputBuilder {
	return &JobInputBuilder{
		in: model.JobInput{
			Output:   "The Eiffel Tower is 330m tall.",
			Question: "How tall is the Eiffel Tower?",
			Tier:     model.TierBasic,
		},
	}
}

// WithOutput sets the text to verify.
func (b *JobInputBuilder) WithOutput(output string) *JobInputBuilder {
	b.in.Output = output
	return b
}

// WithQuestion sets the question the output answers.
func (b *JobInputBuilder) WithQuestion(question string) *JobInputBuilder {
	b.in.Question = question
	return b
}

// WithTier sets the verification tier.
func (b *JobInputBuilder) WithTier(tier model.Tier) *JobInputBuilder {
	b.in.Tier = tier
	return b
}

// WithCallbackURL sets the webhook URL.
func (b *JobInputBuilder) WithCallbackURL(url string) *JobInputBuilder {
	b.in.CallbackURL = url
	return b
}

// Build returns the constructed JobInput.
func (b *JobInputBuilder) Build() model.JobInput {
	return b.in
}

// ProJobInput returns a pro-tier input without a callback.
func ProJobInput() model.JobInput {
	return NewJobInput().WithTier(model.TierPro).Build()
}
