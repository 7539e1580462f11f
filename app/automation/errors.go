package automation

import "errors"

var (
	ErrRunInProgress      = errors.New("pipeline run already in progress")
	ErrNoTopicAvailable   = errors.New("no topic available for content generation")
	ErrEmptyPostSet       = errors.New("selected topic has no posts")
	ErrGenerationFailure  = errors.New("content generation failed")
	ErrRenderFailure      = errors.New("image rendering failed")
	ErrPublishFailure     = errors.New("publishing failed")
	ErrRateLimited        = errors.New("publisher rate limit exceeded")
	ErrPersistenceFailure = errors.New("failed to persist generated content")
)
