package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/analysis"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/selection"
)

// GenerationRequest carries everything the generator needs to produce one
// piece of content.
type GenerationRequest struct {
	Candidate *analysis.Candidate
	Posts     []*database.Post
	Format    string
	Tone      string
	Language  string
}

// Generator produces content from a selected topic and its posts.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*database.GeneratedContent, error)
}

// Renderer turns generated content into an image for publishing.
type Renderer interface {
	Render(ctx context.Context, content *database.GeneratedContent) ([]byte, error)
}

// Publisher delivers content to an external platform and returns the
// platform message id.
type Publisher interface {
	Publish(ctx context.Context, content *database.GeneratedContent, image []byte) (int64, error)
	Platform() string
}

// StepResult records the outcome of one pipeline step.
type StepResult struct {
	Name   string
	Status string
	Err    error
}

const (
	StepStatusOK      = "ok"
	StepStatusSkipped = "skipped"
	StepStatusFailed  = "failed"
)

// RunResult summarizes one pipeline run. Success means content was made
// and, when publishing is enabled, actually delivered. A failed render
// never fails the run; a failed publish does, even though the content and
// topic usage stay persisted.
type RunResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	State      selection.State
	ContentID  string
	Published  bool
	Success    bool
	Steps      []StepResult
}

func (r *RunResult) step(name, status string, err error) {
	r.Steps = append(r.Steps, StepResult{Name: name, Status: status, Err: err})
}

// OrchestratorOptions holds the pipeline behavior switches.
type OrchestratorOptions struct {
	Format   string
	Tone     string
	Language string
}

// Orchestrator drives the content pipeline end to end: pick a topic, load
// its posts, generate, persist, record usage, render and publish. Only one
// run may be in flight at a time.
type Orchestrator struct {
	selector  *selection.Selector
	posts     database.PostRepository
	contents  database.ContentRepository
	generator Generator
	renderer  Renderer
	publisher Publisher
	opts      OrchestratorOptions

	mu sync.Mutex
}

func NewOrchestrator(selector *selection.Selector, posts database.PostRepository,
	contents database.ContentRepository, generator Generator,
	renderer Renderer, publisher Publisher, opts OrchestratorOptions) *Orchestrator {
	return &Orchestrator{
		selector:  selector,
		posts:     posts,
		contents:  contents,
		generator: generator,
		renderer:  renderer,
		publisher: publisher,
		opts:      opts,
	}
}

// Run executes one pipeline pass. Returns ErrRunInProgress without doing
// anything when another run holds the lock.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.mu.Unlock()

	now := time.Now().UTC()
	result := &RunResult{StartedAt: now}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	// Step 1: topic selection.
	candidate, state, err := o.selector.SelectNext(now)
	result.State = state
	if err != nil {
		result.step("select_topic", StepStatusFailed, err)
		return result, fmt.Errorf("failed to select topic: %w", err)
	}
	if candidate == nil {
		result.step("select_topic", StepStatusFailed, ErrNoTopicAvailable)
		return result, ErrNoTopicAvailable
	}
	result.step("select_topic", StepStatusOK, nil)
	slog.Info("Selected topic", "keywords", candidate.Keywords, "state", string(state),
		"importance", candidate.Importance, "priority", candidate.Priority)

	// Step 2: load the topic's posts.
	posts, err := o.posts.GetPostsByIDs(candidate.PostIDs)
	if err != nil {
		result.step("load_posts", StepStatusFailed, err)
		return result, fmt.Errorf("failed to load topic posts: %w", err)
	}
	if len(posts) == 0 {
		result.step("load_posts", StepStatusFailed, ErrEmptyPostSet)
		return result, ErrEmptyPostSet
	}
	result.step("load_posts", StepStatusOK, nil)

	// Step 3: content generation.
	content, err := o.generator.Generate(ctx, GenerationRequest{
		Candidate: candidate,
		Posts:     posts,
		Format:    o.opts.Format,
		Tone:      o.opts.Tone,
		Language:  o.opts.Language,
	})
	if err != nil {
		result.step("generate", StepStatusFailed, err)
		return result, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	result.step("generate", StepStatusOK, nil)

	// Step 4: persist the content.
	if err := o.contents.Create(content); err != nil {
		result.step("persist", StepStatusFailed, err)
		return result, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	result.ContentID = content.ID
	result.step("persist", StepStatusOK, nil)

	// Step 5: record topic usage so the exclusion window applies.
	if err := o.selector.MarkUsed(candidate, content.ID, now); err != nil {
		result.step("mark_used", StepStatusFailed, err)
		return result, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	result.step("mark_used", StepStatusOK, nil)

	// Step 6: render, degrading to text-only on failure.
	var image []byte
	if o.renderer == nil {
		result.step("render", StepStatusSkipped, nil)
	} else {
		image, err = o.renderer.Render(ctx, content)
		if err != nil {
			slog.Warn("Rendering failed, publishing without image", "content_id", content.ID, "error", err)
			result.step("render", StepStatusFailed, fmt.Errorf("%w: %w", ErrRenderFailure, err))
			image = nil
		} else {
			result.step("render", StepStatusOK, nil)
		}
	}

	// Step 7: publish.
	if o.publisher == nil {
		result.step("publish", StepStatusSkipped, nil)
		result.Success = true
		return result, nil
	}

	messageID, err := o.publisher.Publish(ctx, content, image)
	if err != nil {
		result.step("publish", StepStatusFailed, fmt.Errorf("%w: %w", ErrPublishFailure, err))
		slog.Error("Publishing failed, content kept for retry", "content_id", content.ID, "error", err)
		return result, fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}

	publishedAt := time.Now().UTC()
	if err := o.contents.MarkPublished(content.ID, o.publisher.Platform(), messageID, publishedAt); err != nil {
		result.step("publish", StepStatusFailed, err)
		return result, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	result.step("publish", StepStatusOK, nil)
	result.Published = true
	result.Success = true

	slog.Info("Pipeline run finished", "content_id", content.ID,
		"platform", o.publisher.Platform(), "message_id", messageID)

	return result, nil
}
