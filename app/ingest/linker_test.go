package ingest

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/database"
)

func newTestRepos(t *testing.T) (database.PostRepository, database.GroupRepository) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database.NewPostRepository(db), database.NewGroupRepository(db)
}

func defaultLinkerOptions() LinkerOptions {
	return LinkerOptions{
		Threshold:   0.7,
		TitleWeight: 0.5,
		BodyWeight:  0.3,
		TimeWeight:  0.2,
		Window:      48 * time.Hour,
	}
}

func storePost(t *testing.T, repo database.PostRepository, p *database.Post) *database.Post {
	t.Helper()

	id, _, err := repo.UpsertPost(p)
	if err != nil {
		t.Fatalf("failed to store post: %v", err)
	}
	stored, err := repo.GetPost(id)
	if err != nil {
		t.Fatalf("failed to reload post: %v", err)
	}
	return stored
}

func TestLinkSimilarPosts(t *testing.T) {
	posts, groups := newTestRepos(t)
	linker := NewLinker(posts, groups, defaultLinkerOptions())
	now := time.Now().UTC().Truncate(time.Second)

	earlier := storePost(t, posts, &database.Post{
		Source:    "hackernews",
		SourceID:  "hn-1",
		Title:     "OpenAI raises $6.6B in new funding round",
		Content:   "OpenAI has closed a massive funding round led by Thrive Capital.",
		CreatedAt: now.Add(-3 * time.Hour),
		FetchedAt: now,
	})

	later := storePost(t, posts, &database.Post{
		Source:    "techcrunch",
		SourceID:  "tc-1",
		Title:     "OpenAI raises $6.6B in new funding round!",
		Content:   "OpenAI has closed a massive funding round led by Thrive Capital.",
		CreatedAt: now,
		FetchedAt: now,
	})

	if err := linker.Link(later); err != nil {
		t.Fatalf("failed to link post: %v", err)
	}

	if later.DuplicateGroupID == nil {
		t.Fatal("expected post to be linked into a group")
	}

	reloaded, err := posts.GetPost(earlier.ID)
	if err != nil {
		t.Fatalf("failed to reload earlier post: %v", err)
	}
	if reloaded.DuplicateGroupID == nil || *reloaded.DuplicateGroupID != *later.DuplicateGroupID {
		t.Error("expected both posts to share a group")
	}

	group, err := groups.GetGroup(*later.DuplicateGroupID)
	if err != nil {
		t.Fatalf("failed to load group: %v", err)
	}
	if group.CanonicalPostID != earlier.ID {
		t.Errorf("expected earliest post %d to be canonical, got %d", earlier.ID, group.CanonicalPostID)
	}
}

func TestLinkIgnoresDissimilarPosts(t *testing.T) {
	posts, groups := newTestRepos(t)
	linker := NewLinker(posts, groups, defaultLinkerOptions())
	now := time.Now().UTC().Truncate(time.Second)

	storePost(t, posts, &database.Post{
		Source:    "hackernews",
		SourceID:  "hn-1",
		Title:     "Rust 2.0 release candidate announced",
		Content:   "The Rust team published the first release candidate.",
		CreatedAt: now.Add(-time.Hour),
		FetchedAt: now,
	})

	unrelated := storePost(t, posts, &database.Post{
		Source:    "techcrunch",
		SourceID:  "tc-1",
		Title:     "Grocery delivery startup shuts down",
		Content:   "The company ran out of funding after three years.",
		CreatedAt: now,
		FetchedAt: now,
	})

	if err := linker.Link(unrelated); err != nil {
		t.Fatalf("failed to link post: %v", err)
	}
	if unrelated.DuplicateGroupID != nil {
		t.Error("expected no group for dissimilar posts")
	}
}

func TestLinkIgnoresSameSource(t *testing.T) {
	posts, groups := newTestRepos(t)
	linker := NewLinker(posts, groups, defaultLinkerOptions())
	now := time.Now().UTC().Truncate(time.Second)

	storePost(t, posts, &database.Post{
		Source:    "hackernews",
		SourceID:  "hn-1",
		Title:     "OpenAI raises $6.6B in new funding round",
		Content:   "Same story, same source.",
		CreatedAt: now.Add(-time.Hour),
		FetchedAt: now,
	})

	second := storePost(t, posts, &database.Post{
		Source:    "hackernews",
		SourceID:  "hn-2",
		Title:     "OpenAI raises $6.6B in new funding round",
		Content:   "Same story, same source.",
		CreatedAt: now,
		FetchedAt: now,
	})

	if err := linker.Link(second); err != nil {
		t.Fatalf("failed to link post: %v", err)
	}
	if second.DuplicateGroupID != nil {
		t.Error("expected same-source posts to stay unlinked")
	}
}

func TestLinkJoinsExistingGroup(t *testing.T) {
	posts, groups := newTestRepos(t)
	linker := NewLinker(posts, groups, defaultLinkerOptions())
	now := time.Now().UTC().Truncate(time.Second)

	first := storePost(t, posts, &database.Post{
		Source:    "hackernews",
		SourceID:  "hn-1",
		Title:     "OpenAI raises $6.6B in new funding round",
		Content:   "OpenAI has closed a massive funding round led by Thrive Capital.",
		CreatedAt: now.Add(-2 * time.Hour),
		FetchedAt: now,
	})

	second := storePost(t, posts, &database.Post{
		Source:    "techcrunch",
		SourceID:  "tc-1",
		Title:     "OpenAI raises $6.6B in new funding round",
		Content:   "OpenAI has closed a massive funding round led by Thrive Capital.",
		CreatedAt: now.Add(-time.Hour),
		FetchedAt: now,
	})
	if err := linker.Link(second); err != nil {
		t.Fatalf("failed to link second post: %v", err)
	}

	third := storePost(t, posts, &database.Post{
		Source:    "reddit",
		SourceID:  "rd-1",
		Title:     "OpenAI raises $6.6B in new funding round",
		Content:   "OpenAI has closed a massive funding round led by Thrive Capital.",
		CreatedAt: now,
		FetchedAt: now,
	})
	if err := linker.Link(third); err != nil {
		t.Fatalf("failed to link third post: %v", err)
	}

	if third.DuplicateGroupID == nil || *third.DuplicateGroupID != *second.DuplicateGroupID {
		t.Error("expected third post to join the existing group")
	}

	count, err := groups.CountGroups()
	if err != nil {
		t.Fatalf("failed to count groups: %v", err)
	}
	if count != 1 {
		t.Errorf("expected a single group, got %d", count)
	}

	group, err := groups.GetGroup(*third.DuplicateGroupID)
	if err != nil {
		t.Fatalf("failed to load group: %v", err)
	}
	if group.CanonicalPostID != first.ID {
		t.Errorf("expected canonical post %d, got %d", first.ID, group.CanonicalPostID)
	}
}

func TestLinkPicksBestCandidate(t *testing.T) {
	posts, groups := newTestRepos(t)
	linker := NewLinker(posts, groups, defaultLinkerOptions())
	now := time.Now().UTC().Truncate(time.Second)

	// An older near-match and a newer exact-hash match: the exact match
	// scores 1.0 and must win over the merely similar post.
	near := storePost(t, posts, &database.Post{
		Source:      "hackernews",
		SourceID:    "hn-1",
		Title:       "OpenAI raises $6.6B in new funding round",
		Content:     "OpenAI has closed a massive funding round led by Thrive Capital.",
		ContentHash: "hash-a",
		CreatedAt:   now.Add(-4 * time.Hour),
		FetchedAt:   now,
	})

	exact := storePost(t, posts, &database.Post{
		Source:      "techcrunch",
		SourceID:    "tc-1",
		Title:       "OpenAI raises $6.6B in new funding round!",
		Content:     "OpenAI has closed a massive funding round led by Thrive Capital!",
		ContentHash: "hash-b",
		CreatedAt:   now.Add(-time.Hour),
		FetchedAt:   now,
	})

	incoming := storePost(t, posts, &database.Post{
		Source:      "reddit",
		SourceID:    "rd-1",
		Title:       "OpenAI raises $6.6B in new funding round!",
		Content:     "OpenAI has closed a massive funding round led by Thrive Capital!",
		ContentHash: "hash-b",
		CreatedAt:   now,
		FetchedAt:   now,
	})

	if err := linker.Link(incoming); err != nil {
		t.Fatalf("failed to link post: %v", err)
	}

	if incoming.DuplicateGroupID == nil {
		t.Fatal("expected incoming post to be linked")
	}

	linkedExact, err := posts.GetPost(exact.ID)
	if err != nil {
		t.Fatalf("failed to reload exact match: %v", err)
	}
	if linkedExact.DuplicateGroupID == nil || *linkedExact.DuplicateGroupID != *incoming.DuplicateGroupID {
		t.Error("expected incoming post grouped with the exact-hash match")
	}

	linkedNear, err := posts.GetPost(near.ID)
	if err != nil {
		t.Fatalf("failed to reload near match: %v", err)
	}
	if linkedNear.DuplicateGroupID != nil {
		t.Error("expected the lower scoring candidate to stay ungrouped")
	}
}

func TestTitleSimilarityTokenOverlap(t *testing.T) {
	// Same vocabulary in a different order: edit distance punishes the
	// reordering but the token overlap does not.
	got := titleSimilarity("go 1.22 released today", "released today go 1.22")
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected reordered titles to score 1.0, got %v", got)
	}

	got = tokenJaccard("alpha beta gamma", "beta gamma delta epsilon")
	if math.Abs(got-0.4) > 1e-9 {
		t.Errorf("expected jaccard 0.4 for 2 shared of 5 tokens, got %v", got)
	}

	if tokenJaccard("", "alpha") != 0 {
		t.Error("expected empty title to score 0")
	}
}

func TestLinkParaphrasedHeadlinesStayApart(t *testing.T) {
	posts, groups := newTestRepos(t)
	linker := NewLinker(posts, groups, defaultLinkerOptions())
	now := time.Now().UTC().Truncate(time.Second)

	// Three tellings of one story with almost no shared wording and
	// distinct bodies score well under the 0.7 threshold, so they stay
	// separate; only hash equality or heavy wording overlap links them.
	stories := []*database.Post{
		{Source: "techcrunch", SourceID: "tc-1", Title: "X raises $10M",
			Content:   "Startup X announced a $10M raise today.",
			CreatedAt: now.Add(-2 * time.Hour), FetchedAt: now},
		{Source: "hackernews", SourceID: "hn-1", Title: "X raises 10 million dollars",
			Content:   "X secured ten million dollars from investors.",
			CreatedAt: now.Add(-time.Hour), FetchedAt: now},
		{Source: "reddit", SourceID: "rd-1", Title: "Startup X closes funding round",
			Content:   "The funding round for startup X has closed.",
			CreatedAt: now, FetchedAt: now},
	}

	stored := make([]*database.Post, len(stories))
	for i, story := range stories {
		stored[i] = storePost(t, posts, story)
		if err := linker.Link(stored[i]); err != nil {
			t.Fatalf("failed to link post: %v", err)
		}
	}

	for i, a := range stored {
		if a.DuplicateGroupID != nil {
			t.Errorf("expected post %d to stay ungrouped", i)
		}
		for _, b := range stored[i+1:] {
			if sim := linker.Similarity(a, b); sim >= linker.opts.Threshold {
				t.Errorf("expected similarity below threshold for %q vs %q, got %v",
					a.Title, b.Title, sim)
			}
		}
	}
}

func TestSimilarityTimeDecay(t *testing.T) {
	linker := NewLinker(nil, nil, defaultLinkerOptions())
	now := time.Now().UTC()

	a := &database.Post{Title: "Same headline here", Content: "Same body text here.", CreatedAt: now}
	b := &database.Post{Title: "Same headline here", Content: "Same body text here.", CreatedAt: now.Add(-40 * time.Hour)}

	// Identical text but 40 hours apart: the time component is fully gone.
	got := linker.Similarity(a, b)
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected similarity 0.8 without time proximity, got %v", got)
	}

	b.CreatedAt = now
	got = linker.Similarity(a, b)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected similarity 1.0 for identical simultaneous posts, got %v", got)
	}
}

func TestSimilarityEmptyText(t *testing.T) {
	linker := NewLinker(nil, nil, defaultLinkerOptions())
	now := time.Now().UTC()

	a := &database.Post{Title: "Headline", Content: "", CreatedAt: now}
	b := &database.Post{Title: "Headline", Content: "", CreatedAt: now}

	// Empty bodies contribute nothing rather than counting as identical.
	got := linker.Similarity(a, b)
	if math.Abs(got-0.7) > 1e-9 {
		t.Errorf("expected similarity 0.7 with empty bodies, got %v", got)
	}
}
