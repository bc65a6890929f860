// Copyright (c) 2026 Folio Works. All rights reserved.

package post_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/post"
	"github.com/folioworks/folio/internal/profile"
	"github.com/folioworks/folio/pkg/pagination"
	"github.com/folioworks/folio/pkg/pointer"
)

// ── In-Memory Fakes ──────────────────────────────────────────────────────────

type memRepo struct {
	mu      sync.Mutex
	posts   map[string]*post.Post
	authors map[string]profile.PublicCard
	seq     int
}

func newMemRepo() *memRepo {
	return &memRepo{posts: map[string]*post.Post{}, authors: map[string]profile.PublicCard{}}
}

func (r *memRepo) addAuthor(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authors[id] = profile.PublicCard{ID: id, Name: name}
}

func (r *memRepo) Create(_ context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	p.UpdatedAt = p.CreatedAt
	clone := *p
	r.posts[p.ID] = &clone
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*post.WithAuthor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, apperr.NotFound("Post not found")
	}
	return &post.WithAuthor{Post: *p, Author: r.authors[p.UserID]}, nil
}

func (r *memRepo) sortedPublic() []*post.Post {
	var out []*post.Post
	for _, p := range r.posts {
		if p.IsPublic {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) ListPublic(_ context.Context, params pagination.Params, tags []string) ([]post.WithAuthor, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*post.Post
	for _, p := range r.sortedPublic() {
		if len(tags) == 0 || hasAnyTag(p, tags) {
			all = append(all, p)
		}
	}
	total := int64(len(all))

	start := params.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + params.Limit
	if end > len(all) {
		end = len(all)
	}

	var page []post.WithAuthor
	for _, p := range all[start:end] {
		page = append(page, post.WithAuthor{Post: *p, Author: r.authors[p.UserID]})
	}
	return page, total, nil
}

func hasAnyTag(p *post.Post, tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (r *memRepo) ListByUser(_ context.Context, userID string) ([]post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []post.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) Update(_ context.Context, p *post.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.posts[p.ID]
	if !ok {
		return apperr.NotFound("Post not found")
	}
	p.UpdatedAt = time.Now()
	views := stored.Views
	clone := *p
	clone.Views = views
	r.posts[p.ID] = &clone
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *memRepo) IncrementViews(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		p.Views++
	}
	return nil
}

func (r *memRepo) Search(_ context.Context, query string) ([]post.WithAuthor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lowered := strings.ToLower(query)

	var out []post.WithAuthor
	for _, p := range r.sortedPublic() {
		tagHit := false
		for _, tag := range p.Tags {
			if tag == query {
				tagHit = true
			}
		}
		if tagHit ||
			strings.Contains(strings.ToLower(p.Title), lowered) ||
			strings.Contains(strings.ToLower(p.Content), lowered) {
			out = append(out, post.WithAuthor{Post: *p, Author: r.authors[p.UserID]})
		}
	}
	return out, nil
}

func (r *memRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.posts {
		if p.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) SumViewsByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, p := range r.posts {
		if p.UserID == userID {
			total += p.Views
		}
	}
	return total, nil
}

func (r *memRepo) RecentByUser(_ context.Context, userID string, limit int) ([]post.Post, error) {
	posts, _ := r.ListByUser(nil, userID)
	sort.Slice(posts, func(i, j int) bool { return posts[i].UpdatedAt.After(posts[j].UpdatedAt) })
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	userID string
	event  post.ChangeEvent
}

func (r *eventRecorder) PublishPostChange(_ context.Context, userID string, event post.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, event: event})
	return nil
}

func (r *eventRecorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func newTestService() (*post.Service, *memRepo, *eventRecorder) {
	repo := newMemRepo()
	events := &eventRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return post.NewService(repo, events, logger), repo, events
}

func asRole(role auth.UserRole) *auth.UserRole { return &role }

// ── Tests ────────────────────────────────────────────────────────────────────

/*
TestService_Lifecycle walks a post through its whole life: author it, see it
listed with zero views, read it (which counts a view), observe the counter on
the next read, delete it, and see the listing empty again.
*/
func TestService_Lifecycle(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	created, err := service.Create(ctx, "author-1", post.CreateInput{
		Title:   "Hello World",
		Content: "First entry.",
	})
	require.NoError(t, err)
	assert.True(t, created.IsPublic, "posts default to public")
	assert.EqualValues(t, 0, created.Views)

	listed, meta, err := service.ListPublic(ctx, pagination.Params{Page: 1, Limit: 10}, nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.EqualValues(t, 0, listed[0].Views)
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, "Ada", listed[0].Author.Name)

	// First read returns the pre-increment count.
	read, err := service.Get(ctx, created.ID, nil, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, read.Views)

	// The bump is visible on the next read.
	read, err = service.Get(ctx, created.ID, nil, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, read.Views)

	require.NoError(t, service.Delete(ctx, created.ID, asRole(auth.UserRoleUser), "author-1"))

	listed, meta, err = service.ListPublic(ctx, pagination.Params{Page: 1, Limit: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Equal(t, 0, meta.Total)
}

/*
TestService_Get_PrivateVisibility verifies that private posts read as
NotFound for strangers and anonymous visitors, while the owner and admins
can read them.
*/
func TestService_Get_PrivateVisibility(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	created, err := service.Create(ctx, "author-1", post.CreateInput{
		Title:    "Draft",
		Content:  "Not ready.",
		IsPublic: pointer.To(false),
	})
	require.NoError(t, err)

	_, err = service.Get(ctx, created.ID, nil, "")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code, "anonymous visitors must not see private posts")

	_, err = service.Get(ctx, created.ID, asRole(auth.UserRoleUser), "stranger")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	_, err = service.Get(ctx, created.ID, asRole(auth.UserRoleUser), "author-1")
	assert.NoError(t, err)

	_, err = service.Get(ctx, created.ID, asRole(auth.UserRoleAdmin), "some-admin")
	assert.NoError(t, err)
}

/*
TestService_ListPublic_Pagination verifies the paging math: page windows,
total count, and ceil(total/limit) pages.
*/
func TestService_ListPublic_Pagination(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	for i := 0; i < 7; i++ {
		_, err := service.Create(ctx, "author-1", post.CreateInput{Title: "Post", Content: "Body"})
		require.NoError(t, err)
	}

	page1, meta, err := service.ListPublic(ctx, pagination.Params{Page: 1, Limit: 3}, nil)
	require.NoError(t, err)
	assert.Len(t, page1, 3)
	assert.Equal(t, 7, meta.Total)
	assert.Equal(t, 3, meta.TotalPages, "ceil(7/3) pages")

	page3, _, err := service.ListPublic(ctx, pagination.Params{Page: 3, Limit: 3}, nil)
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	// A page past the end is empty but still reports the true totals: the
	// client's pager needs ceil(total/limit) even when it overshoots.
	beyond, meta, err := service.ListPublic(ctx, pagination.Params{Page: 9, Limit: 3}, nil)
	require.NoError(t, err)
	assert.Empty(t, beyond, "pages past the end are empty, not an error")
	assert.Equal(t, 7, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
}

/*
TestService_ListPublic_TagFilter verifies that a tag filter narrows the feed
to posts carrying at least one of the requested tags, and that the total
reflects the filtered count.
*/
func TestService_ListPublic_TagFilter(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	_, err := service.Create(ctx, "author-1", post.CreateInput{Title: "Go notes", Content: "Body", Tags: []string{"go", "notes"}})
	require.NoError(t, err)
	_, err = service.Create(ctx, "author-1", post.CreateInput{Title: "Rust notes", Content: "Body", Tags: []string{"rust"}})
	require.NoError(t, err)
	_, err = service.Create(ctx, "author-1", post.CreateInput{Title: "Untagged", Content: "Body"})
	require.NoError(t, err)

	filtered, meta, err := service.ListPublic(ctx, pagination.Params{Page: 1, Limit: 10}, []string{"go", "rust"})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	assert.Equal(t, 2, meta.Total)

	none, meta, err := service.ListPublic(ctx, pagination.Params{Page: 1, Limit: 10}, []string{"cooking"})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 0, meta.Total)
}

/*
TestService_Search verifies search semantics: case-insensitive substring
matching on title and content, exact tag membership, public posts only, and
an empty result for a blank query.
*/
func TestService_Search(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	_, err := service.Create(ctx, "author-1", post.CreateInput{Title: "Hello Go", Content: "WORLD of servers", Tags: []string{"go"}})
	require.NoError(t, err)
	_, err = service.Create(ctx, "author-1", post.CreateInput{Title: "Quiet", Content: "nothing here", Tags: []string{"life"}})
	require.NoError(t, err)
	_, err = service.Create(ctx, "author-1", post.CreateInput{Title: "hello secret", Content: "hidden", IsPublic: pointer.To(false)})
	require.NoError(t, err)

	t.Run("title_case_insensitive", func(t *testing.T) {
		results, err := service.Search(ctx, "hello")
		require.NoError(t, err)
		require.Len(t, results, 1, "private posts never match")
		assert.Equal(t, "Hello Go", results[0].Title)
	})

	t.Run("content_case_insensitive", func(t *testing.T) {
		results, err := service.Search(ctx, "world")
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("exact_tag", func(t *testing.T) {
		results, err := service.Search(ctx, "life")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Quiet", results[0].Title)
	})

	t.Run("blank_query", func(t *testing.T) {
		results, err := service.Search(ctx, "   ")
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

/*
TestService_Update_Authorization verifies the manage rules: owners and admins
may edit, strangers get Forbidden on public posts, and partial edits leave
absent fields untouched.
*/
func TestService_Update_Authorization(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	created, err := service.Create(ctx, "author-1", post.CreateInput{Title: "Original", Content: "Body", Tags: []string{"go"}})
	require.NoError(t, err)

	_, err = service.Update(ctx, created.ID, post.UpdateInput{Title: pointer.To("Hacked")}, asRole(auth.UserRoleUser), "stranger")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	updated, err := service.Update(ctx, created.ID, post.UpdateInput{Title: pointer.To("Edited")}, asRole(auth.UserRoleUser), "author-1")
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)
	assert.Equal(t, "Body", updated.Content, "absent fields stay untouched")
	assert.Equal(t, []string{"go"}, updated.Tags)

	_, err = service.Update(ctx, created.ID, post.UpdateInput{Title: pointer.To("Moderated")}, asRole(auth.UserRoleAdmin), "some-admin")
	assert.NoError(t, err)
}

/*
TestService_Events verifies that every mutation emits a change event keyed by
the owning user, carrying the post ID as the dedup key.
*/
func TestService_Events(t *testing.T) {
	service, repo, events := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	created, err := service.Create(ctx, "author-1", post.CreateInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	_, err = service.Update(ctx, created.ID, post.UpdateInput{Content: pointer.To("C2")}, asRole(auth.UserRoleUser), "author-1")
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID, asRole(auth.UserRoleUser), "author-1"))

	recorded := events.all()
	require.Len(t, recorded, 3)
	wantTypes := []post.ChangeType{post.ChangeCreated, post.ChangeUpdated, post.ChangeDeleted}
	for i, rec := range recorded {
		assert.Equal(t, "author-1", rec.userID)
		assert.Equal(t, wantTypes[i], rec.event.Type)
		assert.Equal(t, created.ID, rec.event.Post.ID)
	}
}

/*
TestService_GetDashboard verifies the aggregates: post count, accumulated
views across posts, and the five most recently updated posts.
*/
func TestService_GetDashboard(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()
	repo.addAuthor("author-1", "Ada")

	var ids []string
	for i := 0; i < 7; i++ {
		created, err := service.Create(ctx, "author-1", post.CreateInput{Title: "Post", Content: "Body"})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	// Three reads on the first post, one on the second.
	for i := 0; i < 3; i++ {
		_, err := service.Get(ctx, ids[0], nil, "")
		require.NoError(t, err)
	}
	_, err := service.Get(ctx, ids[1], nil, "")
	require.NoError(t, err)

	dashboard, err := service.GetDashboard(ctx, "author-1")
	require.NoError(t, err)

	assert.EqualValues(t, 7, dashboard.PostsCount)
	assert.EqualValues(t, 4, dashboard.TotalViews)
	assert.Len(t, dashboard.RecentPosts, 5)
}
