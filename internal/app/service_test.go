package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/authpw"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/config"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/events"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/page"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/settings"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/store"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/vote"
)

type fakeStore struct {
	createUserFn         func(context.Context, store.User) error
	getUserByEmailFn     func(context.Context, string) (store.User, error)
	getUserByIDFn        func(context.Context, string) (store.User, error)
	insertTagFn          func(context.Context, store.Tag) error
	getTagFn             func(context.Context, string) (store.Tag, error)
	updateTagFn          func(context.Context, store.Tag) error
	deleteTagFn          func(context.Context, string) error
	archiveTagFn         func(context.Context, string) (bool, error)
	incrementViewCountFn func(context.Context, string) (int64, error)
	listTagsFn           func(context.Context, store.TagFilter, int, *page.Token) ([]store.Tag, error)
	listTagsByIDFn       func(context.Context, int, string) ([]store.Tag, error)
	insertStatusFn       func(context.Context, store.Status) error
	getStatusFn          func(context.Context, string) (store.Status, error)
	latestStatusFn       func(context.Context, string) (store.Status, error)
	listStatusesFn       func(context.Context, string, int, *page.Token) ([]store.Status, error)
	hasVotedFn           func(context.Context, string, string) (bool, error)
	castVoteFn           func(context.Context, string, string, vote.Action) (store.VoteResult, error)
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{ID: id, DisplayName: "Robin", Role: "user"}, nil
}
func (f *fakeStore) InsertTag(ctx context.Context, tag store.Tag) error {
	if f.insertTagFn != nil {
		return f.insertTagFn(ctx, tag)
	}
	return nil
}
func (f *fakeStore) GetTag(ctx context.Context, tagID string) (store.Tag, error) {
	if f.getTagFn != nil {
		return f.getTagFn(ctx, tagID)
	}
	return store.Tag{}, sql.ErrNoRows
}
func (f *fakeStore) UpdateTag(ctx context.Context, tag store.Tag) error {
	if f.updateTagFn != nil {
		return f.updateTagFn(ctx, tag)
	}
	return nil
}
func (f *fakeStore) DeleteTag(ctx context.Context, tagID string) error {
	if f.deleteTagFn != nil {
		return f.deleteTagFn(ctx, tagID)
	}
	return nil
}
func (f *fakeStore) ArchiveTag(ctx context.Context, tagID string) (bool, error) {
	if f.archiveTagFn != nil {
		return f.archiveTagFn(ctx, tagID)
	}
	return false, nil
}
func (f *fakeStore) IncrementViewCount(ctx context.Context, tagID string) (int64, error) {
	if f.incrementViewCountFn != nil {
		return f.incrementViewCountFn(ctx, tagID)
	}
	return 1, nil
}
func (f *fakeStore) ListTags(ctx context.Context, filter store.TagFilter, limit int, after *page.Token) ([]store.Tag, error) {
	if f.listTagsFn != nil {
		return f.listTagsFn(ctx, filter, limit, after)
	}
	return nil, nil
}
func (f *fakeStore) ListTagsByID(ctx context.Context, limit int, afterID string) ([]store.Tag, error) {
	if f.listTagsByIDFn != nil {
		return f.listTagsByIDFn(ctx, limit, afterID)
	}
	return nil, nil
}
func (f *fakeStore) InsertStatus(ctx context.Context, status store.Status) error {
	if f.insertStatusFn != nil {
		return f.insertStatusFn(ctx, status)
	}
	return nil
}
func (f *fakeStore) GetStatus(ctx context.Context, statusID string) (store.Status, error) {
	if f.getStatusFn != nil {
		return f.getStatusFn(ctx, statusID)
	}
	return store.Status{}, sql.ErrNoRows
}
func (f *fakeStore) LatestStatus(ctx context.Context, tagID string) (store.Status, error) {
	if f.latestStatusFn != nil {
		return f.latestStatusFn(ctx, tagID)
	}
	return store.Status{}, sql.ErrNoRows
}
func (f *fakeStore) ListStatuses(ctx context.Context, tagID string, limit int, after *page.Token) ([]store.Status, error) {
	if f.listStatusesFn != nil {
		return f.listStatusesFn(ctx, tagID, limit, after)
	}
	return nil, nil
}
func (f *fakeStore) HasVoted(ctx context.Context, statusID, userID string) (bool, error) {
	if f.hasVotedFn != nil {
		return f.hasVotedFn(ctx, statusID, userID)
	}
	return false, nil
}
func (f *fakeStore) CastVote(ctx context.Context, statusID, userID string, action vote.Action) (store.VoteResult, error) {
	if f.castVoteFn != nil {
		return f.castVoteFn(ctx, statusID, userID, action)
	}
	return store.VoteResult{}, sql.ErrNoRows
}
func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeSessions struct{}

func (fakeSessions) SaveRefreshSession(context.Context, string, store.User, time.Time) error {
	return nil
}
func (fakeSessions) LookupRefreshSession(context.Context, string) (store.User, error) {
	return store.User{}, errors.New("not found")
}
func (fakeSessions) RevokeRefreshSession(context.Context, string) error        { return nil }
func (fakeSessions) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (fakeSessions) IsAccessTokenRevoked(context.Context, string) (bool, error) {
	return false, nil
}

type fakeSettingsStore struct {
	mu    sync.Mutex
	value string
}

func (f *fakeSettingsStore) GetSetting(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value == "" {
		return "", sql.ErrNoRows
	}
	return f.value, nil
}
func (f *fakeSettingsStore) PutSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(typ events.Type) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg:       config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		store:     fs,
		sessions:  fakeSessions{},
		auth:      authpw.NewService(fs),
		threshold: settings.NewThresholdProvider(&fakeSettingsStore{}, time.Hour),
	}
}

func userSession() Session {
	return Session{UserID: "usr-1", UserName: "Robin", Role: "user"}
}

func TestCreateTagVotableDefaults(t *testing.T) {
	var insertedTag store.Tag
	var insertedStatus store.Status
	fs := &fakeStore{
		insertTagFn: func(_ context.Context, tag store.Tag) error {
			insertedTag = tag
			return nil
		},
		insertStatusFn: func(_ context.Context, status store.Status) error {
			insertedStatus = status
			return nil
		},
		getTagFn: func(_ context.Context, tagID string) (store.Tag, error) {
			insertedTag.ID = tagID
			return insertedTag, nil
		},
	}
	svc := newTestService(fs)
	pub := &recordingPublisher{}
	svc.events = pub

	tag, err := svc.CreateTag(context.Background(), userSession(), TagInput{
		LocationName: "Library stairwell",
		MissionType:  "ISSUE",
		Latitude:     24.787,
		Longitude:    120.997,
	})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if insertedStatus.Name != "open" {
		t.Fatalf("default status = %q, want open", insertedStatus.Name)
	}
	if insertedStatus.UpvoteCount == nil || *insertedStatus.UpvoteCount != 0 {
		t.Fatal("votable category should start with a zero counter")
	}
	if insertedTag.Geohash == "" {
		t.Fatal("geohash should be derived from coordinates")
	}
	if tag.CreatedBy != "usr-1" {
		t.Fatalf("CreatedBy = %q, want usr-1", tag.CreatedBy)
	}
	if added := pub.ofType(events.TagAdded); len(added) != 1 {
		t.Fatalf("added events = %d, want 1", len(added))
	}
}

func TestCreateTagNonVotableHasNoCounter(t *testing.T) {
	var insertedStatus store.Status
	fs := &fakeStore{
		insertStatusFn: func(_ context.Context, status store.Status) error {
			insertedStatus = status
			return nil
		},
		getTagFn: func(_ context.Context, tagID string) (store.Tag, error) {
			return store.Tag{ID: tagID, MissionType: "FACILITY"}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateTag(context.Background(), userSession(), TagInput{
		LocationName: "Water fountain",
		MissionType:  "FACILITY",
	})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if insertedStatus.Name != "normal" {
		t.Fatalf("default status = %q, want normal", insertedStatus.Name)
	}
	if insertedStatus.UpvoteCount != nil {
		t.Fatal("non-votable category must not carry a counter")
	}
}

func TestCreateTagRejectsUnknownMissionType(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.CreateTag(context.Background(), userSession(), TagInput{
		LocationName: "Somewhere",
		MissionType:  "MYSTERY",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 validation error, got %v", err)
	}
}

// keysetFake builds a ListTags implementation over an in-memory slice ordered
// newest first, mirroring the store's (updated_at, id) keyset behavior.
func keysetFake(tags []store.Tag) func(context.Context, store.TagFilter, int, *page.Token) ([]store.Tag, error) {
	return func(_ context.Context, _ store.TagFilter, limit int, after *page.Token) ([]store.Tag, error) {
		var out []store.Tag
		for _, tag := range tags {
			if after != nil {
				if !tag.UpdatedAt.Before(after.At) && !(tag.UpdatedAt.Equal(after.At) && tag.ID < after.ID) {
					continue
				}
			}
			out = append(out, tag)
			if len(out) == limit {
				break
			}
		}
		return out, nil
	}
}

func makeTags(n int) []store.Tag {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tags := make([]store.Tag, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, store.Tag{
			ID:        "tag-" + string(rune('a'+i)),
			UpdatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return tags
}

func TestListTagsPaginatesUntilEmpty(t *testing.T) {
	tags := makeTags(12)
	fs := &fakeStore{listTagsFn: keysetFake(tags)}
	svc := newTestService(fs)
	ctx := context.Background()

	var seen []string
	cursor := ""
	sizes := []int{5, 5, 2}
	for i := 0; ; i++ {
		result, err := svc.ListTags(ctx, store.TagFilter{}, page.Params{PageSize: 5, Cursor: cursor})
		if err != nil {
			t.Fatalf("ListTags() error = %v", err)
		}
		if result.Empty {
			if i != len(sizes) {
				t.Fatalf("got empty page after %d pages, want %d", i, len(sizes))
			}
			break
		}
		if len(result.Items) != sizes[i] {
			t.Fatalf("page %d size = %d, want %d", i, len(result.Items), sizes[i])
		}
		for _, tag := range result.Items {
			seen = append(seen, tag.ID)
		}
		if result.Cursor == "" {
			t.Fatal("non-empty page must carry a cursor")
		}
		cursor = result.Cursor
	}

	if len(seen) != len(tags) {
		t.Fatalf("walked %d tags, want %d", len(seen), len(tags))
	}
	unique := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		if _, dup := unique[id]; dup {
			t.Fatalf("tag %s appeared on two pages", id)
		}
		unique[id] = struct{}{}
	}
}

func TestListTagsClampsPageSize(t *testing.T) {
	var gotLimit int
	fs := &fakeStore{
		listTagsFn: func(_ context.Context, _ store.TagFilter, limit int, _ *page.Token) ([]store.Tag, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.ListTags(context.Background(), store.TagFilter{}, page.Params{PageSize: 50}); err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if gotLimit != page.MaxPageSize {
		t.Fatalf("limit = %d, want clamp to %d", gotLimit, page.MaxPageSize)
	}

	if _, err := svc.ListTags(context.Background(), store.TagFilter{}, page.Params{}); err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if gotLimit != page.DefaultPageSize {
		t.Fatalf("limit = %d, want default %d", gotLimit, page.DefaultPageSize)
	}
}

func TestListTagsMalformedCursorStartsOver(t *testing.T) {
	var gotAfter *page.Token
	fs := &fakeStore{
		listTagsFn: func(_ context.Context, _ store.TagFilter, _ int, after *page.Token) ([]store.Tag, error) {
			gotAfter = after
			return nil, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.ListTags(context.Background(), store.TagFilter{}, page.Params{Cursor: "not,a,cursor"}); err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if gotAfter != nil {
		t.Fatal("malformed cursor should behave like no cursor")
	}
}

func TestCastVoteArchivesOnThresholdCrossing(t *testing.T) {
	zero := int64(0)
	tag := store.Tag{ID: "tag-1", MissionType: "ISSUE", Archived: false}
	archiveCalls := 0
	fs := &fakeStore{
		castVoteFn: func(_ context.Context, statusID, _ string, _ vote.Action) (store.VoteResult, error) {
			return store.VoteResult{StatusID: statusID, NewCount: 3, HasVoted: true}, nil
		},
		getStatusFn: func(_ context.Context, statusID string) (store.Status, error) {
			return store.Status{ID: statusID, TagID: tag.ID, Name: "open", UpvoteCount: &zero}, nil
		},
		getTagFn: func(_ context.Context, _ string) (store.Tag, error) {
			return tag, nil
		},
		archiveTagFn: func(_ context.Context, _ string) (bool, error) {
			archiveCalls++
			first := !tag.Archived
			tag.Archived = true
			return first, nil
		},
	}
	svc := newTestService(fs)
	pub := &recordingPublisher{}
	svc.events = pub
	if err := svc.threshold.Set(context.Background(), 2); err != nil {
		t.Fatalf("Set threshold: %v", err)
	}

	resp, err := svc.CastVote(context.Background(), userSession(), "st-1", "UPVOTE")
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if resp.EntityID != "st-1" || resp.NewCount != 3 || !resp.HasVoted {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if archiveCalls != 1 {
		t.Fatalf("archive calls = %d, want 1", archiveCalls)
	}
	if archived := pub.ofType(events.TagArchived); len(archived) != 1 {
		t.Fatalf("archived events = %d, want 1", len(archived))
	}

	// A later vote on the already archived tag must not publish again.
	if _, err := svc.CastVote(context.Background(), userSession(), "st-1", "UPVOTE"); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if archived := pub.ofType(events.TagArchived); len(archived) != 1 {
		t.Fatalf("archived events after second vote = %d, want 1", len(archived))
	}
}

func TestCastVoteAtThresholdDoesNotArchive(t *testing.T) {
	zero := int64(0)
	archiveCalls := 0
	fs := &fakeStore{
		castVoteFn: func(_ context.Context, statusID, _ string, _ vote.Action) (store.VoteResult, error) {
			return store.VoteResult{StatusID: statusID, NewCount: 2, HasVoted: true}, nil
		},
		getStatusFn: func(_ context.Context, statusID string) (store.Status, error) {
			return store.Status{ID: statusID, TagID: "tag-1", Name: "open", UpvoteCount: &zero}, nil
		},
		getTagFn: func(_ context.Context, tagID string) (store.Tag, error) {
			return store.Tag{ID: tagID, MissionType: "ISSUE"}, nil
		},
		archiveTagFn: func(_ context.Context, _ string) (bool, error) {
			archiveCalls++
			return true, nil
		},
	}
	svc := newTestService(fs)
	if err := svc.threshold.Set(context.Background(), 2); err != nil {
		t.Fatalf("Set threshold: %v", err)
	}

	if _, err := svc.CastVote(context.Background(), userSession(), "st-1", "UPVOTE"); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if archiveCalls != 0 {
		t.Fatal("count equal to threshold must not archive")
	}
}

func TestCastVoteSurfacesArchivalFailure(t *testing.T) {
	zero := int64(0)
	fs := &fakeStore{
		castVoteFn: func(_ context.Context, statusID, _ string, _ vote.Action) (store.VoteResult, error) {
			return store.VoteResult{StatusID: statusID, NewCount: 3, HasVoted: true}, nil
		},
		getStatusFn: func(_ context.Context, statusID string) (store.Status, error) {
			return store.Status{ID: statusID, TagID: "tag-1", Name: "open", UpvoteCount: &zero}, nil
		},
		getTagFn: func(_ context.Context, tagID string) (store.Tag, error) {
			return store.Tag{ID: tagID, MissionType: "ISSUE"}, nil
		},
		archiveTagFn: func(_ context.Context, _ string) (bool, error) {
			return false, errors.New("connection reset")
		},
	}
	svc := newTestService(fs)
	if err := svc.threshold.Set(context.Background(), 2); err != nil {
		t.Fatalf("Set threshold: %v", err)
	}

	resp, err := svc.CastVote(context.Background(), userSession(), "st-1", "UPVOTE")
	if err == nil {
		t.Fatal("archival failure after the commit must surface, not be swallowed")
	}
	var de *DomainError
	if !errors.As(err, &de) || de.Status != http.StatusInternalServerError || de.Code != "ARCHIVE_FAILED" {
		t.Fatalf("err = %v, want 500 ARCHIVE_FAILED", err)
	}
	// The vote committed before archival ran, so the response and the error
	// details both carry the recorded result.
	if resp.NewCount != 3 || !resp.HasVoted {
		t.Fatalf("committed vote result lost: %+v", resp)
	}
	if got, ok := de.Details.(VoteResponse); !ok || got != resp {
		t.Fatalf("error details = %+v, want committed vote response", de.Details)
	}
}

func TestCastVoteSurfacesReloadFailure(t *testing.T) {
	fs := &fakeStore{
		castVoteFn: func(_ context.Context, statusID, _ string, _ vote.Action) (store.VoteResult, error) {
			return store.VoteResult{StatusID: statusID, NewCount: 1, HasVoted: true}, nil
		},
		getStatusFn: func(_ context.Context, _ string) (store.Status, error) {
			return store.Status{}, errors.New("connection reset")
		},
	}
	svc := newTestService(fs)

	resp, err := svc.CastVote(context.Background(), userSession(), "st-1", "UPVOTE")
	var de *DomainError
	if !errors.As(err, &de) || de.Code != "ARCHIVE_FAILED" {
		t.Fatalf("err = %v, want ARCHIVE_FAILED", err)
	}
	if resp.NewCount != 1 || !resp.HasVoted {
		t.Fatalf("committed vote result lost: %+v", resp)
	}
}

func TestCastVotePropagatesStateMachineErrors(t *testing.T) {
	fs := &fakeStore{
		castVoteFn: func(_ context.Context, _, _ string, _ vote.Action) (store.VoteResult, error) {
			return store.VoteResult{}, vote.ErrInvalidTransition
		},
	}
	svc := newTestService(fs)

	_, err := svc.CastVote(context.Background(), userSession(), "st-1", "UPVOTE")
	if !errors.Is(err, vote.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	_, err = svc.CastVote(context.Background(), userSession(), "st-1", "SIDEWAYS")
	if !errors.Is(err, vote.ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
}

func TestVoteStateReadsWithoutMutating(t *testing.T) {
	three := int64(3)
	fs := &fakeStore{
		getStatusFn: func(_ context.Context, statusID string) (store.Status, error) {
			return store.Status{ID: statusID, TagID: "tag-1", Name: "open", UpvoteCount: &three}, nil
		},
		hasVotedFn: func(_ context.Context, _, userID string) (bool, error) {
			return userID == "usr-1", nil
		},
	}
	svc := newTestService(fs)

	resp, err := svc.VoteState(context.Background(), userSession(), "st-1")
	if err != nil {
		t.Fatalf("VoteState() error = %v", err)
	}
	if resp.NewCount != 3 || !resp.HasVoted {
		t.Fatalf("unexpected state: %+v", resp)
	}

	fs.getStatusFn = func(_ context.Context, statusID string) (store.Status, error) {
		return store.Status{ID: statusID, TagID: "tag-1", Name: "normal"}, nil
	}
	if _, err := svc.VoteState(context.Background(), userSession(), "st-2"); !errors.Is(err, vote.ErrNotVotable) {
		t.Fatalf("err = %v, want ErrNotVotable", err)
	}
}

func TestAdminListTagsRequiresAdmin(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.AdminListTags(context.Background(), userSession(), page.Params{})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}

	admin := Session{UserID: "usr-2", Role: "admin"}
	if _, err := svc.AdminListTags(context.Background(), admin, page.Params{}); err != nil {
		t.Fatalf("AdminListTags() as admin error = %v", err)
	}
}

func TestSetThresholdRequiresAdmin(t *testing.T) {
	svc := newTestService(&fakeStore{})

	err := svc.SetThreshold(context.Background(), userSession(), 5)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}

	admin := Session{UserID: "usr-2", Role: "admin"}
	if err := svc.SetThreshold(context.Background(), admin, 5); err != nil {
		t.Fatalf("SetThreshold() as admin error = %v", err)
	}
	if svc.Threshold() != 5 {
		t.Fatalf("Threshold() = %d, want 5", svc.Threshold())
	}
}

func TestUpdateTagOnlyReporterOrAdmin(t *testing.T) {
	fs := &fakeStore{
		getTagFn: func(_ context.Context, tagID string) (store.Tag, error) {
			return store.Tag{ID: tagID, MissionType: "ISSUE", CreatedBy: "usr-1"}, nil
		},
	}
	svc := newTestService(fs)

	stranger := Session{UserID: "usr-9", Role: "user"}
	_, err := svc.UpdateTag(context.Background(), stranger, "tag-1", TagInput{LocationName: "X", MissionType: "ISSUE"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403 for non-reporter, got %v", err)
	}

	if _, err := svc.UpdateTag(context.Background(), userSession(), "tag-1", TagInput{LocationName: "X", MissionType: "ISSUE"}); err != nil {
		t.Fatalf("UpdateTag() as reporter error = %v", err)
	}
}
