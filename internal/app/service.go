package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/stvreumi/CAMPUSbackend-sub000/internal/auth"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/authpw"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/category"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/config"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/events"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/media"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/page"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/rbac"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/search"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/session"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/settings"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/store"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/util"
	"github.com/stvreumi/CAMPUSbackend-sub000/internal/vote"
)

const (
	// tagGeohashChars is the precision stored per tag; nearbyGeohashChars is
	// the prefix width used for proximity listings (roughly a city block).
	tagGeohashChars    = uint(9)
	nearbyGeohashChars = uint(6)
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type TagInput struct {
	LocationName string  `json:"locationName"`
	MissionType  string  `json:"missionType"`
	Subtype      string  `json:"subType"`
	Target       string  `json:"target"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Floor        *string `json:"floor"`
	StatusName   string  `json:"statusName"`
	Description  string  `json:"description"`
}

type StatusInput struct {
	StatusName  string `json:"statusName"`
	Description string `json:"description"`
}

// VoteResponse is the wire shape a committed vote reports back.
type VoteResponse struct {
	EntityID string `json:"entityId"`
	NewCount int64  `json:"newCount"`
	HasVoted bool   `json:"hasVoted"`
}

// TagDetail is a tag plus its most recent status entry.
type TagDetail struct {
	store.Tag
	LatestStatus *store.Status `json:"latestStatus,omitempty"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)

	InsertTag(context.Context, store.Tag) error
	GetTag(context.Context, string) (store.Tag, error)
	UpdateTag(context.Context, store.Tag) error
	DeleteTag(context.Context, string) error
	ArchiveTag(context.Context, string) (bool, error)
	IncrementViewCount(context.Context, string) (int64, error)
	ListTags(context.Context, store.TagFilter, int, *page.Token) ([]store.Tag, error)
	ListTagsByID(context.Context, int, string) ([]store.Tag, error)

	InsertStatus(context.Context, store.Status) error
	GetStatus(context.Context, string) (store.Status, error)
	LatestStatus(context.Context, string) (store.Status, error)
	ListStatuses(context.Context, string, int, *page.Token) ([]store.Status, error)
	HasVoted(context.Context, string, string) (bool, error)
	CastVote(context.Context, string, string, vote.Action) (store.VoteResult, error)

	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(context.Context, string, store.User, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexTag(t search.TagRecord)
	DeleteTag(id string)
}

type mediaService interface {
	UploadURL(ctx context.Context, tagID, fileName string) (string, string, error)
	DownloadURL(ctx context.Context, objectKey string) (string, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	auth      *authpw.Service
	threshold *settings.ThresholdProvider

	search searchService
	media  mediaService
	events events.Publisher
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, threshold *settings.ThresholdProvider) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		auth:      authpw.NewService(dataStore),
		threshold: threshold,
	}
}

func (s *Service) SetSearch(svc *search.Service) { s.search = svc }
func (s *Service) SetMedia(svc *media.Service)   { s.media = svc }
func (s *Service) SetEvents(pub events.Publisher) {
	s.events = pub
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- Sessions ---

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.auth.SignUp(ctx, req)
	if err != nil {
		if err.Error() == "email already registered" {
			return Session{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return Session{}, domainError(http.StatusBadRequest, "SIGNUP_FAILED", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- Tags ---

func (s *Service) CreateTag(ctx context.Context, session Session, input TagInput) (store.Tag, error) {
	mission, err := category.Parse(input.MissionType)
	if err != nil {
		return store.Tag{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown missionType", nil)
	}
	if err := validateTagInput(input); err != nil {
		return store.Tag{}, err
	}

	tag := store.Tag{
		ID:             util.NewID("tag"),
		LocationName:   strings.TrimSpace(input.LocationName),
		MissionType:    string(mission),
		MissionSubtype: strings.TrimSpace(input.Subtype),
		MissionTarget:  strings.TrimSpace(input.Target),
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Geohash:        geohash.EncodeWithPrecision(input.Latitude, input.Longitude, tagGeohashChars),
		Floor:          input.Floor,
		CreatedBy:      session.UserID,
	}
	if err := s.store.InsertTag(ctx, tag); err != nil {
		return store.Tag{}, err
	}

	statusName := strings.TrimSpace(input.StatusName)
	if statusName == "" {
		statusName = mission.DefaultStatus()
	}
	status := store.Status{
		ID:          util.NewID("st"),
		TagID:       tag.ID,
		Name:        statusName,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   session.UserID,
	}
	if mission.Votable() {
		zero := int64(0)
		status.UpvoteCount = &zero
	}
	if err := s.store.InsertStatus(ctx, status); err != nil {
		return store.Tag{}, err
	}

	created, err := s.store.GetTag(ctx, tag.ID)
	if err != nil {
		return store.Tag{}, err
	}
	s.publish(ctx, events.TagAdded, created)
	s.indexTag(created, statusName)
	return created, nil
}

func (s *Service) GetTag(ctx context.Context, tagID string) (TagDetail, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return TagDetail{}, err
	}
	detail := TagDetail{Tag: tag}
	if latest, err := s.store.LatestStatus(ctx, tagID); err == nil {
		detail.LatestStatus = &latest
	}
	return detail, nil
}

func (s *Service) UpdateTag(ctx context.Context, session Session, tagID string, input TagInput) (store.Tag, error) {
	existing, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return store.Tag{}, err
	}
	if existing.CreatedBy != session.UserID && !rbac.Can(rbac.Role(session.Role), rbac.ActionAdmin) {
		return store.Tag{}, domainError(http.StatusForbidden, "FORBIDDEN", "Only the reporter or an admin can update a tag", nil)
	}
	if input.MissionType != "" && input.MissionType != existing.MissionType {
		return store.Tag{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missionType cannot be changed", nil)
	}
	if err := validateTagInput(input); err != nil {
		return store.Tag{}, err
	}

	existing.LocationName = strings.TrimSpace(input.LocationName)
	existing.MissionSubtype = strings.TrimSpace(input.Subtype)
	existing.MissionTarget = strings.TrimSpace(input.Target)
	existing.Latitude = input.Latitude
	existing.Longitude = input.Longitude
	existing.Geohash = geohash.EncodeWithPrecision(input.Latitude, input.Longitude, tagGeohashChars)
	existing.Floor = input.Floor

	if err := s.store.UpdateTag(ctx, existing); err != nil {
		return store.Tag{}, err
	}
	updated, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return store.Tag{}, err
	}
	s.publish(ctx, events.TagUpdated, updated)
	s.indexTagWithLatest(ctx, updated)
	return updated, nil
}

func (s *Service) DeleteTag(ctx context.Context, session Session, tagID string) error {
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionAdmin) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Admin role required", nil)
	}
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return err
	}
	s.publish(ctx, events.TagDeleted, tag)
	if s.search != nil {
		s.search.DeleteTag(tagID)
	}
	return nil
}

func (s *Service) ListTags(ctx context.Context, filter store.TagFilter, params page.Params) (page.Page[store.Tag], error) {
	var after *page.Token
	if token, ok := page.DecodeToken(params.Cursor); ok {
		after = &token
	}
	items, err := s.store.ListTags(ctx, filter, params.Limit(), after)
	if err != nil {
		return page.Page[store.Tag]{}, err
	}
	return page.New(items, func(t store.Tag) string {
		return page.EncodeToken(t.UpdatedAt, t.ID)
	}), nil
}

func (s *Service) ListUserTags(ctx context.Context, session Session, params page.Params) (page.Page[store.Tag], error) {
	return s.ListTags(ctx, store.TagFilter{CreatedBy: session.UserID, IncludeArchived: true}, params)
}

// NearbyTags lists tags sharing a geohash prefix with the given point. A
// prefix match is a bounding box, not a radius; cells near the edge of a
// neighboring box can be missed.
func (s *Service) NearbyTags(ctx context.Context, lat, lng float64, params page.Params) (page.Page[store.Tag], error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return page.Page[store.Tag]{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "coordinates out of range", nil)
	}
	prefix := geohash.EncodeWithPrecision(lat, lng, nearbyGeohashChars)
	return s.ListTags(ctx, store.TagFilter{GeohashPrefix: prefix}, params)
}

// AdminListTags walks every tag, archived included, in stable id order. The
// cursor is the last id of the previous page, so the enumeration is unaffected
// by tags being updated mid-walk.
func (s *Service) AdminListTags(ctx context.Context, session Session, params page.Params) (page.Page[store.Tag], error) {
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionAdmin) {
		return page.Page[store.Tag]{}, domainError(http.StatusForbidden, "FORBIDDEN", "Admin role required", nil)
	}
	afterID, _ := page.DecodeID(params.Cursor)
	items, err := s.store.ListTagsByID(ctx, params.Limit(), afterID)
	if err != nil {
		return page.Page[store.Tag]{}, err
	}
	return page.New(items, func(t store.Tag) string {
		return page.EncodeID(t.ID)
	}), nil
}

func (s *Service) RecordView(ctx context.Context, tagID string) (int64, error) {
	return s.store.IncrementViewCount(ctx, tagID)
}

// --- Statuses and votes ---

func (s *Service) ListTagStatuses(ctx context.Context, tagID string, params page.Params) (page.Page[store.Status], error) {
	if _, err := s.store.GetTag(ctx, tagID); err != nil {
		return page.Page[store.Status]{}, err
	}
	var after *page.Token
	if token, ok := page.DecodeToken(params.Cursor); ok {
		after = &token
	}
	items, err := s.store.ListStatuses(ctx, tagID, params.Limit(), after)
	if err != nil {
		return page.Page[store.Status]{}, err
	}
	return page.New(items, func(st store.Status) string {
		return page.EncodeToken(st.CreatedAt, st.ID)
	}), nil
}

func (s *Service) AddStatus(ctx context.Context, session Session, tagID string, input StatusInput) (store.Status, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return store.Status{}, err
	}
	statusName := strings.TrimSpace(input.StatusName)
	if statusName == "" {
		return store.Status{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "statusName is required", nil)
	}

	status := store.Status{
		ID:          util.NewID("st"),
		TagID:       tag.ID,
		Name:        statusName,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   session.UserID,
	}
	if category.MissionType(tag.MissionType).Votable() {
		zero := int64(0)
		status.UpvoteCount = &zero
	}
	if err := s.store.InsertStatus(ctx, status); err != nil {
		return store.Status{}, err
	}

	updated, err := s.store.GetTag(ctx, tagID)
	if err == nil {
		s.publish(ctx, events.TagUpdated, updated)
		s.indexTag(updated, statusName)
	}
	return status, nil
}

// CastVote applies the vote inside the store transaction, then evaluates the
// archive policy on the committed counter. A failure on the archival path is
// surfaced as ARCHIVE_FAILED with the committed result in the error details;
// the vote itself is never rolled back.
func (s *Service) CastVote(ctx context.Context, session Session, statusID, rawAction string) (VoteResponse, error) {
	action, err := vote.ParseAction(rawAction)
	if err != nil {
		return VoteResponse{}, err
	}
	result, err := s.store.CastVote(ctx, statusID, session.UserID, action)
	if err != nil {
		return VoteResponse{}, err
	}
	resp := VoteResponse{EntityID: statusID, NewCount: result.NewCount, HasVoted: result.HasVoted}

	status, err := s.store.GetStatus(ctx, statusID)
	if err != nil {
		log.Printf("vote: load status %s after vote: %v", statusID, err)
		return resp, archiveFailed(resp)
	}
	tag, err := s.store.GetTag(ctx, status.TagID)
	if err != nil {
		log.Printf("vote: load tag %s after vote: %v", status.TagID, err)
		return resp, archiveFailed(resp)
	}

	votable := category.MissionType(tag.MissionType).Votable()
	if vote.ShouldArchive(votable, tag.Archived, result.NewCount, s.threshold.Current()) {
		transitioned, err := s.store.ArchiveTag(ctx, tag.ID)
		if err != nil {
			log.Printf("vote: archive tag %s: %v", tag.ID, err)
			return resp, archiveFailed(resp)
		}
		if transitioned {
			if archived, err := s.store.GetTag(ctx, tag.ID); err == nil {
				s.publish(ctx, events.TagArchived, archived)
				s.indexTag(archived, status.Name)
			} else {
				// The archive write itself landed; event fan-out and
				// indexing are best effort from here.
				log.Printf("vote: reload tag %s after archive: %v", tag.ID, err)
			}
		}
	}
	return resp, nil
}

// archiveFailed wraps a post-commit archival failure. The vote stayed
// committed, so the response rides along in the error details for the client.
func archiveFailed(resp VoteResponse) error {
	return domainError(http.StatusInternalServerError, "ARCHIVE_FAILED",
		"Vote recorded but archival evaluation failed", resp)
}

// VoteState reports the caller's standing on a status without changing it.
func (s *Service) VoteState(ctx context.Context, session Session, statusID string) (VoteResponse, error) {
	status, err := s.store.GetStatus(ctx, statusID)
	if err != nil {
		return VoteResponse{}, err
	}
	if status.UpvoteCount == nil {
		return VoteResponse{}, vote.ErrNotVotable
	}
	hasVoted, err := s.store.HasVoted(ctx, statusID, session.UserID)
	if err != nil {
		return VoteResponse{}, err
	}
	return VoteResponse{EntityID: statusID, NewCount: *status.UpvoteCount, HasVoted: hasVoted}, nil
}

// --- Settings ---

func (s *Service) Threshold() int {
	return s.threshold.Current()
}

func (s *Service) SetThreshold(ctx context.Context, session Session, value int) error {
	if !rbac.Can(rbac.Role(session.Role), rbac.ActionAdmin) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Admin role required", nil)
	}
	if err := s.threshold.Set(ctx, value); err != nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return nil
}

// --- Search and media ---

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) MediaUploadURL(ctx context.Context, session Session, tagID, fileName string) (objectKey, uploadURL string, err error) {
	if s.media == nil {
		return "", "", domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage not configured", nil)
	}
	if _, err := s.store.GetTag(ctx, tagID); err != nil {
		return "", "", err
	}
	return s.media.UploadURL(ctx, tagID, fileName)
}

func (s *Service) MediaDownloadURL(ctx context.Context, objectKey string) (string, error) {
	if s.media == nil {
		return "", domainError(http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage not configured", nil)
	}
	return s.media.DownloadURL(ctx, objectKey)
}

// --- helpers ---

func validateTagInput(input TagInput) error {
	if strings.TrimSpace(input.LocationName) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "locationName is required", nil)
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "coordinates out of range", nil)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, tag store.Tag) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.Event{Type: typ, Tag: tag}); err != nil {
		log.Printf("events: publish %s for %s: %v", typ, tag.ID, err)
	}
}

func (s *Service) indexTag(tag store.Tag, latestStatus string) {
	if s.search == nil {
		return
	}
	floor := ""
	if tag.Floor != nil {
		floor = *tag.Floor
	}
	s.search.IndexTag(search.TagRecord{
		ID:             tag.ID,
		LocationName:   tag.LocationName,
		MissionType:    tag.MissionType,
		MissionSubtype: tag.MissionSubtype,
		Floor:          floor,
		Archived:       tag.Archived,
		LatestStatus:   latestStatus,
	})
}

func (s *Service) indexTagWithLatest(ctx context.Context, tag store.Tag) {
	latest := ""
	if status, err := s.store.LatestStatus(ctx, tag.ID); err == nil {
		latest = status.Name
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Printf("search: load latest status for %s: %v", tag.ID, err)
	}
	s.indexTag(tag, latest)
}
