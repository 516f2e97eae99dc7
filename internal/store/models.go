package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Tag is a reported facility/location record. Archived only ever transitions
// false→true; ViewCount only grows.
type Tag struct {
	ID             string    `json:"id"`
	LocationName   string    `json:"locationName"`
	MissionType    string    `json:"missionType"`
	MissionSubtype string    `json:"subType,omitempty"`
	MissionTarget  string    `json:"target,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Geohash        string    `json:"geohash"`
	Floor          *string   `json:"floor,omitempty"`
	Archived       bool      `json:"archived"`
	ViewCount      int64     `json:"viewCount"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Status is one append-only history entry under a tag. UpvoteCount is nil for
// status kinds that cannot be voted on; once written it is mutated only by
// CastVote.
type Status struct {
	ID          string    `json:"id"`
	TagID       string    `json:"tagId"`
	Name        string    `json:"statusName"`
	Description string    `json:"description,omitempty"`
	UpvoteCount *int64    `json:"numberOfUpVote"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// VoteResult is what a committed vote transaction reports back.
type VoteResult struct {
	StatusID string
	NewCount int64
	HasVoted bool
}

// TagFilter narrows tag listings.
type TagFilter struct {
	MissionType   string
	CreatedBy     string
	GeohashPrefix string
	// IncludeArchived widens listings to archived tags; default hides them.
	IncludeArchived bool
}
