// Package types holds the Reddit models returned by the listing and lookup
// endpoints the client streams from.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind prefixes used in Reddit fullnames.
const (
	KindComment   = "t1"
	KindAccount   = "t2"
	KindLink      = "t3"
	KindMessage   = "t4"
	KindSubreddit = "t5"
	KindListing   = "Listing"
)

// RedditObject is implemented by every Reddit model that carries an ID and a
// fullname. Streams use the fullname as item identity.
type RedditObject interface {
	GetID() string
	GetName() string
}

// ThingData holds the identifying fields shared by Reddit objects.
type ThingData struct {
	ID   string `json:"id"`   // ID (without prefix)
	Name string `json:"name"` // Full name (e.g., "t3_abc123")
}

// GetID returns the object's ID.
func (td ThingData) GetID() string {
	return td.ID
}

// GetName returns the object's full name.
func (td ThingData) GetName() string {
	return td.Name
}

// Thing is the kind/data envelope Reddit wraps every object in. Data is left
// raw and decoded according to Kind.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Fullname decodes just the name field of the envelope's data.
func (t *Thing) Fullname() string {
	var td ThingData
	if err := json.Unmarshal(t.Data, &td); err != nil {
		return ""
	}
	return td.Name
}

// KindOf returns the kind prefix of a fullname ("t3" for "t3_abc123"), or ""
// if the value has no prefix.
func KindOf(fullname string) string {
	kind, _, ok := strings.Cut(fullname, "_")
	if !ok {
		return ""
	}
	return kind
}

// Votable is an embeddable struct for things that can be voted on.
type Votable struct {
	Ups   int `json:"ups"`
	Downs int `json:"downs"`
	// Likes indicates the user's vote: true for upvote, false for downvote, null for no vote.
	Likes *bool `json:"likes"`
}

// Created is an embeddable struct for things that have a creation time.
type Created struct {
	Created    float64 `json:"created"`
	CreatedUTC float64 `json:"created_utc"`
}

// Edited represents a field that can be a boolean or a timestamp.
// An old edit marked as `true` has IsEdited set and a zero Timestamp.
type Edited struct {
	IsEdited  bool
	Timestamp float64
}

// UnmarshalJSON accepts false, true, null or a float timestamp.
func (e *Edited) UnmarshalJSON(data []byte) error {
	switch string(bytes.ToLower(bytes.TrimSpace(data))) {
	case "false", "null":
		*e = Edited{}
		return nil
	case "true":
		*e = Edited{IsEdited: true}
		return nil
	}

	var timestamp float64
	if err := json.Unmarshal(data, &timestamp); err != nil {
		return fmt.Errorf("unrecognized type for 'edited' field: %s", data)
	}
	*e = Edited{IsEdited: true, Timestamp: timestamp}
	return nil
}

// MarshalJSON writes the same shapes UnmarshalJSON accepts.
func (e Edited) MarshalJSON() ([]byte, error) {
	switch {
	case !e.IsEdited:
		return []byte("false"), nil
	case e.Timestamp == 0:
		return []byte("true"), nil
	default:
		return json.Marshal(e.Timestamp)
	}
}

// ListingData contains the data for a Listing, which is used for pagination.
type ListingData struct {
	BeforeFullname string   `json:"before"` // Reddit fullname for pagination (previous page)
	AfterFullname  string   `json:"after"`  // Reddit fullname for pagination (next page)
	Modhash        string   `json:"modhash"`
	Children       []*Thing `json:"children"` // Raw Things with kind+data, parsed by caller
}

// Pagination captures the shared pagination parameters of Reddit listing
// endpoints. Cursors are fullnames such as "t3_abc123".
type Pagination struct {
	// Limit specifies the number of items to retrieve.
	// Reddit enforces a maximum of 100 items per request.
	// If 0, Reddit's default limit (usually 25) is used.
	Limit int

	// After selects items older than this fullname.
	// Cannot be used together with Before.
	After string

	// Before selects items newer than this fullname.
	// Cannot be used together with After.
	Before string
}

// PostsRequest describes a request for the newest posts of a subreddit. An
// empty Subreddit targets the front page.
type PostsRequest struct {
	Subreddit string
	Pagination
}

// CommentsRequest describes a request for the newest comments across a
// subreddit. An empty Subreddit targets all of Reddit.
type CommentsRequest struct {
	Subreddit string
	Pagination
}

// AccountData contains the data for a user Account.
type AccountData struct {
	ThingData
	Created
	CommentKarma     int   `json:"comment_karma"`
	HasMail          *bool `json:"has_mail"`
	HasVerifiedEmail *bool `json:"has_verified_email"`
	IsGold           bool  `json:"is_gold"`
	IsMod            bool  `json:"is_mod"`
	LinkKarma        int   `json:"link_karma"`
	Over18           bool  `json:"over_18"`
}

// Post represents a Reddit post with all its fields
type Post struct {
	ThingData
	Votable
	Created
	Author          string          `json:"author"`
	AuthorFlairText *string         `json:"author_flair_text"`
	Domain          string          `json:"domain"`
	IsSelf          bool            `json:"is_self"`
	LinkFlairText   *string         `json:"link_flair_text"`
	Locked          bool            `json:"locked"`
	Media           json.RawMessage `json:"media,omitempty"`
	NumComments     int             `json:"num_comments"`
	Over18          bool            `json:"over_18"`
	Permalink       string          `json:"permalink"`
	Score           int             `json:"score"`
	SelfText        string          `json:"selftext"`
	Subreddit       string          `json:"subreddit"`
	SubredditID     string          `json:"subreddit_id"`
	Thumbnail       string          `json:"thumbnail"`
	Title           string          `json:"title"`
	URL             string          `json:"url"`
	Edited          Edited          `json:"edited"` // Can be a boolean or a float64 timestamp
	Distinguished   *string         `json:"distinguished"`
	Stickied        bool            `json:"stickied"`
}

// Comment represents a Reddit comment as returned by comment listings. Reply
// trees are not expanded.
type Comment struct {
	ThingData
	Votable
	Created
	Author          string  `json:"author"`
	AuthorFlairText *string `json:"author_flair_text"`
	Body            string  `json:"body"`
	Edited          Edited  `json:"edited"` // Can be a boolean (for old comments) or a float64 timestamp
	LinkAuthor      string  `json:"link_author,omitempty"`
	LinkID          string  `json:"link_id"`
	LinkTitle       string  `json:"link_title,omitempty"`
	LinkPermalink   string  `json:"link_permalink,omitempty"`
	ParentID        string  `json:"parent_id"`
	Permalink       string  `json:"permalink"`
	Score           int     `json:"score"`
	Subreddit       string  `json:"subreddit"`
	SubredditID     string  `json:"subreddit_id"`
	Distinguished   *string `json:"distinguished"`
}

// PostsResponse represents a page of posts with its pagination cursors.
type PostsResponse struct {
	Posts          []*Post
	AfterFullname  string // Reddit fullname (e.g. "t3_abc123") of last item for next page
	BeforeFullname string // Reddit fullname (e.g. "t3_abc123") of first item for prev page
}

// CommentsResponse represents a page of comments with its pagination cursors.
type CommentsResponse struct {
	Comments       []*Comment
	AfterFullname  string // Reddit fullname (e.g. "t1_abc123") of last comment for next page
	BeforeFullname string // Reddit fullname (e.g. "t1_abc123") of first comment for prev page
}
