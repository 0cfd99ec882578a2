package internal

import (
	"encoding/json"
	"fmt"

	pkgerrs "github.com/jamesprial/go-reddit-stream/pkg/errors"
	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

// Parser handles parsing of Reddit API responses
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseThing determines the type of a Thing and returns the appropriate typed struct.
func (p *Parser) ParseThing(thing *types.Thing) (any, error) {
	if thing == nil {
		return nil, parseErr("thing", "thing is nil", nil)
	}

	switch thing.Kind {
	case types.KindListing:
		return p.ParseListing(thing)
	case types.KindComment:
		return p.ParseComment(thing)
	case types.KindAccount:
		return p.ParseAccount(thing)
	case types.KindLink:
		return p.ParseLink(thing)
	default:
		return nil, parseErr("thing", fmt.Sprintf("unknown kind: %s", thing.Kind), nil)
	}
}

// ParseListing extracts a ListingData from a Thing of kind "Listing".
func (p *Parser) ParseListing(thing *types.Thing) (*types.ListingData, error) {
	var listing types.ListingData
	if err := decodeKind(thing, types.KindListing, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ParseLink extracts a Post from a Thing of kind "t3".
func (p *Parser) ParseLink(thing *types.Thing) (*types.Post, error) {
	var post types.Post
	if err := decodeKind(thing, types.KindLink, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ParseComment extracts a Comment from a Thing of kind "t1". The replies
// field is ignored.
func (p *Parser) ParseComment(thing *types.Thing) (*types.Comment, error) {
	var comment types.Comment
	if err := decodeKind(thing, types.KindComment, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ParseAccount extracts an AccountData from a Thing of kind "t2".
func (p *Parser) ParseAccount(thing *types.Thing) (*types.AccountData, error) {
	var account types.AccountData
	if err := decodeKind(thing, types.KindAccount, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ParsePostListing extracts the posts and cursors of a link listing. Children
// of other kinds, or that fail to decode, are skipped.
func (p *Parser) ParsePostListing(thing *types.Thing) (*types.PostsResponse, error) {
	listing, err := p.ParseListing(thing)
	if err != nil {
		return nil, err
	}

	posts := make([]*types.Post, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child == nil || child.Kind != types.KindLink {
			continue
		}
		post, err := p.ParseLink(child)
		if err != nil {
			continue
		}
		posts = append(posts, post)
	}

	return &types.PostsResponse{
		Posts:          posts,
		AfterFullname:  listing.AfterFullname,
		BeforeFullname: listing.BeforeFullname,
	}, nil
}

// ParseCommentListing extracts the comments and cursors of a flat comment
// listing such as r/{subreddit}/comments.
func (p *Parser) ParseCommentListing(thing *types.Thing) (*types.CommentsResponse, error) {
	listing, err := p.ParseListing(thing)
	if err != nil {
		return nil, err
	}

	comments := make([]*types.Comment, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child == nil || child.Kind != types.KindComment {
			continue
		}
		comment, err := p.ParseComment(child)
		if err != nil {
			continue
		}
		comments = append(comments, comment)
	}

	return &types.CommentsResponse{
		Comments:       comments,
		AfterFullname:  listing.AfterFullname,
		BeforeFullname: listing.BeforeFullname,
	}, nil
}

// ExtractThings returns the non-nil children of a listing in order.
func (p *Parser) ExtractThings(thing *types.Thing) ([]*types.Thing, error) {
	listing, err := p.ParseListing(thing)
	if err != nil {
		return nil, err
	}

	things := make([]*types.Thing, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child != nil {
			things = append(things, child)
		}
	}
	return things, nil
}

func decodeKind(thing *types.Thing, kind string, v any) error {
	if thing == nil {
		return parseErr(kind, "thing is nil", nil)
	}
	if thing.Kind != kind {
		return parseErr(kind, fmt.Sprintf("expected %s, got %s", kind, thing.Kind), nil)
	}
	if err := json.Unmarshal(thing.Data, v); err != nil {
		return parseErr(kind, fmt.Sprintf("failed to parse %s data", kind), err)
	}
	return nil
}

func parseErr(operation, message string, err error) error {
	return &pkgerrs.ParseError{Operation: "parse " + operation, Message: message, Err: err}
}
