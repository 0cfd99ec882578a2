package graw

import (
	"context"

	"github.com/jamesprial/go-reddit-stream/pkg/chain"
	"github.com/jamesprial/go-reddit-stream/pkg/pagination"
	"github.com/jamesprial/go-reddit-stream/pkg/stream"
	"github.com/jamesprial/go-reddit-stream/pkg/types"
)

// SubmissionStream tails the new posts of a subreddit.
type SubmissionStream = stream.Stream[*types.Post, string]

// CommentStream tails the new comments of a subreddit.
type CommentStream = stream.Stream[*types.Comment, string]

// NewSubmissionPaginator returns a paginator over r/{subreddit}/new. Forward
// pages move from newer to older posts using the after cursor.
func (c *Client) NewSubmissionPaginator(subreddit string) (*pagination.FuncPaginator[*types.Post], error) {
	if err := c.validator.ValidateSubredditName(subreddit); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, req pagination.PageRequest) (pagination.Page[*types.Post], error) {
		resp, err := c.GetNew(ctx, &types.PostsRequest{Subreddit: subreddit, Pagination: pageParams(req)})
		if err != nil {
			return pagination.Page[*types.Post]{}, err
		}
		return listingPage(req, resp.Posts, resp.AfterFullname, resp.BeforeFullname), nil
	}
	return pagination.NewFuncPaginator(MaxPageLimit, fetch), nil
}

// NewCommentPaginator returns a paginator over r/{subreddit}/comments.
func (c *Client) NewCommentPaginator(subreddit string) (*pagination.FuncPaginator[*types.Comment], error) {
	if err := c.validator.ValidateSubredditName(subreddit); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, req pagination.PageRequest) (pagination.Page[*types.Comment], error) {
		resp, err := c.GetNewComments(ctx, &types.CommentsRequest{Subreddit: subreddit, Pagination: pageParams(req)})
		if err != nil {
			return pagination.Page[*types.Comment]{}, err
		}
		return listingPage(req, resp.Comments, resp.AfterFullname, resp.BeforeFullname), nil
	}
	return pagination.NewFuncPaginator(MaxPageLimit, fetch), nil
}

// NewPostIterator iterates over the newest posts of a subreddit, newest
// first, stopping after amount posts. A negative amount walks the listing
// until Reddit runs out. A failed page fetch is returned from Next and
// retried by the following call.
func (c *Client) NewPostIterator(ctx context.Context, subreddit string, amount int) (*pagination.ChainingIterator[*types.Post], error) {
	p, err := c.NewSubmissionPaginator(subreddit)
	if err != nil {
		return nil, err
	}
	return pagination.NewChainingIterator[*types.Post](ctx, p, amount), nil
}

// StreamSubmissions returns a stream of posts newly submitted to subreddit,
// deduplicated by fullname. A nil cfg uses stream.DefaultConfig. The stream
// does nothing until Run is called.
func (c *Client) StreamSubmissions(subreddit string, cfg *stream.Config) (*SubmissionStream, error) {
	p, err := c.NewSubmissionPaginator(subreddit)
	if err != nil {
		return nil, err
	}
	return stream.New[*types.Post, string](p, fullname[*types.Post], c.streamConfig("submissions:"+subreddit, cfg))
}

// StreamComments returns a stream of comments newly posted in subreddit.
func (c *Client) StreamComments(subreddit string, cfg *stream.Config) (*CommentStream, error) {
	p, err := c.NewCommentPaginator(subreddit)
	if err != nil {
		return nil, err
	}
	return stream.New[*types.Comment, string](p, fullname[*types.Comment], c.streamConfig("comments:"+subreddit, cfg))
}

// InfoIterator looks up any number of fullnames, MaxInfoFullnames per
// request. A batch whose request fails is retried by the next call to Next;
// batches already returned are not requested again.
func (c *Client) InfoIterator(ctx context.Context, fullnames []string) *chain.CallChunkChain[[]string, *types.Thing] {
	return chain.NewCallChunkChain(ctx, chain.Chunked(fullnames, MaxInfoFullnames, c.GetInfo))
}

func (c *Client) streamConfig(name string, cfg *stream.Config) *stream.Config {
	if cfg == nil {
		cfg = stream.DefaultConfig()
	}
	out := *cfg
	if out.Name == "" {
		out.Name = name
	}
	if out.Logger == nil {
		out.Logger = c.logger
	}
	return &out
}

func fullname[T types.RedditObject](v T) string {
	return v.GetName()
}

// pageParams turns a page request into listing query parameters. The cursor
// goes into after or before depending on direction.
func pageParams(req pagination.PageRequest) types.Pagination {
	params := types.Pagination{Limit: min(req.Limit, MaxPageLimit)}
	if req.Forward {
		params.After = req.Cursor
	} else {
		params.Before = req.Cursor
	}
	return params
}

// listingPage picks the cursor for the requested direction. Reddit reports
// the end of a listing with an empty cursor.
func listingPage[T any](req pagination.PageRequest, items []T, after, before string) pagination.Page[T] {
	cursor := before
	if req.Forward {
		cursor = after
	}
	return pagination.Page[T]{Items: items, Cursor: cursor, HasMore: cursor != ""}
}
