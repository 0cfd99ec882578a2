// Package graw is a Reddit API client built for following subreddits as they
// change.
//
// # Overview
//
// Reddit has no push API, so everything here is built on polling cursor
// listings. The client fetches single pages (GetNew, GetNewComments,
// GetInfo) and wraps them in the generic building blocks under pkg/:
//
//   - pkg/pagination: cursor paginators and an iterator that chains their
//     pages into one sequence
//   - pkg/stream: an adaptive poller that emits only items it has not seen
//   - pkg/chain: fault-tolerant iterators, including batched lookups that
//     retry a failed batch without repeating finished ones
//   - pkg/event: the dispatcher streams publish through
//
// # Quick Start
//
//	client, err := graw.NewClient(&graw.Config{
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		UserAgent:    "linux:myapp:1.0 (by /u/yourusername)",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	s, err := client.StreamSubmissions("golang", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	s.Output.Attach(func(ctx context.Context, p *types.Post) {
//		fmt.Println(p.Title)
//	})
//	s.Errors.Attach(func(ctx context.Context, err error) {
//		log.Printf("fetch failed: %v", err)
//	})
//	err = s.Run(ctx) // blocks until ctx is cancelled
//
// The first poll only records what is already there; posts submitted after
// that are delivered oldest page first, newest item first within a page.
//
// # Connection Lifecycle
//
// NewClient does not contact Reddit. The first API call, or an explicit
// Connect, obtains an OAuth2 token. A failed Connect is retried by the next
// call, so a long-running stream survives an auth outage at startup.
//
// # Authentication Types
//
// Application-only authentication needs ClientID and ClientSecret. Setting
// Username and Password as well switches to the password grant.
//
// # Rate Limiting
//
// Requests are throttled client-side (60 per minute by default) and deferred
// whenever Reddit sends Retry-After or reports an exhausted X-Ratelimit
// window. After repeated server errors a circuit breaker fails requests
// immediately for a while; streams see those failures as ordinary fetch
// errors and back off.
//
// # Error Handling
//
// Errors are typed structs from pkg/errors and are matched with errors.As:
//
//	var apiErr *errors.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
//		// subreddit does not exist
//	}
//
// Iterators return transient errors from Next and keep going on the next
// call; streams never stop on a fetch error.
package graw
