// Package pagination follows "next" links of paginated JSON envelopes.
//
// A paginated envelope is an object shaped like
//
//	{"results": [...], "next": "https://api.example.com/items?page=2"}
//
// The follower accumulates every page's results in page order until a page
// arrives without a next link. Pages are fetched one at a time with the
// credentials of the first request.
//
// Example usage:
//
//	follower := pagination.NewFollower(apiClient, pagination.DefaultConfig())
//	result := follower.Follow(ctx, firstPage.Envelope, creds)
//	if result.Partial() {
//		// result.Items holds everything fetched before the stop
//	}
//
// Following is best effort: a failing page ends the walk and the items
// gathered so far are returned together with the error. The walk is also
// bounded by a page count and an elapsed-time budget, and stops when a next
// link points at a page that was already visited.
package pagination
