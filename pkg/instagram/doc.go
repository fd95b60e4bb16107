// Package instagram fetches comment pages from Instagram's web GraphQL endpoint.
//
// Client implements both comments.PageFetcher and comments.ReplyFetcher. Every
// call sends exactly one request per page (after waiting on the configured
// pacer) and never retries. Failures are *Error values classified as auth,
// rate_limit, not_found or transport:
//
//	page, err := client.FetchPage(ctx, fc, "")
//	switch {
//	case instagram.IsRateLimit(err):
//	    // stop, the upstream asked us to
//	case instagram.IsAuth(err):
//	    // cookies expired
//	}
package instagram
