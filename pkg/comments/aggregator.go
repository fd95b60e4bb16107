package comments

import (
	"context"
	"errors"
	"fmt"

	"instacomments/pkg/logger"
)

// PageFetcher performs exactly one request for one page of parent comments.
// Implementations never retry.
type PageFetcher interface {
	FetchPage(ctx context.Context, fc FetchContext, cursor PageCursor) (Page, error)
}

// ReplyFetcher walks a parent's reply stream to the end. On failure it returns
// the replies accumulated before the error alongside it.
type ReplyFetcher interface {
	FetchAllReplies(ctx context.Context, fc FetchContext, parentID string) ([]Reply, error)
}

// FatalError is implemented by fetch errors that end the whole run, such as a
// rate limit or a rejected session. Other reply errors are kept as warnings.
type FatalError interface {
	error
	Fatal() bool
}

func isFatal(err error) bool {
	var f FatalError
	return errors.As(err, &f) && f.Fatal()
}

// Aggregator drives the page and reply fetchers and owns the result of a run.
// It issues one request at a time.
type Aggregator struct {
	pages   PageFetcher
	replies ReplyFetcher
	sink    ProgressSink
	logger  logger.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithProgress attaches a progress sink. A nil sink disables reporting.
func WithProgress(sink ProgressSink) Option {
	return func(a *Aggregator) {
		if sink == nil {
			sink = NopSink{}
		}
		a.sink = sink
	}
}

// WithLogger sets the logger used for warnings and page progress
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an Aggregator. replies may be nil when replies are never requested.
func NewAggregator(pages PageFetcher, replies ReplyFetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		pages:   pages,
		replies: replies,
		sink:    NopSink{},
		logger:  logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run walks the parent comment stream of fc until the end marker, the
// MaxComments cap, or the first page error. Page errors are returned as-is
// (wrapped with the page number) and no partial result is returned with them.
// A reply error that reports itself as a FatalError ends the run the same way.
func (a *Aggregator) Run(ctx context.Context, fc FetchContext, cfg RunConfiguration) (*ResultSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	if cfg.fetchReplies() && a.replies == nil {
		return nil, fmt.Errorf("replies requested but no reply fetcher configured")
	}

	fc.Stream = StreamParents
	fc.ParentID = ""
	fc.PerPage = cfg.PerPage

	log := a.logger.WithField("shortcode", fc.Shortcode)
	result := &ResultSet{Format: cfg.DataFormat}
	seen := make(map[string]struct{})
	progress := Progress{Shortcode: fc.Shortcode, Max: cfg.MaxComments}

	var cursor PageCursor
	for {
		if err := ctx.Err(); err != nil {
			a.sink.OnDone(progress, err)
			return nil, err
		}

		page, err := a.pages.FetchPage(ctx, fc, cursor)
		if err != nil {
			err = fmt.Errorf("fetch comment page %d: %w", result.Pages+1, err)
			a.sink.OnDone(progress, err)
			return nil, err
		}
		result.Pages++

		capped := false
		for _, raw := range page.Items {
			if raw.LikeCount < cfg.MinLikes {
				continue
			}

			key := cfg.dedupeKey(raw)
			if key == "" && cfg.DataFormat == FormatUsernames {
				continue
			}
			if cfg.Dedupe {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}

			record := raw.record()
			if cfg.fetchReplies() && raw.ReplyCount != 0 {
				replies, err := a.replies.FetchAllReplies(ctx, fc, raw.ID)
				record.Replies = replies
				if err != nil && (isFatal(err) || ctx.Err() != nil) {
					err = fmt.Errorf("fetch replies of comment %s on page %d: %w", raw.ID, result.Pages, err)
					progress.Page = result.Pages
					progress.Comments = result.Len()
					a.sink.OnDone(progress, err)
					return nil, err
				}
				if err != nil {
					w := Warning{ParentID: raw.ID, Username: raw.Username, Fetched: len(replies), Err: err}
					result.Warnings = append(result.Warnings, w)
					log.WithError(err).WarnWithFields("Reply fetch failed, keeping partial replies", map[string]interface{}{
						"parent_id": raw.ID,
						"fetched":   len(replies),
					})
					a.sink.OnWarning(w)
				}
			}

			result.add(record)
			if cfg.MaxComments > 0 && result.Len() >= cfg.MaxComments {
				capped = true
				break
			}
		}

		progress.Page = result.Pages
		progress.Comments = result.Len()
		progress.HasNext = page.HasNext && !capped
		logger.LogPageProgress(log, fc.Shortcode, progress.Page, progress.Comments, progress.HasNext)
		a.sink.OnPage(progress)

		if !progress.HasNext {
			break
		}
		cursor = page.Next
	}

	a.sink.OnDone(progress, nil)
	return result, nil
}
