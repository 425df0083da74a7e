// Package fetch pulls message metadata from Gmail and persists it.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mailsift/mailsift/internal/email"
	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/store"
)

// Spec selects which messages a run retrieves. Exactly one of Count,
// NewerThanDays/NewerThanMonths or Query drives the listing; Count may also
// cap a query-driven listing.
type Spec struct {
	Count           int    // fetch the N most recent messages
	NewerThanDays   int    // fetch messages newer than this many days
	NewerThanMonths int    // fetch messages newer than this many months
	Query           string // raw Gmail query, used verbatim
	PageSize        int
}

// Summary reports what a fetch run did.
type Summary struct {
	Listed int
	Saved  int
	Failed int
}

// Service lists messages, retrieves their metadata and upserts them into the
// store. Per-message failures are logged and skipped so one bad message does
// not abort the batch.
type Service struct {
	Client  gmail.Client
	Store   store.Store
	Limiter rate.Limiter
	Logger  *slog.Logger
}

// NewService constructs a Service with sane defaults.
func NewService(client gmail.Client, st store.Store, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Client:  client,
		Store:   st,
		Limiter: limiter,
		Logger:  logger,
	}
}

// BuildQuery renders the Gmail query for the spec. A count-only spec lists
// the mailbox unfiltered.
func BuildQuery(spec Spec) gmail.Query {
	if strings.TrimSpace(spec.Query) != "" {
		return gmail.Query{Raw: strings.TrimSpace(spec.Query)}
	}
	if spec.NewerThanDays > 0 {
		return gmail.Query{Raw: fmt.Sprintf("newer_than:%dd", spec.NewerThanDays)}
	}
	if spec.NewerThanMonths > 0 {
		return gmail.Query{Raw: fmt.Sprintf("newer_than:%dm", spec.NewerThanMonths)}
	}
	return gmail.Query{}
}

// Run executes one fetch pass.
func (s *Service) Run(ctx context.Context, spec Spec) (Summary, error) {
	if spec.Count <= 0 && spec.NewerThanDays <= 0 && spec.NewerThanMonths <= 0 &&
		strings.TrimSpace(spec.Query) == "" {
		return Summary{}, fmt.Errorf("fetch spec selects nothing: set a count, timeframe or query")
	}
	pageSize := spec.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}
	if spec.Count > 0 && spec.Count < pageSize {
		pageSize = spec.Count
	}

	query := BuildQuery(spec)
	ids, err := s.listIDs(ctx, query, spec.Count, pageSize)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Listed: len(ids)}
	for _, id := range ids {
		if err := s.wait(ctx, "rate limit get"); err != nil {
			return summary, err
		}
		msg, err := s.Client.GetMessage(ctx, id)
		if err != nil {
			summary.Failed++
			s.Logger.WarnContext(ctx, "skipping message", "id", string(id), "error", err)
			continue
		}
		if err := s.Store.Upsert(ctx, recordFromMessage(msg)); err != nil {
			summary.Failed++
			s.Logger.WarnContext(ctx, "skipping message", "id", string(id), "error", err)
			continue
		}
		summary.Saved++
	}

	s.Logger.InfoContext(ctx, "fetch complete",
		"query", query.Raw, "listed", summary.Listed, "saved", summary.Saved, "failed", summary.Failed)
	return summary, nil
}

func (s *Service) listIDs(ctx context.Context, query gmail.Query, limit, pageSize int) ([]gmail.MessageID, error) {
	var (
		ids   []gmail.MessageID
		token string
	)
	for {
		if err := s.wait(ctx, "rate limit list"); err != nil {
			return nil, err
		}
		page, err := s.Client.List(ctx, query, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		ids = append(ids, page.IDs...)
		if limit > 0 && len(ids) >= limit {
			return ids[:limit], nil
		}
		if page.NextPageToken == "" {
			return ids, nil
		}
		token = page.NextPageToken
	}
}

func (s *Service) wait(ctx context.Context, operation string) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func recordFromMessage(msg gmail.Message) email.Record {
	labels := make([]string, 0, len(msg.Labels))
	for _, l := range msg.Labels {
		labels = append(labels, string(l))
	}
	return email.Record{
		ID:         string(msg.ID),
		From:       msg.Headers["From"],
		To:         msg.Headers["To"],
		Subject:    msg.Headers["Subject"],
		ReceivedAt: msg.Date,
		Snippet:    msg.Snippet,
		Labels:     labels,
	}
}
