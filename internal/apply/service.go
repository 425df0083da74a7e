// Package apply evaluates a ruleset against stored records and applies the
// resulting plan through the Gmail connector.
package apply

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mailsift/mailsift/internal/email"
	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/rules"
	"github.com/mailsift/mailsift/internal/store"
)

// Spec configures one apply run.
type Spec struct {
	Ruleset rules.Ruleset
	DryRun  bool
}

// Summary reports what an apply run did.
type Summary struct {
	Evaluated int // records read from the store
	Matched   int // records the ruleset matched
	Applied   int // provider actions performed
	Failed    int // provider actions that errored
}

// Service owns the evaluate-then-apply orchestration. Evaluation itself is
// pure; only this service talks to the provider.
type Service struct {
	Client  gmail.Client
	Store   store.Store
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time

	destinations map[string]gmail.LabelID // per-run move destination cache
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
		Clock:   time.Now,
	}
}

// Gmail's built-in destinations for move actions. Anything else becomes a
// user label, created on demand.
var builtinDestinations = map[string]gmail.LabelID{
	"inbox":      "INBOX",
	"forum":      "CATEGORY_FORUMS",
	"updates":    "CATEGORY_UPDATES",
	"promotions": "CATEGORY_PROMOTIONS",
}

// Run validates the ruleset, evaluates it against every stored record with a
// single time baseline, and applies the plan in order. A failing action on
// one message is logged and counted, not fatal; an invalid ruleset aborts
// before any record is read so no partial plan can apply.
func (s *Service) Run(ctx context.Context, spec Spec) (Summary, error) {
	if err := spec.Ruleset.Validate(); err != nil {
		return Summary{}, err
	}

	records, err := s.Store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load records: %w", err)
	}

	matches, err := rules.Evaluate(spec.Ruleset, records, s.Clock())
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Evaluated: len(records), Matched: len(matches)}
	s.destinations = map[string]gmail.LabelID{}

	for _, match := range matches {
		if spec.DryRun {
			s.Logger.InfoContext(ctx, "dry-run match",
				"id", match.Record.ID,
				"subject", match.Record.Subject,
				"actions", describeActions(match.Actions))
			continue
		}
		for _, act := range match.Actions {
			if err := s.applyAction(ctx, match.Record, act); err != nil {
				summary.Failed++
				s.Logger.WarnContext(ctx, "action failed",
					"id", match.Record.ID, "action", string(act.Kind), "error", err)
				continue
			}
			summary.Applied++
		}
	}

	s.Logger.InfoContext(ctx, "apply complete",
		"evaluated", summary.Evaluated, "matched", summary.Matched,
		"applied", summary.Applied, "failed", summary.Failed, "dry_run", spec.DryRun)
	return summary, nil
}

func (s *Service) applyAction(ctx context.Context, rec email.Record, act rules.Action) error {
	if err := s.wait(ctx, "rate limit action"); err != nil {
		return err
	}
	id := gmail.MessageID(rec.ID)
	switch act.Kind {
	case rules.ActionMarkRead:
		return s.Client.Modify(ctx, id, gmail.ModifyOps{RemoveLabels: []gmail.LabelID{"UNREAD"}})
	case rules.ActionMarkUnread:
		return s.Client.Modify(ctx, id, gmail.ModifyOps{AddLabels: []gmail.LabelID{"UNREAD"}})
	case rules.ActionStar:
		return s.Client.Modify(ctx, id, gmail.ModifyOps{AddLabels: []gmail.LabelID{"STARRED"}})
	case rules.ActionUnstar:
		return s.Client.Modify(ctx, id, gmail.ModifyOps{RemoveLabels: []gmail.LabelID{"STARRED"}})
	case rules.ActionArchive:
		return s.Client.Modify(ctx, id, gmail.ModifyOps{RemoveLabels: []gmail.LabelID{"INBOX"}})
	case rules.ActionMove:
		label, err := s.destinationLabel(ctx, act.Destination)
		if err != nil {
			return err
		}
		ops := gmail.ModifyOps{AddLabels: []gmail.LabelID{label}}
		if label != "INBOX" {
			ops.RemoveLabels = []gmail.LabelID{"INBOX"}
		}
		return s.Client.Modify(ctx, id, ops)
	case rules.ActionTrash:
		return s.Client.Trash(ctx, id)
	default:
		return fmt.Errorf("unknown action %q", string(act.Kind))
	}
}

func (s *Service) destinationLabel(ctx context.Context, destination string) (gmail.LabelID, error) {
	key := strings.ToLower(strings.TrimSpace(destination))
	if label, ok := builtinDestinations[key]; ok {
		return label, nil
	}
	if label, ok := s.destinations[key]; ok {
		return label, nil
	}
	if err := s.wait(ctx, "rate limit label"); err != nil {
		return "", err
	}
	label, err := s.Client.EnsureLabel(ctx, destination)
	if err != nil {
		return "", fmt.Errorf("resolve destination %q: %w", destination, err)
	}
	s.destinations[key] = label
	return label, nil
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

func describeActions(actions []rules.Action) string {
	parts := make([]string, 0, len(actions))
	for _, act := range actions {
		if act.Kind == rules.ActionMove {
			parts = append(parts, fmt.Sprintf("%s -> %s", act.Kind, act.Destination))
			continue
		}
		parts = append(parts, string(act.Kind))
	}
	return strings.Join(parts, ", ")
}
