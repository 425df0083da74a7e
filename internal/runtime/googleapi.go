// Package runtime wires the abstract gmail.Client to the real Google API and
// provides process-level defaults (credentials, logging).
package runtime

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	gc "github.com/mailsift/mailsift/internal/gmail"
)

type googleClient struct{ svc *gmail.Service }

// NewGoogleAPIClient adapts *gmail.Service to the narrow client interface.
func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	page := gc.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) GetMessage(ctx context.Context, id gc.MessageID) (gc.Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Message{}, fmt.Errorf("get message %s: %w", id, err)
	}
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, hd := range msg.Payload.Headers {
			headers[hd.Name] = hd.Value
		}
	}
	return gc.Message{
		ID:      id,
		Headers: headers,
		Snippet: msg.Snippet,
		Labels:  toLabelIDs(msg.LabelIds),
		Date:    ParseHeaderDate(headers["Date"]),
	}, nil
}

func (g *googleClient) Modify(ctx context.Context, id gc.MessageID, ops gc.ModifyOps) error {
	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    toStrings(ops.AddLabels),
		RemoveLabelIds: toStrings(ops.RemoveLabels),
	}
	if _, err := g.svc.Users.Messages.Modify("me", string(id), req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("modify message %s: %w", id, err)
	}
	return nil
}

func (g *googleClient) Trash(ctx context.Context, id gc.MessageID) error {
	if _, err := g.svc.Users.Messages.Trash("me", string(id)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trash message %s: %w", id, err)
	}
	return nil
}

func (g *googleClient) ListLabels(ctx context.Context) (map[string]gc.LabelID, map[gc.LabelID]string, error) {
	lr, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("list labels: %w", err)
	}
	byName := map[string]gc.LabelID{}
	byID := map[gc.LabelID]string{}
	for _, l := range lr.Labels {
		byName[l.Name] = gc.LabelID(l.Id)
		byID[gc.LabelID(l.Id)] = l.Name
	}
	return byName, byID, nil
}

func (g *googleClient) EnsureLabel(ctx context.Context, name string) (gc.LabelID, error) {
	byName, _, err := g.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	if id, ok := byName[name]; ok {
		return id, nil
	}
	created, err := g.svc.Users.Labels.Create("me", &gmail.Label{Name: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return gc.LabelID(created.Id), nil
}

// ParseHeaderDate parses an RFC 5322 Date header, returning the zero time
// when the header is absent or malformed so the caller can store the record
// anyway.
func ParseHeaderDate(raw string) (t time.Time) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return t
	}
	parsed, err := mail.ParseDate(raw)
	if err != nil {
		return t
	}
	return parsed
}

func toStrings(ids []gc.LabelID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func toLabelIDs(ids []string) []gc.LabelID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]gc.LabelID, 0, len(ids))
	for _, id := range ids {
		out = append(out, gc.LabelID(id))
	}
	return out
}
