package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/email"
	"github.com/mailsift/mailsift/internal/gmail"
)

type fakeClient struct {
	listPages   []gmail.ListPage
	listQueries []string
	messages    map[gmail.MessageID]gmail.Message
	getErrs     map[gmail.MessageID]error
}

func (f *fakeClient) List(ctx context.Context, q gmail.Query, pageToken string, pageSize int) (gmail.ListPage, error) {
	_ = ctx
	_ = pageToken
	_ = pageSize
	f.listQueries = append(f.listQueries, q.Raw)
	if len(f.listPages) == 0 {
		return gmail.ListPage{}, nil
	}
	page := f.listPages[0]
	f.listPages = f.listPages[1:]
	return page, nil
}

func (f *fakeClient) GetMessage(ctx context.Context, id gmail.MessageID) (gmail.Message, error) {
	_ = ctx
	if err := f.getErrs[id]; err != nil {
		return gmail.Message{}, err
	}
	if msg, ok := f.messages[id]; ok {
		return msg, nil
	}
	return gmail.Message{ID: id, Headers: map[string]string{}}, nil
}

func (f *fakeClient) Modify(ctx context.Context, id gmail.MessageID, ops gmail.ModifyOps) error {
	_ = ctx
	_ = id
	_ = ops
	return nil
}

func (f *fakeClient) Trash(ctx context.Context, id gmail.MessageID) error {
	_ = ctx
	_ = id
	return nil
}

func (f *fakeClient) ListLabels(ctx context.Context) (map[string]gmail.LabelID, map[gmail.LabelID]string, error) {
	_ = ctx
	return map[string]gmail.LabelID{}, map[gmail.LabelID]string{}, nil
}

func (f *fakeClient) EnsureLabel(ctx context.Context, name string) (gmail.LabelID, error) {
	_ = ctx
	_ = name
	return "Label123", nil
}

type fakeStore struct {
	upserts   []email.Record
	upsertErr map[string]error
}

func (f *fakeStore) Upsert(ctx context.Context, rec email.Record) error {
	_ = ctx
	if err := f.upsertErr[rec.ID]; err != nil {
		return err
	}
	f.upserts = append(f.upserts, rec)
	return nil
}

func (f *fakeStore) List(ctx context.Context) ([]email.Record, error) {
	_ = ctx
	return f.upserts, nil
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{name: "count-only", spec: Spec{Count: 10}, want: ""},
		{name: "newer-than-days", spec: Spec{NewerThanDays: 7}, want: "newer_than:7d"},
		{name: "newer-than-months", spec: Spec{NewerThanMonths: 2}, want: "newer_than:2m"},
		{name: "raw-query-wins", spec: Spec{NewerThanDays: 7, Query: " is:unread "}, want: "is:unread"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildQuery(tc.spec).Raw; got != tc.want {
				t.Fatalf("query = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRunCountCapsAcrossPages(t *testing.T) {
	fake := &fakeClient{
		listPages: []gmail.ListPage{
			{IDs: []gmail.MessageID{"a", "b"}, NextPageToken: "next"},
			{IDs: []gmail.MessageID{"c", "d"}},
		},
	}
	st := &fakeStore{}
	svc := NewService(fake, st, nil, slogDiscard())

	summary, err := svc.Run(context.Background(), Spec{Count: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Listed != 3 || summary.Saved != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(st.upserts) != 3 {
		t.Fatalf("expected 3 upserts, got %d", len(st.upserts))
	}
	wantIDs := []string{"a", "b", "c"}
	for i, want := range wantIDs {
		if st.upserts[i].ID != want {
			t.Fatalf("upsert %d = %s, want %s", i, st.upserts[i].ID, want)
		}
	}
}

func TestRunTimeframeQuery(t *testing.T) {
	fake := &fakeClient{listPages: []gmail.ListPage{{IDs: []gmail.MessageID{"a"}}}}
	st := &fakeStore{}
	svc := NewService(fake, st, nil, slogDiscard())

	if _, err := svc.Run(context.Background(), Spec{NewerThanDays: 14}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(fake.listQueries) != 1 || fake.listQueries[0] != "newer_than:14d" {
		t.Fatalf("queries = %v", fake.listQueries)
	}
}

func TestRunRecordsMessageMetadata(t *testing.T) {
	received := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)
	fake := &fakeClient{
		listPages: []gmail.ListPage{{IDs: []gmail.MessageID{"m1"}}},
		messages: map[gmail.MessageID]gmail.Message{
			"m1": {
				ID: "m1",
				Headers: map[string]string{
					"From":    "billing@acme.com",
					"To":      "me@example.com",
					"Subject": "Your invoice #42",
				},
				Snippet: "Please pay.",
				Labels:  []gmail.LabelID{"INBOX", "UNREAD"},
				Date:    received,
			},
		},
	}
	st := &fakeStore{}
	svc := NewService(fake, st, nil, slogDiscard())

	if _, err := svc.Run(context.Background(), Spec{Count: 1}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(st.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(st.upserts))
	}
	rec := st.upserts[0]
	if rec.From != "billing@acme.com" || rec.To != "me@example.com" || rec.Subject != "Your invoice #42" {
		t.Fatalf("record headers = %+v", rec)
	}
	if !rec.ReceivedAt.Equal(received) {
		t.Fatalf("received = %v", rec.ReceivedAt)
	}
	if rec.Snippet != "Please pay." {
		t.Fatalf("snippet = %q", rec.Snippet)
	}
	if len(rec.Labels) != 2 || rec.Labels[0] != "INBOX" {
		t.Fatalf("labels = %v", rec.Labels)
	}
}

func TestRunSkipsFailingMessages(t *testing.T) {
	fake := &fakeClient{
		listPages: []gmail.ListPage{{IDs: []gmail.MessageID{"good", "bad", "also-good"}}},
		getErrs:   map[gmail.MessageID]error{"bad": errors.New("boom")},
	}
	st := &fakeStore{upsertErr: map[string]error{}}
	svc := NewService(fake, st, nil, slogDiscard())

	summary, err := svc.Run(context.Background(), Spec{Count: 3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Saved != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunRejectsEmptySpec(t *testing.T) {
	svc := NewService(&fakeClient{}, &fakeStore{}, nil, slogDiscard())
	if _, err := svc.Run(context.Background(), Spec{}); err == nil {
		t.Fatalf("expected error for empty spec")
	}
}

func TestRunManyPagesStopWithoutToken(t *testing.T) {
	pages := make([]gmail.ListPage, 0, 3)
	for i := 0; i < 3; i++ {
		token := fmt.Sprintf("t%d", i)
		if i == 2 {
			token = ""
		}
		pages = append(pages, gmail.ListPage{
			IDs:           []gmail.MessageID{gmail.MessageID(fmt.Sprintf("id-%d", i))},
			NextPageToken: token,
		})
	}
	fake := &fakeClient{listPages: pages}
	st := &fakeStore{}
	svc := NewService(fake, st, nil, slogDiscard())

	summary, err := svc.Run(context.Background(), Spec{Query: "newer_than:1d"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Listed != 3 {
		t.Fatalf("expected all pages consumed, listed = %d", summary.Listed)
	}
}
