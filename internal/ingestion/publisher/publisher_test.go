package publisher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

type fakeStore struct {
	docs []ingestion.Document
}

func (s *fakeStore) UpsertDocuments(ctx context.Context, docs []ingestion.Document) error {
	s.docs = append(s.docs, docs...)
	return nil
}

// fakeWriter accepts healthy batches, then fails the next failures writes.
type fakeWriter struct {
	events   []ingestion.IngestEvent
	batches  int
	healthy  int
	failures int
}

func (w *fakeWriter) PublishEvents(ctx context.Context, events []ingestion.IngestEvent) error {
	if w.batches >= w.healthy && w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.batches++
	w.events = append(w.events, events...)
	return nil
}

type sliceSource []ingestion.Document

func (s sliceSource) Stream(ctx context.Context, out chan<- ingestion.Document) error {
	for _, doc := range s {
		select {
		case out <- doc:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func docs(n int) []ingestion.Document {
	out := make([]ingestion.Document, n)
	for i := range out {
		out[i] = ingestion.Document{ID: fmt.Sprintf("doc-%03d", i), Contents: fmt.Sprintf("passage number %d", i)}
	}
	return out
}

func TestPublish(t *testing.T) {
	store, writer := &fakeStore{}, &fakeWriter{}
	p := New(store, writer, 2)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	if err := p.Publish(context.Background(), docs(5)); err != nil {
		t.Fatal(err)
	}
	if len(store.docs) != 5 || len(writer.events) != 5 {
		t.Fatalf("stored %d, published %d", len(store.docs), len(writer.events))
	}
	if writer.batches != 3 {
		t.Errorf("batches = %d, want 3", writer.batches)
	}
	payload := writer.events[4]
	if payload.DocumentID != "doc-004" || payload.Contents != "passage number 4" || !payload.IngestedAt.Equal(fixed) {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestPublishRejectsInvalidBeforeWriting(t *testing.T) {
	store, writer := &fakeStore{}, &fakeWriter{}
	p := New(store, writer, 10)
	batch := append(docs(3), ingestion.Document{ID: "", Contents: "orphan"})
	if err := p.Publish(context.Background(), batch); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if len(store.docs) != 0 || len(writer.events) != 0 {
		t.Fatal("nothing should be written when validation fails")
	}
}

func TestPublishRejectsDuplicatesWithinBatch(t *testing.T) {
	writer := &fakeWriter{}
	p := New(nil, writer, 10)
	dup := []ingestion.Document{{ID: "a", Contents: "x"}, {ID: "a", Contents: "y"}}
	if err := p.Publish(context.Background(), dup); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for in-batch duplicate, got %v", err)
	}
	if len(writer.events) != 0 {
		t.Fatal("nothing should be written when a batch repeats an id")
	}
}

func TestPublishReplacesEarlierVersion(t *testing.T) {
	store, writer := &fakeStore{}, &fakeWriter{}
	p := New(store, writer, 10)
	ctx := context.Background()
	if err := p.Publish(ctx, []ingestion.Document{{ID: "a", Contents: "first draft"}}); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(ctx, []ingestion.Document{{ID: "a", Contents: "final copy"}}); err != nil {
		t.Fatalf("republishing an id should succeed, got %v", err)
	}
	if len(writer.events) != 2 || writer.events[1].Contents != "final copy" {
		t.Fatalf("events = %+v", writer.events)
	}
	if len(store.docs) != 2 {
		t.Errorf("stored %d upserts, want 2", len(store.docs))
	}
}

func TestPublishCanBeRetriedAfterPartialFailure(t *testing.T) {
	// The second batch exhausts every write attempt.
	writer := &fakeWriter{healthy: 1, failures: 3}
	p := New(nil, writer, 2)
	batch := docs(4)
	if err := p.Publish(context.Background(), batch); err == nil {
		t.Fatal("expected the second batch to fail")
	}
	if len(writer.events) != 2 {
		t.Fatalf("published %d events before failure, want 2", len(writer.events))
	}
	if err := p.Publish(context.Background(), batch); err != nil {
		t.Fatalf("retrying the whole batch should succeed, got %v", err)
	}
	if len(writer.events) != 6 {
		t.Errorf("published %d events in total, want 6", len(writer.events))
	}
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	writer := &fakeWriter{failures: 2}
	p := New(nil, writer, 10)
	if err := p.Publish(context.Background(), docs(3)); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(writer.events) != 3 {
		t.Fatalf("published %d events", len(writer.events))
	}
}

func TestPublishFrom(t *testing.T) {
	writer := &fakeWriter{}
	p := New(nil, writer, 4)
	var reported []int
	n, err := p.PublishFrom(context.Background(), sliceSource(docs(10)), func(total int) {
		reported = append(reported, total)
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 || len(writer.events) != 10 {
		t.Fatalf("n=%d events=%d", n, len(writer.events))
	}
	want := []int{4, 8, 10}
	if fmt.Sprint(reported) != fmt.Sprint(want) {
		t.Errorf("progress = %v, want %v", reported, want)
	}
}

func TestPublishFromStopsOnInvalidDocument(t *testing.T) {
	src := append(sliceSource(docs(6)), ingestion.Document{ID: "bad", Contents: "\xff"})
	p := New(nil, &fakeWriter{}, 3)
	n, err := p.PublishFrom(context.Background(), src, nil)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if n != 6 {
		t.Errorf("published %d before failure, want 6", n)
	}
}
