package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"newswire/internal/article"
	"newswire/internal/queue"
	"newswire/internal/store"
)

type stubAcker struct {
	acks    int
	nacks   int
	requeue bool
}

func (s *stubAcker) Ack(uint64, bool) error { s.acks++; return nil }

func (s *stubAcker) Nack(_ uint64, _ bool, requeue bool) error {
	s.nacks++
	s.requeue = requeue
	return nil
}

func (s *stubAcker) Reject(uint64, bool) error { return nil }

type stubUpserter struct {
	records []article.Record
	err     error
}

func (s *stubUpserter) Upsert(_ context.Context, rec article.Record) (store.UpsertResult, error) {
	if s.err != nil {
		return store.UpsertResult{}, s.err
	}
	s.records = append(s.records, rec)
	return store.UpsertResult{Inserted: true}, nil
}

func delivery(t *testing.T, acker *stubAcker, page queue.RawPage) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("marshal page: %v", err)
	}
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: body}
}

func TestProcessDeliveryStoresAndAcks(t *testing.T) {
	t.Parallel()

	acker := &stubAcker{}
	upserter := &stubUpserter{}
	page := queue.RawPage{
		URL:         "https://a.example/x",
		HTML:        "<html><head><title>T</title></head><body><p>body</p></body></html>",
		FetchedTime: "2026-08-20T10:00:00Z",
	}

	processDelivery("test", upserter, delivery(t, acker, page))

	if acker.acks != 1 || acker.nacks != 0 {
		t.Fatalf("acks=%d nacks=%d", acker.acks, acker.nacks)
	}
	if len(upserter.records) != 1 {
		t.Fatalf("expected one upsert, got %d", len(upserter.records))
	}
	rec := upserter.records[0]
	if rec.CanonicalURL != "https://a.example/x" || rec.Title != "T" {
		t.Fatalf("record %+v", rec)
	}
}

func TestProcessDeliveryDropsMalformedPayload(t *testing.T) {
	t.Parallel()

	acker := &stubAcker{}
	upserter := &stubUpserter{}
	d := amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("not json")}

	processDelivery("test", upserter, d)

	// poison messages are acked away, never requeued
	if acker.acks != 1 || acker.nacks != 0 {
		t.Fatalf("acks=%d nacks=%d", acker.acks, acker.nacks)
	}
	if len(upserter.records) != 0 {
		t.Fatalf("malformed payload must not reach the store")
	}
}

func TestProcessDeliveryRequeuesOnStoreFailure(t *testing.T) {
	t.Parallel()

	acker := &stubAcker{}
	upserter := &stubUpserter{err: errors.New("mongo down")}
	page := queue.RawPage{
		URL:  "https://a.example/x",
		HTML: "<html><body><p>body</p></body></html>",
	}

	processDelivery("test", upserter, delivery(t, acker, page))

	if acker.acks != 0 || acker.nacks != 1 {
		t.Fatalf("acks=%d nacks=%d", acker.acks, acker.nacks)
	}
	if !acker.requeue {
		t.Fatalf("store failure must requeue the delivery")
	}
}
