package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
)

type recorder struct {
	mu      sync.Mutex
	changes []models.Change
}

func (r *recorder) BroadcastChange(c models.Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestFanout_DeliversToEveryTarget(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := NewFanout(a, nil)
	f.Add(b)
	f.Add(nil)

	f.BroadcastChange(models.Change{EventID: "x", Version: 1})
	f.BroadcastChange(models.Change{EventID: "x", Version: 2})

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("expected 2 deliveries each, got %d and %d", a.count(), b.count())
	}
}

func TestWaker_SignalsOnlyMatchingEvent(t *testing.T) {
	w := NewWaker()
	chA, releaseA := w.Subscribe("a")
	defer releaseA()
	chB, releaseB := w.Subscribe("b")
	defer releaseB()

	w.BroadcastChange(models.Change{EventID: "a", Version: 1})

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatal("subscriber for a was not woken")
	}
	select {
	case <-chB:
		t.Fatal("subscriber for b must not be woken")
	default:
	}
}

func TestWaker_CoalescesSignals(t *testing.T) {
	w := NewWaker()
	ch, release := w.Subscribe("a")
	defer release()

	for i := 0; i < 5; i++ {
		w.BroadcastChange(models.Change{EventID: "a", Version: i})
	}

	<-ch
	select {
	case <-ch:
		t.Error("expected a single pending signal")
	default:
	}
}

func TestWaker_ReleaseUnsubscribes(t *testing.T) {
	w := NewWaker()
	_, release := w.Subscribe("a")
	_, release2 := w.Subscribe("a")
	if w.Subscribers("a") != 2 {
		t.Fatalf("expected 2 subscribers, got %d", w.Subscribers("a"))
	}

	release()
	release() // idempotent
	if w.Subscribers("a") != 1 {
		t.Errorf("expected 1 subscriber, got %d", w.Subscribers("a"))
	}
	release2()
	if w.Subscribers("a") != 0 {
		t.Errorf("expected 0 subscribers, got %d", w.Subscribers("a"))
	}
}

type fakeChannel struct {
	mu         sync.Mutex
	declareErr error
	publishErr error
	declared   string
	published  []amqp.Publishing
	keys       []string
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = name + ":" + kind
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChannel) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func quietLogger() logger.Logger {
	return logger.NewWithLevel(logger.ParseLevel("error"))
}

func TestAMQPPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := newAMQPPublisherWithChannel(quietLogger(), ch, "pb.changes"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.declared != "pb.changes:topic" {
		t.Errorf("unexpected exchange declaration %q", ch.declared)
	}
}

func TestAMQPPublisher_DeclareErrorClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newAMQPPublisherWithChannel(quietLogger(), ch, "pb.changes"); err == nil {
		t.Fatal("expected error")
	}
	if !ch.closed {
		t.Error("expected channel to be closed on declare failure")
	}
}

func TestAMQPPublisher_PublishesQueuedChanges(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPPublisherWithChannel(quietLogger(), ch, "pb.changes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.BroadcastChange(models.Change{Kind: models.ChangeAssign, EventID: "e1", Version: 4, Assignments: &models.Assignments{Main: []string{"Ann"}}})

	deadline := time.Now().Add(2 * time.Second)
	for ch.publishedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ch.publishedCount() != 1 {
		t.Fatalf("expected 1 published message, got %d", ch.publishedCount())
	}

	ch.mu.Lock()
	msg, key := ch.published[0], ch.keys[0]
	ch.mu.Unlock()

	if key != "pb.e1.assign" {
		t.Errorf("unexpected routing key %q", key)
	}
	var decoded models.Change
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.Version != 4 || decoded.Assignments.Main[0] != "Ann" {
		t.Errorf("unexpected body %+v", decoded)
	}
}

func TestAMQPPublisher_DropsWhenBufferFull(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newAMQPPublisherWithChannel(quietLogger(), ch, "pb.changes")

	// Run is not started, so nothing drains the buffer
	for i := 0; i < publishQueueSize+10; i++ {
		p.BroadcastChange(models.Change{EventID: "e1", Version: i})
	}
	if len(p.queue) != publishQueueSize {
		t.Errorf("expected full buffer of %d, got %d", publishQueueSize, len(p.queue))
	}
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newAMQPPublisherWithChannel(quietLogger(), ch, "pb.changes")
	p.Close()
	if !ch.closed {
		t.Error("expected channel to be closed")
	}
}
