package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"smsbridge/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// fakeSender records outbound messages.
type fakeSender struct {
	sent []domain.OutboundMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg domain.OutboundMessage) (*domain.MessageReceipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &domain.MessageReceipt{SID: "SM123", Status: "queued"}, nil
}

func eventWithRouting() *domain.RecognizedEvent {
	return &domain.RecognizedEvent{
		Intent: "greeting",
		Routing: domain.Routing{
			UserNumber:     "+15551112222",
			ProviderNumber: "+15559998888",
		},
	}
}

func TestReply_RoutesToSender(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testLogger())

	receipt, err := d.Reply(context.Background(), eventWithRouting(), "hi there")
	if err != nil {
		t.Fatal(err)
	}
	if receipt.SID != "SM123" {
		t.Errorf("SID = %q", receipt.SID)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "+15551112222" {
		t.Errorf("To = %q, want the user number", msg.To)
	}
	if msg.From != "+15559998888" {
		t.Errorf("From = %q, want the provider number", msg.From)
	}
	if msg.Body != "hi there" || msg.MediaURL != "" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestReplyMedia_AttachesMedia(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testLogger())

	_, err := d.ReplyMedia(context.Background(), eventWithRouting(), "see attached", "https://example.com/cat.png")
	if err != nil {
		t.Fatal(err)
	}
	if sender.sent[0].MediaURL != "https://example.com/cat.png" {
		t.Errorf("MediaURL = %q", sender.sent[0].MediaURL)
	}
}

func TestReply_MissingUserNumber(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testLogger())

	ev := &domain.RecognizedEvent{Routing: domain.Routing{ProviderNumber: "+1555"}}
	_, err := d.Reply(context.Background(), ev, "hi")
	if !errors.Is(err, ErrNoUserNumber) {
		t.Fatalf("expected ErrNoUserNumber, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("no outbound message should be attempted")
	}
}

func TestReply_MissingProviderNumber(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testLogger())

	ev := &domain.RecognizedEvent{Routing: domain.Routing{UserNumber: "+1555"}}
	_, err := d.Reply(context.Background(), ev, "hi")
	if !errors.Is(err, ErrNoProviderNumber) {
		t.Fatalf("expected ErrNoProviderNumber, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("no outbound message should be attempted")
	}
}

func TestReply_SendFailureSurfaces(t *testing.T) {
	sender := &fakeSender{err: fmt.Errorf("invalid number")}
	d := NewDispatcher(sender, testLogger())

	_, err := d.Reply(context.Background(), eventWithRouting(), "hi")
	if err == nil {
		t.Fatal("send failure should surface to the caller")
	}
}
