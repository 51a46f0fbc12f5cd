package core_test

import (
	"testing"

	"github.com/engramhq/engram-go/core"
)

func TestParseInboundFrame_Conversation(t *testing.T) {
	payload := []byte(`{
		"key": {"remoteJid": "911234567890@s.whatsapp.net", "fromMe": false, "id": "ABC123"},
		"pushName": "Priya",
		"message": {"conversation": "dinner friday 8pm?"},
		"messageTimestamp": 1756200000
	}`)

	frame, err := core.ParseInboundFrame(payload)
	if err != nil {
		t.Fatalf("Failed to parse frame: %v", err)
	}
	msg, ok := frame.ToMessage()
	if !ok {
		t.Fatal("Expected a textual frame to convert")
	}
	if msg.ID != "ABC123" {
		t.Errorf("Unexpected message id %q", msg.ID)
	}
	if msg.ConversationID != "911234567890@s.whatsapp.net" {
		t.Errorf("Unexpected conversation id %q", msg.ConversationID)
	}
	if msg.Content != "dinner friday 8pm?" {
		t.Errorf("Unexpected content %q", msg.Content)
	}
	if msg.PushName != "Priya" {
		t.Errorf("Unexpected push name %q", msg.PushName)
	}
	if msg.Timestamp.Unix() != 1756200000 {
		t.Errorf("Unexpected timestamp %d", msg.Timestamp.Unix())
	}
}

func TestParseInboundFrame_ExtendedText(t *testing.T) {
	payload := []byte(`{
		"key": {"remoteJid": "x@s.whatsapp.net", "id": "Q1"},
		"message": {"extendedTextMessage": {"text": "book goa flights"}},
		"messageTimestamp": 1756200000
	}`)

	frame, err := core.ParseInboundFrame(payload)
	if err != nil {
		t.Fatalf("Failed to parse frame: %v", err)
	}
	if frame.Text() != "book goa flights" {
		t.Errorf("Unexpected text %q", frame.Text())
	}
}

func TestInboundFrame_NonTextualSkipped(t *testing.T) {
	payload := []byte(`{"key": {"remoteJid": "x@s.whatsapp.net", "id": "Q2"}, "messageTimestamp": 1756200000}`)
	frame, err := core.ParseInboundFrame(payload)
	if err != nil {
		t.Fatalf("Failed to parse frame: %v", err)
	}
	if _, ok := frame.ToMessage(); ok {
		t.Error("Expected a frame without text not to convert")
	}
}
