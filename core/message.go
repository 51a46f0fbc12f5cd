package core

import (
	"encoding/json"
	"time"
)

// Message is a stored chat message, the durable raw input of the pipeline.
type Message struct {
	ID             string
	ConversationID string
	Sender         string
	PushName       string
	Content        string
	FromMe         bool
	Timestamp      time.Time
}

// ChatTurn is one turn of conversation history handed to the compressor.
type ChatTurn struct {
	Role    string // "user" or "assistant"
	Content string
}

// InboundFrame is the wire shape of an incoming webhook message. Only
// textual content is processed; frames carrying media or reactions have no
// extractable text and are skipped.
type InboundFrame struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  *struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
	} `json:"message"`
	MessageTimestamp int64 `json:"messageTimestamp"`
}

// ParseInboundFrame decodes a raw webhook payload.
func ParseInboundFrame(data []byte) (*InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Text returns the textual content of the frame, or "" when the frame is
// non-textual.
func (f *InboundFrame) Text() string {
	if f.Message == nil {
		return ""
	}
	if f.Message.Conversation != "" {
		return f.Message.Conversation
	}
	if f.Message.ExtendedTextMessage != nil {
		return f.Message.ExtendedTextMessage.Text
	}
	return ""
}

// ToMessage converts a textual frame into a Message. The second return is
// false when the frame has no text and should be skipped.
func (f *InboundFrame) ToMessage() (*Message, bool) {
	text := f.Text()
	if text == "" {
		return nil, false
	}
	ts := time.Unix(f.MessageTimestamp, 0)
	if f.MessageTimestamp <= 0 {
		ts = time.Now()
	}
	return &Message{
		ID:             f.Key.ID,
		ConversationID: f.Key.RemoteJID,
		Sender:         f.Key.RemoteJID,
		PushName:       f.PushName,
		Content:        text,
		FromMe:         f.Key.FromMe,
		Timestamp:      ts,
	}, true
}
