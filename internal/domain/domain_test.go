package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestSendMessageRequest_Draft(t *testing.T) {
	tests := []struct {
		name    string
		req     SendMessageRequest
		wantErr bool
	}{
		{"direct", SendMessageRequest{ReceiverID: "b", Content: "hi"}, false},
		{"group", SendMessageRequest{GroupID: "g1", Content: "hi"}, false},
		{"both targets", SendMessageRequest{ReceiverID: "b", GroupID: "g1", Content: "hi"}, true},
		{"no target", SendMessageRequest{Content: "hi"}, true},
		{"empty content", SendMessageRequest{ReceiverID: "b"}, true},
		{"blank content", SendMessageRequest{ReceiverID: "b", Content: "   "}, true},
		{"blank receiver", SendMessageRequest{ReceiverID: " ", Content: "hi"}, true},
		{"content at limit", SendMessageRequest{GroupID: "g1", Content: strings.Repeat("a", 5000)}, false},
		{"content over limit", SendMessageRequest{GroupID: "g1", Content: strings.Repeat("a", 5001)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := tt.req.Draft("a")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMessageTarget) {
					t.Fatalf("expected ErrInvalidMessageTarget, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if draft.SenderID != "a" {
				t.Errorf("expected sender a, got %q", draft.SenderID)
			}
		})
	}
}

func TestSendMessageRequest_DraftTrims(t *testing.T) {
	draft, err := SendMessageRequest{ReceiverID: " b ", Content: "  hi  "}.Draft("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.ReceiverID != "b" || draft.Content != "hi" {
		t.Errorf("expected trimmed draft, got %+v", draft)
	}
	if !draft.IsDirect() {
		t.Error("expected direct draft")
	}
}

func TestNotificationRequest_Validate(t *testing.T) {
	ok := &NotificationRequest{RecipientID: "b", Type: "post_like", Content: "liked your post"}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := &NotificationRequest{Type: "post_like"}
	if err := missing.Validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestDecodeGroupID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare string", `"g1"`, "g1", false},
		{"object", `{"groupId":"g2"}`, "g2", false},
		{"number", `42`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGroupID(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConversationKey(t *testing.T) {
	ab := &ChatMessage{Sender: UserSummary{ID: "a"}, Receiver: &UserSummary{ID: "b"}}
	ba := &ChatMessage{Sender: UserSummary{ID: "b"}, Receiver: &UserSummary{ID: "a"}}
	if ab.ConversationKey() != ba.ConversationKey() {
		t.Errorf("direct keys differ: %q vs %q", ab.ConversationKey(), ba.ConversationKey())
	}

	group := &ChatMessage{Sender: UserSummary{ID: "a"}, GroupID: "g1"}
	if got := group.ConversationKey(); got != "group_g1" {
		t.Errorf("expected group_g1, got %q", got)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(MsgTypeUserOnline, &PresenceEvent{UserID: "a"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Type != MsgTypeUserOnline {
		t.Errorf("expected type %s, got %s", MsgTypeUserOnline, env.Type)
	}
	if string(env.Data) != `{"userId":"a"}` {
		t.Errorf("unexpected data %s", env.Data)
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(ErrPersistence); got != ErrCodePersistence {
		t.Errorf("expected %s, got %s", ErrCodePersistence, got)
	}
	if got := ErrorCode(errors.New("boom")); got != ErrCodeInternalError {
		t.Errorf("expected %s, got %s", ErrCodeInternalError, got)
	}
}
