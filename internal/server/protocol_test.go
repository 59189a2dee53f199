package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wanderhappen/wanderchat/internal/chat"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    string
	}{
		{"send message", `{"type":"send-message","data":{"text":"hi","token":"t"}}`, false, ActionSendMessage},
		{"typing", `{"type":"typing","data":{"token":"t"}}`, false, ActionTyping},
		{"edit", `{"type":"edit-message","data":{"messageId":"m","newText":"x"}}`, false, ActionEditMessage},
		{"delete", `{"type":"delete-message","data":{"messageId":"m"}}`, false, ActionDeleteMessage},
		{"unknown type", `{"type":"shrug","data":{}}`, true, ""},
		{"missing type", `{"data":{}}`, true, ""},
		{"not json", `presence!!`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			in, err := decodeInbound([]byte(tt.raw))
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, in.Type)
		})
	}
}

func TestDecodeInboundKeepsRawData(t *testing.T) {
	req := require.New(t)

	in, err := decodeInbound([]byte(`{"type":"send-message","data":{"text":"hi","token":"abc"}}`))
	req.NoError(err)

	var p SendMessagePayload
	req.NoError(json.Unmarshal(in.Data, &p))
	req.Equal("hi", p.Text)
	req.Equal("abc", p.Token)
}

func TestEncodeEvent(t *testing.T) {
	req := require.New(t)

	msg := chat.Message{ID: "m1", Text: "hi", Author: chat.User{ID: "1", Name: "Alice"}}
	payload, err := encodeEvent(EventNewMessage, NewMessagePayload{Message: msg})
	req.NoError(err)

	var out struct {
		Type string            `json:"type"`
		Data NewMessagePayload `json:"data"`
	}
	req.NoError(json.Unmarshal(payload, &out))
	req.Equal(EventNewMessage, out.Type)
	req.Equal(msg, out.Data.Message)
}
