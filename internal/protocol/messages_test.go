package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"client_chat","request_id":"r1","text":"I went hiking","source":"voice"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chat, ok := msg.(ClientChat)
	if !ok {
		t.Fatalf("message type = %T, want ClientChat", msg)
	}
	if chat.RequestID != "r1" || chat.Text != "I went hiking" || chat.Source != SourceVoice {
		t.Fatalf("unexpected chat message: %+v", chat)
	}
}

func TestParseClientMessageDefaultsSourceToText(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_chat","text":"hi"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if got := msg.(ClientChat).Source; got != SourceText {
		t.Fatalf("Source = %q, want %q", got, SourceText)
	}
}

func TestParseClientMessageClear(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_clear","request_id":"r2"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	cc, ok := msg.(ClientClear)
	if !ok {
		t.Fatalf("message type = %T, want ClientClear", msg)
	}
	if cc.RequestID != "r2" {
		t.Fatalf("RequestID = %q, want %q", cc.RequestID, "r2")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsInvalidChat(t *testing.T) {
	cases := map[string]string{
		"blank text":     `{"type":"client_chat","text":"   "}`,
		"unknown source": `{"type":"client_chat","text":"hi","source":"carrier_pigeon"}`,
		"not json":       `{"type":`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseClientMessage([]byte(raw)); err == nil {
				t.Fatalf("expected error for %s", raw)
			}
		})
	}
}

func BenchmarkParseClientMessageChat(b *testing.B) {
	raw := []byte(`{"type":"client_chat","request_id":"r1","text":"Today I finally finished the puzzle","source":"text"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ClientChat); !ok {
			b.Fatalf("message type = %T, want ClientChat", msg)
		}
	}
}
