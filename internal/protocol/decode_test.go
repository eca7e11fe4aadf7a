package protocol

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantKind string
		wantErr  error
	}{
		{"identify", `{"type":"user-first-message","name":"Alice"}`, TypeFirstMessage, nil},
		{"create", `{"type":"create-chatbox","chatboxId":"r","name":"n","password":"p"}`, TypeCreateChatbox, nil},
		{"find", `{"type":"find-chatbox","password":"p","searchName":"n"}`, TypeFindChatbox, nil},
		{"switch", `{"type":"switch-chatbox","chatboxId":"r"}`, TypeSwitchChatbox, nil},
		{"chat", `{"type":"chat","name":"a","text":"t"}`, TypeChat, nil},
		{"legacy chat", `{"name":"a","text":"t"}`, TypeChat, nil},
		{"typing", `{"type":"typing"}`, TypeTyping, nil},
		{"stopped typing", `{"type":"stopped-typing"}`, TypeStoppedTyping, nil},
		{"camera", `{"type":"camera-started"}`, TypeCameraStarted, nil},
		{"offer", `{"type":"offer","to":3,"sdp":{}}`, TypeOffer, nil},
		{"answer", `{"type":"answer","to":0}`, TypeAnswer, nil},
		{"ice", `{"type":"ice-candidate","to":1,"candidate":{}}`, TypeICECandidate, nil},
		{"unknown", `{"type":"dance"}`, "", ErrUnknownType},
		{"not json", `{`, "", ErrMalformed},
		{"array", `[]`, "", ErrMalformed},
		{"null", `null`, "", ErrMalformed},
		{"no type no name", `{"text":"x"}`, "", ErrMalformed},
		{"signal without target", `{"type":"offer"}`, "", ErrMalformed},
		{"wrong field type", `{"type":"offer","to":"1"}`, "", ErrMalformed},
		{"fractional target", `{"type":"offer","to":1.5}`, "", ErrMalformed},
		{"non-string type", `{"type":42}`, "", ErrMalformed},
		{"legacy with empty name", `{"name":"","text":"x"}`, "", ErrMalformed},
		{"chat with numeric name", `{"type":"chat","name":5,"text":"x"}`, "", ErrMalformed},
		{"create with numeric password", `{"type":"create-chatbox","chatboxId":"r","password":1234}`, "", ErrMalformed},
		{"camera with odd extra fields", `{"type":"camera-started","name":5,"to":"x"}`, TypeCameraStarted, nil},
		{"offer with odd extra fields", `{"type":"offer","to":2,"name":{"first":"a"},"text":[1],"password":false}`, TypeOffer, nil},
		{"typing with odd extra fields", `{"type":"typing","chatboxId":7}`, TypeTyping, nil},
		{"identify with odd extra fields", `{"type":"user-first-message","name":"a","to":"nobody"}`, TypeFirstMessage, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got := Kind(ev); got != tt.wantKind {
				t.Errorf("Kind(Decode()) = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestDecode_Payloads(t *testing.T) {
	ev, _ := Decode([]byte(`{"type":"ice-candidate","to":7,"candidate":{"c":1}}`))
	sig, ok := ev.(Signal)
	if !ok || sig.To != 7 || !sig.Fields.Has("candidate") {
		t.Errorf("Decode() = %#v", ev)
	}

	ev, _ = Decode([]byte(`{"type":"chat","name":"a","text":"hi","chatboxId":"r1","timestamp":null}`))
	chat := ev.(Chat)
	if chat.RoomID != "r1" || chat.Text != "hi" {
		t.Errorf("Decode() chat = %#v", chat)
	}
	if chat.Fields.Has("timestamp") {
		t.Error("Has() should treat null as absent")
	}
}

func TestDecode_ExtraFieldsKeptVerbatim(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"offer","to":2,"name":{"first":"a"},"sdp":"v=0"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	sig := ev.(Signal)
	if got := string(sig.Fields["name"]); got != `{"first":"a"}` {
		t.Errorf("Fields[name] = %s, want it untouched", got)
	}
	if sig.To != 2 {
		t.Errorf("To = %d, want 2", sig.To)
	}
}

func TestFields_CloneIsIndependent(t *testing.T) {
	f := Fields{}
	f.Set("a", 1)
	c := f.Clone()
	c.Set("a", 2)
	if string(f["a"]) != "1" {
		t.Errorf("original mutated: %s", f["a"])
	}
}

func TestOutboundListsNeverNull(t *testing.T) {
	b, err := Encode(UserJoined("a", 1, nil))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"user-joined","userName":"a","participantId":1,"chatrooms":[]}`
	if string(b) != want {
		t.Errorf("Encode() = %s, want %s", b, want)
	}
}
