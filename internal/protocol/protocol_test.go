package protocol

import "testing"

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"MODIFY","protocol_version":"1.0","ops":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeModify || m.ProtocolVersion != Version {
		t.Fatalf("unexpected base: %+v", m)
	}
	if _, err := DecodeBase([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error on truncated json")
	}
}
