package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestMessageClassification(t *testing.T) {
	req := Message{Method: "tools/list", ID: json.RawMessage(`1`)}
	if !req.IsRequest() || req.IsNotification() || req.IsResponse() {
		t.Errorf("expected %+v to classify as request only", req)
	}

	note := Message{Method: "notifications/initialized"}
	if !note.IsNotification() || note.IsRequest() || note.IsResponse() {
		t.Errorf("expected %+v to classify as notification only", note)
	}

	resp := Message{ID: json.RawMessage(`1`), Result: json.RawMessage(`{}`)}
	if !resp.IsResponse() || resp.IsRequest() || resp.IsNotification() {
		t.Errorf("expected %+v to classify as response only", resp)
	}
}

func TestDecodeBodySingleAndBatch(t *testing.T) {
	single, err := DecodeBody([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if err != nil || len(single) != 1 {
		t.Fatalf("DecodeBody single = %v, %v", single, err)
	}

	batch, err := DecodeBody([]byte(`  [{"jsonrpc":"2.0","id":1,"method":"a"},{"jsonrpc":"2.0","id":2,"method":"b"}]`))
	if err != nil || len(batch) != 2 {
		t.Fatalf("DecodeBody batch = %v, %v", batch, err)
	}
}

func TestNewErrorDefaultMessage(t *testing.T) {
	err := NewError(CodeSessionNotFound, "")
	if err.Code != CodeSessionNotFound || err.Message != "Session not found" {
		t.Errorf("NewError = %+v", err)
	}

	withDetail := NewError(CodeInvalidParams, "missing name")
	if withDetail.Message != "missing name" {
		t.Errorf("NewError detail override = %+v", withDetail)
	}
}
