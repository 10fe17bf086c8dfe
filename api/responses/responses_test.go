package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
)

func TestWriteSuccessWrapsDataEnvelope(t *testing.T) {
	res := httptest.NewRecorder()
	WriteSuccess(res, map[string]string{"status": "live"})

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var envelope map[string]map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if envelope["data"]["status"] != "live" {
		t.Fatalf("body = %s", res.Body.String())
	}
}

func TestWriteErrorExposesClientFacingMessages(t *testing.T) {
	res := httptest.NewRecorder()
	WriteError(context.Background(), nil, res,
		pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer paid"))

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", res.Code)
	}

	var envelope map[string]map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if envelope["error"]["code"] != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("code = %v", envelope["error"]["code"])
	}
	if envelope["error"]["message"] != "order is no longer paid" {
		t.Fatalf("message = %v", envelope["error"]["message"])
	}
}

func TestWriteErrorMasksInternalDetail(t *testing.T) {
	res := httptest.NewRecorder()
	WriteError(context.Background(), nil, res,
		pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("pq: connection reset"), "query failed"))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.Code)
	}

	var envelope map[string]map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	msg, _ := envelope["error"]["message"].(string)
	if msg != "internal server error" {
		t.Fatalf("leaked internal message: %q", msg)
	}
}

func TestWriteErrorHandlesUntypedErrors(t *testing.T) {
	res := httptest.NewRecorder()
	WriteError(context.Background(), nil, res, errors.New("boom"))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.Code)
	}
}
