package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeInvalidTransition, http.StatusUnprocessableEntity, false},
		{CodePaymentRequired, http.StatusConflict, false},
		{CodeAlreadyClaimed, http.StatusConflict, false},
		{CodeUnresolvedEvent, http.StatusUnprocessableEntity, false},
		{CodeDependency, http.StatusServiceUnavailable, true},
		{CodeInternal, http.StatusInternalServerError, true},
	}
	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable=%v", tc.code, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeDependency, cause, "storage write")
	if err.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
	if As(err).Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", As(err).Code())
	}
}

func TestRetryableClassSplit(t *testing.T) {
	if Retryable(New(CodeUnresolvedEvent, "no matching order")) {
		t.Fatal("resolution failures are terminal")
	}
	if !Retryable(Wrap(CodeDependency, fmt.Errorf("conn reset"), "update order")) {
		t.Fatal("dependency failures are retryable")
	}
	if !Retryable(fmt.Errorf("untyped")) {
		t.Fatal("untyped errors default to retryable")
	}
}

func TestAsOnNonTypedError(t *testing.T) {
	if As(fmt.Errorf("plain")) != nil {
		t.Fatal("expected nil for non-typed error")
	}
}
