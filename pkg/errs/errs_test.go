package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/yeisme/clipstudio/pkg/errs"
)

// TestFrom_Mapping 测试错误码到 HTTP 状态的映射.
func TestFrom_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{errs.InvalidInput("No file provided"), http.StatusBadRequest, "No file provided"},
		{errs.QuotaOrSize("File size exceeds 50MB limit"), http.StatusBadRequest, "File size exceeds 50MB limit"},
		{errs.NotFound("Asset not found"), http.StatusNotFound, "Asset not found"},
		{errs.SlotFull("base slot is full"), http.StatusConflict, "base slot is full"},
		{fmt.Errorf("upload: %w", errs.New(errs.CodeRemoteProcessingTimeout, "")), http.StatusInternalServerError, "Video processing timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "boom"},
	}

	for _, tc := range cases {
		e := errs.From(tc.err)
		if e.HTTPStatus() != tc.status {
			t.Errorf("Expected status %d for %v, got %d", tc.status, tc.err, e.HTTPStatus())
		}

		if e.Message() != tc.msg {
			t.Errorf("Expected message %q, got %q", tc.msg, e.Message())
		}
	}
}

// TestIs_ByCode 测试 errors.Is 按错误码匹配，且可以穿透 %w 包装.
func TestIs_ByCode(t *testing.T) {
	err := fmt.Errorf("delete asset: %w", errs.NotFound("Asset not found"))

	if !errors.Is(err, errs.New(errs.CodeNotFound, "")) {
		t.Error("Expected errors.Is to match NOT_FOUND")
	}

	if errors.Is(err, errs.New(errs.CodeSlotFull, "")) {
		t.Error("Expected errors.Is not to match SLOT_FULL")
	}

	if errs.CodeOf(err) != errs.CodeNotFound {
		t.Errorf("Expected code NOT_FOUND, got %s", errs.CodeOf(err))
	}
}

// TestPersistence_Unwrap 测试持久化错误保留底层原因.
func TestPersistence_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := errs.Persistence(cause)

	if !errors.Is(err, cause) {
		t.Error("Expected persistence error to wrap its cause")
	}

	if err.Message() != "disk full" {
		t.Errorf("Expected message 'disk full', got %q", err.Message())
	}
}
