package errx_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Abraxas-365/authgate/pkg/errx"
)

var testRegistry = errx.NewRegistry("TEST")

var (
	codeNotFound = testRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Thing not found")
	codeBoom     = testRegistry.Register("BOOM", errx.TypeInternal, http.StatusInternalServerError, "It broke")
)

func TestRegisteredCodesCarryPrefix(t *testing.T) {
	err := testRegistry.New(codeNotFound)
	if err.Code != "TEST_NOT_FOUND" {
		t.Errorf("code = %q", err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("status = %d", err.HTTPStatus)
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := testRegistry.New(codeNotFound).WithDetail("id", "42")

	if !errors.Is(err, testRegistry.New(codeNotFound)) {
		t.Errorf("same code did not match")
	}
	if errors.Is(err, testRegistry.New(codeBoom)) {
		t.Errorf("different code matched")
	}
}

func TestWrapPreservesExistingCode(t *testing.T) {
	inner := testRegistry.New(codeNotFound)
	wrapped := errx.Wrap(inner, "outer context", errx.TypeInternal)

	if !errors.Is(wrapped, testRegistry.New(codeNotFound)) {
		t.Errorf("wrapping replaced the original code")
	}
}

func TestWrapPlainError(t *testing.T) {
	cause := fmt.Errorf("disk full")
	wrapped := errx.Wrap(cause, "save failed", errx.TypeInternal)

	var e *errx.Error
	if !errors.As(wrapped, &e) {
		t.Fatalf("wrap did not produce an errx.Error")
	}
	if !errors.Is(wrapped, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}
}

func TestNewWithCause(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := testRegistry.NewWithCause(codeBoom, cause)

	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable")
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d", err.HTTPStatus)
	}
}
