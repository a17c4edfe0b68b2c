package errors_test

import (
	"errors"
	"net/http"
	"testing"

	perr "bridgebot/internal/platform/errors"
)

func TestCodeOf(t *testing.T) {
	err := perr.NotFoundf("service %q not found", "x")
	if perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("expected not found code, got %v", perr.CodeOf(err))
	}
	if perr.CodeOf(errors.New("plain")) != perr.ErrorCodeUnknown {
		t.Fatal("plain errors should map to unknown")
	}
	if perr.CodeOf(nil) != perr.ErrorCodeUnknown {
		t.Fatal("nil should map to unknown")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{perr.NotFoundf("x"), http.StatusNotFound},
		{perr.InvalidArgf("x"), http.StatusUnprocessableEntity},
		{perr.DuplicateKeyf("x"), http.StatusConflict},
		{perr.Conflictf("x"), http.StatusConflict},
		{perr.JSONErrf("x"), http.StatusBadRequest},
		{perr.Unauthorizedf("x"), http.StatusUnauthorized},
		{perr.Forbiddenf("x"), http.StatusForbidden},
		{perr.Unavailablef("x"), http.StatusServiceUnavailable},
		{perr.Internalf("x"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := perr.HTTPStatus(c.err); got != c.want {
			t.Fatalf("%v: expected %d got %d", c.err, c.want, got)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("bind: address already in use")
	err := perr.Wrapf(cause, perr.ErrorCodeUnavailable, "listener bind failed")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("expected unavailable code, got %v", perr.CodeOf(err))
	}
}

func TestWireFrom(t *testing.T) {
	w := perr.WireFrom(perr.NotFoundf("gone"))
	if w.Code != perr.ErrorCodeNotFound || w.Message != "gone" {
		t.Fatalf("unexpected wire %+v", w)
	}
}

func TestAs(t *testing.T) {
	e, ok := perr.As(perr.Forbiddenf("no"))
	if !ok || e.Code() != perr.ErrorCodeForbidden {
		t.Fatalf("expected forbidden project error, ok=%v", ok)
	}
	if _, ok := perr.As(errors.New("plain")); ok {
		t.Fatal("plain error should not convert")
	}
}
