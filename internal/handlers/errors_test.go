package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pv_informant/internal/models"

	"github.com/gin-gonic/gin"
)

func TestStatusFor(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("ctx: %w", err) }
	cases := []struct {
		err  error
		want int
	}{
		{wrap(models.ErrInvalidRange), http.StatusBadRequest},
		{wrap(models.ErrInvalidAddress), http.StatusBadRequest},
		{wrap(models.ErrConfig), http.StatusBadRequest},
		{wrap(models.ErrUnknownWorker), http.StatusTeapot},
		{wrap(models.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err, http.StatusTeapot); got != tc.want {
			t.Fatalf("%v: got %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestLogAndJSONError_HidesServerCauses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil)

	cases := []struct {
		code int
		err  error
		want string
	}{
		{http.StatusBadRequest, errors.New("bad from"), "bad from"},
		{http.StatusServiceUnavailable, errors.New("disk I/O error at /var/lib/db"), "storage unavailable"},
		{http.StatusInternalServerError, errors.New("nil map"), "internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.logAndJSONError(c, tc.code, "k", tc.err)

		if w.Code != tc.code {
			t.Fatalf("code: got %d, want %d", w.Code, tc.code)
		}
		var out struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out.Error != tc.want {
			t.Fatalf("message: got %q, want %q", out.Error, tc.want)
		}
	}
}
