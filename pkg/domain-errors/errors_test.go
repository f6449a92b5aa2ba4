package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePropagation(t *testing.T) {
	t.Run("wrapped errors keep their code", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "store unavailable")

		require.Error(t, err)
		assert.True(t, HasCode(err, CodeUnavailable))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "store unavailable: connection refused", err.Error())
	})

	t.Run("fmt wrapping does not hide the code", func(t *testing.T) {
		err := fmt.Errorf("issue: %w", New(CodeNotEligible, "practical exam not passed"))
		assert.True(t, Is(err, CodeNotEligible))
		assert.Equal(t, CodeNotEligible, CodeOf(err))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("wrapping nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("details survive wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", WithDetails(CodeNotEligible, "not eligible", map[string]bool{"eligible": false}))
		de, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, map[string]bool{"eligible": false}, de.Details)
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:     http.StatusNotFound,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeNotEligible:  http.StatusUnprocessableEntity,
		CodeOutOfWindow:  http.StatusUnprocessableEntity,
		CodeInvalidState: http.StatusConflict,
		CodeValidation:   http.StatusBadRequest,
		CodeInternal:     http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), "code %s", code)
	}
}
