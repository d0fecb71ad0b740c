package errcode

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToStatus(t *testing.T) {
	cases := map[int]int{
		CodeOK:                   http.StatusOK,
		CodeInvalidParams:        http.StatusBadRequest,
		CodeNotFound:             http.StatusNotFound,
		CodeNotReady:             http.StatusConflict,
		CodeConfirmationRequired: http.StatusConflict,
		CodeColorLocked:          http.StatusBadRequest,
		CodeRateLimited:          http.StatusTooManyRequests,
		CodeInternalError:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, CodeToStatus(code), "code %d", code)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "pack not ready", Message(CodeNotReady))
	assert.Equal(t, "internal error", Message(12345))
}
