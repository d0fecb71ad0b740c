package service

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/errcode"
	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, errcode.CodeOK},
		{"not found", errors.Wrap(ErrNotFound, "mask"), errcode.CodeNotFound},
		{"store not found", errors.Wrap(store.ErrNotFound, "row"), errcode.CodeNotFound},
		{"not ready", &NotReadyError{PackID: "gen1"}, errcode.CodeNotReady},
		{"rate limited", errors.Wrap(&RateLimitedError{RetryAfter: time.Second}, "open"), errcode.CodeRateLimited},
		{"confirmation", &ConfirmationRequiredError{PackID: "gen1"}, errcode.CodeConfirmationRequired},
		{"color", errors.Wrap(ErrColorLocked, "set"), errcode.CodeColorLocked},
		{"invalid", invalidArgument("bad %s", "slot"), errcode.CodeInvalidParams},
		{"assertion", errors.AssertionFailedf("broken"), errcode.CodeInternalError},
		{"other", errors.New("boom"), errcode.CodeInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, Code(tc.err))
		})
	}
}

func TestNotFoundMatchesBothSentinels(t *testing.T) {
	err := errors.Wrap(notFound(errors.Wrap(store.ErrNotFound, "progress")), "open")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, errcode.CodeNotFound, Code(err))
	assert.Contains(t, err.Error(), "store: not found")

	other := errors.New("boom")
	assert.Equal(t, other, notFound(other))
}

func TestStructuredErrorsAs(t *testing.T) {
	secs := int64(30)
	err := errors.Wrap(&NotReadyError{PackID: "gen1", Units: 2, UnitsPerPack: 6, TimeToReady: &secs}, "open")

	var nr *NotReadyError
	assert.True(t, errors.As(err, &nr))
	assert.Equal(t, int64(30), *nr.TimeToReady)
	assert.Contains(t, err.Error(), "2/6 units")
}
