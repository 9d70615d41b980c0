package errors

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"testing"
)

func TestCast(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   Error
		wantOK bool
	}{
		{
			name:   "rich error",
			err:    Error{Code: ErrForbidden, Kind: KindTeamLocked, Message: "team is locked"},
			want:   Error{Code: ErrForbidden, Kind: KindTeamLocked, Message: "team is locked"},
			wantOK: true,
		},
		{
			name:   "rich error pointer",
			err:    &Error{Code: ErrNotFound, Kind: KindArenaNotFound, Message: "arena 3"},
			want:   Error{Code: ErrNotFound, Kind: KindArenaNotFound, Message: "arena 3"},
			wantOK: true,
		},
		{
			name: "nil",
			err:  nil,
			want: Error{
				Code:    ErrUnexpected,
				Kind:    KindUnexpected,
				Message: "unknown operation",
				Details: Details{},
			},
		},
		{
			name: "native error",
			err:  errors.New("connection reset"),
			want: Error{
				Code:    ErrUnexpected,
				Kind:    KindUnexpected,
				Err:     errors.New("connection reset"),
				Message: "unknown operation",
				Details: Details{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cast(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "team is locked", Error{Message: "team is locked"}.Error())
	assert.Equal(t, "load map: file not found",
		Error{Message: "load map", Err: errors.New("file not found")}.Error())
}

func TestWrap(t *testing.T) {
	t.Run("rich error", func(t *testing.T) {
		err := Wrap(NewForbiddenError(KindTeamLocked, "team is locked", nil), "join", Details{"team": 1})
		e, ok := Cast(err)
		require.True(t, ok, "should stay rich error")
		assert.Equal(t, "join: team is locked", e.Message)
		assert.Equal(t, ErrForbidden, e.Code, "should keep code")
		assert.Equal(t, KindTeamLocked, e.Kind, "should keep kind")
		assert.Equal(t, Details{"team": 1}, e.Details)
	})
	t.Run("native error", func(t *testing.T) {
		err := Wrap(errors.New("broken pipe"), "publish snapshot", nil)
		assert.Equal(t, "publish snapshot: broken pipe", err.Error())
		assert.True(t, Is(err, KindUnexpected))
	})
	t.Run("detail collision", func(t *testing.T) {
		original := NewBadRequestError(KindInvalidArgument, "invalid team", Details{"arena": 1})
		err := Wrap(original, "command", Details{"arena": 2})
		e, _ := Cast(err)
		assert.Equal(t, Details{"arena": 2, "_arena": 1}, e.Details)
		o, _ := Cast(original)
		assert.Equal(t, Details{"arena": 1}, o.Details, "should not modify original details")
	})
}

func TestError_Unwrap(t *testing.T) {
	err := Wrap(NewInternalErrorFromErr(context.Canceled, "record match", nil), "level", nil)
	assert.True(t, errors.Is(err, context.Canceled), "should match original error")
}

func TestBlameUser(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "not found", err: Error{Code: ErrNotFound}, want: true},
		{name: "bad request", err: Error{Code: ErrBadRequest}, want: true},
		{name: "forbidden", err: Error{Code: ErrForbidden}, want: true},
		{name: "internal", err: Error{Code: ErrInternal}},
		{name: "communication", err: Error{Code: ErrCommunication}},
		{name: "native", err: errors.New("unknown error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BlameUser(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "user error",
			err:  NewBadRequestError(KindInvalidArgument, "team must be between 1 and 2", nil),
			want: "team must be between 1 and 2",
		},
		{
			name: "policy rejection",
			err:  NewForbiddenError(KindTeamLocked, "team is locked", nil),
			want: "team is locked",
		},
		{
			name: "internal",
			err:  NewInternalError("broken", nil),
			want: "internal server error",
		},
		{
			name: "native",
			err:  errors.New("native"),
			want: "internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := Wrap(NewForbiddenError(KindTeamLocked, "team is locked", nil), "join", nil)
	assert.True(t, Is(err, KindTeamLocked), "should match wrapped kind")
	assert.False(t, Is(err, KindTeamFull), "should not match other kind")
	assert.False(t, Is(errors.New("native"), KindUnexpected), "should not match native errors")
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	Log(logger, nil)
	Log(logger, NewBadRequestError(KindUnknownCommand, "unknown command", Details{"command": "dance"}))
	Log(logger, NewInternalErrorFromErr(errors.New("timeout"), "record match", nil))
	entries := logs.All()
	require.Len(t, entries, 2, "should not log nil error")
	assert.Equal(t, zap.DebugLevel, entries[0].Level, "should log user errors as debug")
	assert.Equal(t, "unknown-command", entries[0].ContextMap()["err_kind"])
	assert.Equal(t, "dance", entries[0].ContextMap()["err_details_v_command"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "timeout", entries[1].ContextMap()["err_orig"])
}

func TestPrettify(t *testing.T) {
	got := Prettify(NewResourceNotFoundError("arena not found", Details{"arena": 3}))
	assert.Contains(t, got, "Code: not-found")
	assert.Contains(t, got, "Kind: resource-not-found")
	assert.Contains(t, got, `Details: {"arena":3}`)
}
