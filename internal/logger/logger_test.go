package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/auth"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	log.Info().Str("host", "grace.steeple.app").Msg("resolved")
	line := decodeLine(t, &buf)
	require.Equal(t, "info", line["level"])
	require.Equal(t, "grace.steeple.app", line["host"])
	require.Contains(t, line, "time")
}

func TestNew_dev(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)

	log.Debug().Msg("visible")
	require.Contains(t, buf.String(), "visible")
}

func TestConnectRequests_WrapUnary(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		err       error
		principal *auth.Principal
		wantLevel string
		wantCode  string
	}{
		{name: "success", wantLevel: "info"},
		{
			name:      "success with principal",
			principal: &auth.Principal{UserID: userID, Type: "token"},
			wantLevel: "info",
		},
		{
			name:      "caller error",
			err:       connect.NewError(connect.CodeNotFound, errors.New("no organization")),
			wantLevel: "warn",
			wantCode:  "not_found",
		},
		{
			name:      "server error",
			err:       connect.NewError(connect.CodeUnavailable, errors.New("store down")),
			wantLevel: "error",
			wantCode:  "unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			interceptor := NewConnectRequests(zerolog.New(&buf))

			ctx := context.Background()
			if tt.principal != nil {
				ctx = auth.WithPrincipal(ctx, tt.principal)
			}

			var sawLogger bool
			next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				sawLogger = zerolog.Ctx(ctx).GetLevel() != zerolog.Disabled
				if tt.err != nil {
					return nil, tt.err
				}
				return connect.NewResponse(&struct{}{}), nil
			})

			_, err := interceptor.WrapUnary(next)(ctx, connect.NewRequest(&struct{}{}))
			require.Equal(t, tt.err, err)
			require.True(t, sawLogger)

			line := decodeLine(t, &buf)
			require.Equal(t, "rpc call", line["message"])
			require.Equal(t, tt.wantLevel, line["level"])
			require.Contains(t, line, "duration")
			if tt.wantCode != "" {
				require.Equal(t, tt.wantCode, line["code"])
			} else {
				require.NotContains(t, line, "code")
			}
			if tt.principal != nil {
				require.Equal(t, userID.String(), line["user_id"])
				require.Equal(t, "token", line["principal_type"])
			} else {
				require.NotContains(t, line, "user_id")
			}
		})
	}
}

func TestLevelFor(t *testing.T) {
	require.Equal(t, zerolog.WarnLevel, levelFor(connect.CodeUnauthenticated))
	require.Equal(t, zerolog.WarnLevel, levelFor(connect.CodeFailedPrecondition))
	require.Equal(t, zerolog.ErrorLevel, levelFor(connect.CodeInternal))
	require.Equal(t, zerolog.ErrorLevel, levelFor(connect.CodeUnknown))
}
