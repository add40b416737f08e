package logger

import (
	"context"
	"io"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/steeple/internal/auth"
)

// Setup returns the process logger writing to stderr. dev switches to the
// console writer at debug level.
func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New returns a logger writing to w.
func New(w io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Timestamp().Caller().Stack().Logger()
	}

	return zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}

var _ connect.Interceptor = (*ConnectRequests)(nil)

// ConnectRequests logs one line per handled RPC and attaches a request
// scoped logger to the context.
type ConnectRequests struct {
	logger zerolog.Logger
}

func NewConnectRequests(logger zerolog.Logger) *ConnectRequests {
	return &ConnectRequests{logger: logger}
}

func (c *ConnectRequests) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return connect.UnaryFunc(func(
		ctx context.Context,
		req connect.AnyRequest,
	) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}

		started := time.Now()

		lc := c.logger.With().
			Str("procedure", req.Spec().Procedure).
			Str("method", req.HTTPMethod()).
			Str("protocol", req.Peer().Protocol).
			Str("addr", req.Peer().Addr)
		if p, ok := auth.PrincipalFromContext(ctx); ok {
			lc = lc.Str("user_id", p.UserID.String()).Str("principal_type", p.Type)
		}
		ctx = lc.Logger().WithContext(ctx)

		resp, err := next(ctx, req)

		if err != nil {
			code := connect.CodeOf(err)
			zerolog.Ctx(ctx).WithLevel(levelFor(code)).
				Err(err).
				Str("code", code.String()).
				Dur("duration", time.Since(started)).
				Msg("rpc call")

			return resp, err
		}

		zerolog.Ctx(ctx).Info().
			Dur("duration", time.Since(started)).
			Msg("rpc call")

		return resp, err
	})
}

// TenantService has no streaming procedures; streams pass through untouched.
func (c *ConnectRequests) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (c *ConnectRequests) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// levelFor keeps caller mistakes out of the error log.
func levelFor(code connect.Code) zerolog.Level {
	switch code {
	case connect.CodeInvalidArgument,
		connect.CodeNotFound,
		connect.CodeFailedPrecondition,
		connect.CodeUnauthenticated,
		connect.CodePermissionDenied:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
