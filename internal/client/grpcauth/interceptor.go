// Package grpcauth applies the token lifecycle to gRPC unary calls.
package grpcauth

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/faults"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type Authenticator interface {
	Credentials(ctx context.Context) (credentials.Pair, error)
}

type Refresher interface {
	Refresh(ctx context.Context, stale credentials.Pair) (credentials.Pair, error)
}

type FaultHandler interface {
	Handle(ctx context.Context, outcome faults.Outcome, status int) error
}

type Interceptor struct {
	auth      Authenticator
	refresher Refresher
	handler   FaultHandler
	tier      faults.Tier
	log       logging.Logger
	metrics   *metrics.Collectors
}

func New(a Authenticator, r Refresher, h FaultHandler, tier faults.Tier, log logging.Logger, m *metrics.Collectors) *Interceptor {
	if log == nil {
		log = logging.Discard()
	}
	return &Interceptor{auth: a, refresher: r, handler: h, tier: tier, log: log, metrics: m}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationMetadataKey, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

// httpStatus translates a gRPC code into the status the classifier knows.
// Unavailable and DeadlineExceeded are reported as overload.
func httpStatus(code codes.Code) (int, bool) {
	switch code {
	case codes.Unauthenticated:
		return http.StatusUnauthorized, false
	case codes.FailedPrecondition:
		return http.StatusPaymentRequired, false
	case codes.PermissionDenied:
		return http.StatusForbidden, false
	case codes.Unavailable:
		return http.StatusBadGateway, true
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, true
	default:
		return 0, false
	}
}

// Unary is a grpc.UnaryClientInterceptor.
func (i *Interceptor) Unary(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	tier := i.tier
	if v, ok := faults.TierFromContext(ctx); ok {
		tier = v
	}

	var used credentials.Pair
	callCtx := ctx
	if tier != faults.TierNone {
		var err error
		used, err = i.auth.Credentials(ctx)
		if err != nil {
			return err
		}
		if used.Present() {
			callCtx = withAccessToken(ctx, used.AccessToken)
		}
	}

	err := invoker(callCtx, method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	outcome, code := i.classify(ctx, method, tier, used, true, connected(cc), err)
	if outcome != faults.OutcomeRetryOnce {
		return i.finish(ctx, outcome, code, err)
	}

	fresh, rerr := i.refresher.Refresh(ctx, used)
	if rerr != nil {
		return rerr
	}

	// tokens refreshed, one more attempt
	err = invoker(withAccessToken(ctx, fresh.AccessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}
	outcome, code = i.classify(ctx, method, tier, fresh, false, connected(cc), err)
	return i.finish(ctx, outcome, code, err)
}

// connected reports whether cc has a live transport. A nil cc comes from
// callers invoking the interceptor directly and counts as connected.
func connected(cc *grpc.ClientConn) bool {
	return cc == nil || cc.GetState() == connectivity.Ready
}

func (i *Interceptor) classify(ctx context.Context, method string, tier faults.Tier, used credentials.Pair, canRetry, live bool, err error) (faults.Outcome, int) {
	st, ok := status.FromError(err)
	if !ok || ctx.Err() != nil {
		// the caller gave up; that says nothing about the server
		return faults.OutcomeContinue, 0
	}
	if st.Code() == codes.Unavailable && !live {
		// no server answered: the network is down, not the backend overloaded
		i.log.Debug(ctx, "unavailable without a connection", "method", method)
		return faults.OutcomeContinue, 0
	}

	code, overload := httpStatus(st.Code())
	outcome := faults.Classify(tier, code, overload)
	if outcome == faults.OutcomeRetryOnce {
		switch {
		case !used.Present():
			outcome = faults.OutcomeContinue
		case !canRetry:
			outcome = faults.OutcomeTerminate
		}
	}

	i.metrics.Outcome(outcome.String())
	i.log.Debug(ctx, "classified failed call", "method", method, "code", st.Code().String(), "outcome", outcome.String())
	return outcome, code
}

func (i *Interceptor) finish(ctx context.Context, outcome faults.Outcome, code int, err error) error {
	if outcome == faults.OutcomeContinue {
		return err
	}
	return i.handler.Handle(ctx, outcome, code)
}
