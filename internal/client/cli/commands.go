package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/api"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/faults"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var errUsage = errors.New("usage: get [public|auth|paid] <path>")

func parseTier(s string) (faults.Tier, bool) {
	switch strings.ToLower(s) {
	case "public", "none":
		return faults.TierNone, true
	case "auth", "authenticated":
		return faults.TierAuthenticated, true
	case "paid", "perm", "permission":
		return faults.TierPermission, true
	default:
		return 0, false
	}
}

// describe turns lifecycle errors into one line for the terminal. Notices
// were already shown by the time these come back.
func describe(err error) string {
	var httpErr *api.HTTPError
	switch {
	case errors.Is(err, common.ErrSessionTerminated):
		return "Session ended, please log in again."
	case errors.Is(err, common.ErrBillingRequired),
		errors.Is(err, common.ErrUpgradeRequired),
		errors.Is(err, common.ErrServerOverloaded):
		return "Request not completed: " + err.Error()
	case errors.As(err, &httpErr):
		return fmt.Sprintf("Server answered %d: %s", httpErr.StatusCode, httpErr.Body)
	default:
		return "Error: " + err.Error()
	}
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.client.Status(ctx)
	if err != nil {
		return err
	}
	if !st.LoggedIn {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	state := "valid"
	if st.Expired {
		state = "expired, refreshed on next request"
	}
	fmt.Fprintf(a.out, "Logged in as %s\nAccess token %s, expires %s\n",
		st.Subject, state, st.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Get fetches a JSON resource. The tier defaults to auth.
func (a *App) Get(ctx context.Context, args []string) error {
	tier := faults.TierAuthenticated
	switch len(args) {
	case 1:
	case 2:
		t, ok := parseTier(args[0])
		if !ok {
			return errUsage
		}
		tier, args = t, args[1:]
	default:
		return errUsage
	}

	path := args[0]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var out any
	if err := a.client.GetJSON(ctx, tier, path, &out); err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *App) Ping(ctx context.Context) error {
	var out any
	if err := a.client.GetJSON(ctx, faults.TierNone, "/public/ping", &out); err != nil {
		return err
	}
	return a.printJSON(out)
}

// Health runs a gRPC health check. A service name switches to the
// permission tier, since named services may be paid-only.
func (a *App) Health(ctx context.Context, args []string) error {
	if a.config.GRPCAddr == "" {
		return errors.New("no gRPC address configured")
	}
	if a.conn == nil {
		conn, err := a.client.DialGRPC(a.config.GRPCAddr)
		if err != nil {
			return err
		}
		a.conn = conn
	}

	req := &healthpb.HealthCheckRequest{}
	if len(args) > 0 {
		req.Service = args[0]
		ctx = faults.WithTier(ctx, faults.TierPermission)
	}

	resp, err := healthpb.NewHealthClient(a.conn).Check(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.GetStatus().String())
	return nil
}

func (a *App) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}
