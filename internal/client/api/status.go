package api

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/credentials"
)

// Status describes the stored session without touching the network.
type Status struct {
	LoggedIn  bool
	Subject   string
	ExpiresAt time.Time
	// Expired means the next authenticated request refreshes first.
	Expired bool
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	pair, err := credentials.Load(ctx, c.store)
	if err != nil {
		return Status{}, err
	}
	if !pair.Present() {
		return Status{}, nil
	}

	st := Status{
		LoggedIn: true,
		Expired:  c.inspector.Expired(pair.AccessToken),
	}
	if claims, err := c.inspector.Claims(pair.AccessToken); err == nil {
		st.Subject = claims.Subject
		st.ExpiresAt = claims.ExpiresAt.Time
	}
	return st, nil
}
