package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/stretchr/testify/assert"
)

func TestTerminal_NotifyAndNavigate(t *testing.T) {
	var out bytes.Buffer
	ui := newTerminal(bufio.NewReader(strings.NewReader("")), &out)
	ctx := context.Background()

	n := session.NewNotice(session.NoticeSessionInvalid, "/")
	ui.Notify(ctx, n)
	ui.Navigate(ctx, "/")

	assert.Contains(t, out.String(), n.Title)
	assert.Contains(t, out.String(), n.Message)
	assert.Contains(t, out.String(), "-> /\n")
}

func TestTerminal_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			ui := newTerminal(bufio.NewReader(strings.NewReader(tt.input)), &out)
			got := ui.Confirm(context.Background(), session.NewNotice(session.NoticeUpgradeRequired, "/account"))
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}
