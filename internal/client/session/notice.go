package session

import "context"

type NoticeKind int

const (
	NoticeSessionInvalid NoticeKind = iota
	NoticeLoginRequired
	NoticeBillingRequired
	NoticeUpgradeRequired
	NoticeServerOverloaded
)

// Notice is a user-facing message shown before a redirect.
type Notice struct {
	Kind      NoticeKind
	Title     string
	Message   string
	ActionURL string
}

// Navigator performs a full navigation. Implementations must not block on
// the user.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// Notifier shows notices. Confirm reports whether the user accepted the
// suggested action.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
	Confirm(ctx context.Context, n Notice) bool
}

var noticeTexts = map[NoticeKind][2]string{
	NoticeSessionInvalid: {
		"Session expired",
		"Your session is no longer valid. It may have been ended from another device. Please sign in again.",
	},
	NoticeLoginRequired: {
		"Sign in required",
		"Please sign in to continue.",
	},
	NoticeBillingRequired: {
		"Billing inactive",
		"Your subscription payment is not active. Please update your billing details in account settings.",
	},
	NoticeUpgradeRequired: {
		"Upgrade required",
		"This feature is not included in your current membership. Open account settings to upgrade?",
	},
	NoticeServerOverloaded: {
		"Server busy",
		"The server is under heavy load right now. Please try again in a few minutes.",
	},
}

// NewNotice returns the English notice for kind pointing at actionURL.
func NewNotice(kind NoticeKind, actionURL string) Notice {
	text := noticeTexts[kind]
	return Notice{Kind: kind, Title: text[0], Message: text[1], ActionURL: actionURL}
}

func (k NoticeKind) String() string {
	switch k {
	case NoticeSessionInvalid:
		return "session_invalid"
	case NoticeLoginRequired:
		return "login_required"
	case NoticeBillingRequired:
		return "billing_required"
	case NoticeUpgradeRequired:
		return "upgrade_required"
	case NoticeServerOverloaded:
		return "server_overloaded"
	default:
		return "unknown"
	}
}
