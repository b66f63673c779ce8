/*
Package types holds the domain types shared across the alert pipeline.
*/
package types

// Tier is the severity classification of an announcement. It is derived from
// the announcement text on every cycle and never persisted.
type Tier string

const (
	TierCritical  Tier = "CRITICAL"
	TierImportant Tier = "IMPORTANT"
	TierRoutine   Tier = "ROUTINE"
)

// Channel identifies a watcher's registered delivery channel.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

// Announcement is one corporate-disclosure item from the exchange feed.
// Identity is SeqID; the struct is immutable once fetched.
type Announcement struct {
	SeqID         int64
	Symbol        string
	Desc          string
	AttachmentURL string
	Date          string
	CompanyName   string
}

// Watcher is a verified user's enabled subscription to a symbol, together
// with the contact details for their registered channel.
type Watcher struct {
	UserID         int64
	Symbol         string
	Channel        Channel
	PhoneNumber    string
	TelegramChatID int64
	Email          string
}

// DeliveryResult reports the outcome of a single delivery attempt.
// Failures are soft: the router records the reason instead of returning an
// error, so one bad address never stops the remaining watchers.
type DeliveryResult struct {
	OK  bool
	Err string
}
