package model

import "time"

type User struct {
	ID               int64
	TelegramID       int64
	Username         string
	FirstName        string
	LastName         string
	ReferralCode     string
	ReferrerID       *int64
	Earnings         float64
	DownlineEarnings float64
	TotalEarnings    float64
	CreatedAt        time.Time
}

type ReferralStats struct {
	Count            int
	Earnings         float64
	DownlineEarnings float64
	Code             string
}

// Registration is the outcome of a first-contact registration. Referrer is set
// only when this call created the account and credited a referrer.
type Registration struct {
	User       *User
	Created    bool
	Referrer   *User
	Credit     float64
	Downline   *User
	DownCredit float64
}

// ApplyDelta adds delta to an earnings value, flooring the result at zero.
func ApplyDelta(current, delta float64) float64 {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}

// ReferralLink is the deep link that opens the bot with /start <code>.
func ReferralLink(botName, code string) string {
	return "https://t.me/" + botName + "?start=" + code
}
