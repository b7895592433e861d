package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCommandTrigger(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "/start", want: "start"},
		{raw: "/Start@RefBot", want: "start"},
		{raw: "  /Get Bonus  ", want: "get_bonus"},
		{raw: "promo", want: "promo"},
		{raw: "my  big\tmenu", want: "my_big_menu"},
		{raw: "/", want: ""},
		{raw: "/promo now", want: "promo_now"},
		{raw: "/Promo@RefBot now", want: "promo_now"},
		{raw: "/promo@refbot", want: "promo"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCommandTrigger(tt.raw))
		})
	}
}

func TestNormalizeTextTrigger(t *testing.T) {
	assert.Equal(t, "get bonus", NormalizeTextTrigger("  Get Bonus "))
	assert.Equal(t, "📢 news", NormalizeTextTrigger("📢 News"))
}

func TestNormalizeTrigger(t *testing.T) {
	assert.Equal(t, "get_bonus", NormalizeTrigger("/Get Bonus", true))
	assert.Equal(t, "/get bonus", NormalizeTrigger("/Get Bonus", false))
}

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name           string
		current, delta float64
		want           float64
	}{
		{name: "credit", current: 5, delta: 2.5, want: 7.5},
		{name: "debit", current: 5, delta: -2, want: 3},
		{name: "floored", current: 5, delta: -8, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyDelta(tt.current, tt.delta))
		})
	}
}

func TestMemberStatus_Joined(t *testing.T) {
	assert.True(t, MemberStatusMember.Joined())
	assert.True(t, MemberStatusCreator.Joined())
	assert.True(t, MemberStatusAdministrator.Joined())
	assert.False(t, MemberStatusNone.Joined())
	assert.False(t, MemberStatus("left").Joined())
	assert.False(t, MemberStatus("kicked").Joined())
}

func TestMarkup_Empty(t *testing.T) {
	var nilMarkup *Markup
	assert.True(t, nilMarkup.Empty())
	assert.True(t, (&Markup{}).Empty())
	assert.False(t, (&Markup{RemoveKeyboard: true}).Empty())
	assert.False(t, (&Markup{Keyboard: [][]string{{"A"}}}).Empty())
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t, "https://t.me/refbot?start=abcde", ReferralLink("refbot", "abcde"))
}
