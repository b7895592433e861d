package model

type Settings struct {
	ReferralEarning float64
	DownlineEarning float64
	ChatsToJoin     []string
	StrictJoin      bool
	BroadcastChat   string
}

type MemberStatus string

const (
	MemberStatusMember        MemberStatus = "member"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusNone          MemberStatus = "none"
)

func (s MemberStatus) Joined() bool {
	switch s {
	case MemberStatusMember, MemberStatusAdministrator, MemberStatusCreator:
		return true
	}
	return false
}
