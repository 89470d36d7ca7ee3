package ntapi

import (
	"context"

	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
)

// MemberRole is a group member's role.
type MemberRole int

// Member roles as the host numbers them.
const (
	RoleNormal MemberRole = 2
	RoleAdmin  MemberRole = 3
	RoleOwner  MemberRole = 4
)

// ShutUpMember mutes one member for TimeStamp seconds. Zero lifts the mute.
type ShutUpMember struct {
	UID       string `json:"uid"`
	TimeStamp int64  `json:"timeStamp"`
}

// AtAllRemain is how many @all mentions remain today.
type AtAllRemain struct {
	GeneralResult
	CanAtAll                 bool `json:"canAtAll"`
	RemainAtAllCountForUin   int  `json:"remainAtAllCountForUin"`
	RemainAtAllCountForGroup int  `json:"remainAtAllCountForGroup"`
}

// GroupAPI manages groups and their members.
type GroupAPI struct {
	inv ntcall.Invoker
}

// NewGroupAPI creates a GroupAPI.
func NewGroupAPI(inv ntcall.Invoker) *GroupAPI {
	return &GroupAPI{inv: inv}
}

// KickMember removes members from a group. With refuseForever set they
// cannot request to join again.
func (g *GroupAPI) KickMember(ctx context.Context, groupCode string, uids []string, refuseForever bool, reason string) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodKickMember, []any{
		map[string]any{
			"groupCode":     groupCode,
			"kickUids":      uids,
			"refuseForever": refuseForever,
			"kickReason":    reason,
		},
		nil,
	})
}

// MuteMember sets per-member mute durations.
func (g *GroupAPI) MuteMember(ctx context.Context, groupCode string, members []ShutUpMember) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodMuteMember, []any{
		map[string]any{"groupCode": groupCode, "memList": members},
		nil,
	})
}

// MuteGroup toggles the whole-group mute.
func (g *GroupAPI) MuteGroup(ctx context.Context, groupCode string, shutUp bool) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodMuteGroup, []any{
		map[string]any{"groupCode": groupCode, "shutUp": shutUp},
		nil,
	})
}

// SetMemberCard changes a member's group nickname.
func (g *GroupAPI) SetMemberCard(ctx context.Context, groupCode, uid, card string) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodSetMemberCard, []any{
		map[string]any{"groupCode": groupCode, "uid": uid, "cardName": card},
		nil,
	})
}

// SetMemberRole promotes or demotes a member.
func (g *GroupAPI) SetMemberRole(ctx context.Context, groupCode, uid string, role MemberRole) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodSetMemberRole, []any{
		map[string]any{"groupCode": groupCode, "uid": uid, "role": role},
		nil,
	})
}

// SetGroupName renames a group.
func (g *GroupAPI) SetGroupName(ctx context.Context, groupCode, name string) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodSetGroupName, []any{
		map[string]any{"groupCode": groupCode, "groupName": name},
		nil,
	})
}

// QuitGroup leaves a group.
func (g *GroupAPI) QuitGroup(ctx context.Context, groupCode string) error {
	return invokeGeneral(ctx, g.inv, ntcall.MethodQuitGroup, []any{
		map[string]any{"groupCode": groupCode},
		nil,
	})
}

// AtAllRemainCount reports the remaining @all quota for a group.
func (g *GroupAPI) AtAllRemainCount(ctx context.Context, groupCode string) (AtAllRemain, error) {
	res, err := ntcall.InvokeAs[AtAllRemain](ctx, g.inv, ntcall.MethodGroupAtAllRemainCount, []any{
		map[string]any{"groupCode": groupCode},
		nil,
	})
	if err != nil {
		return res, err
	}
	return res, res.err(ntcall.MethodGroupAtAllRemainCount)
}
