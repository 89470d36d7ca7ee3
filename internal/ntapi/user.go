package ntapi

import (
	"context"

	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
)

// UserDetail is a user's profile.
type UserDetail struct {
	UID      string `json:"uid"`
	UIN      string `json:"uin"`
	Nick     string `json:"nick"`
	LongNick string `json:"longNick"`
	Sex      int    `json:"sex"`
}

// SelfInfo identifies the logged-in account.
type SelfInfo struct {
	UID string `json:"uid"`
	UIN string `json:"uin"`
}

// UserAPI queries user profiles.
type UserAPI struct {
	inv ntcall.Invoker
}

// NewUserAPI creates a UserAPI.
func NewUserAPI(inv ntcall.Invoker) *UserAPI {
	return &UserAPI{inv: inv}
}

// UserDetailInfo fetches uid's profile. The host answers with an ack and
// then a profile change push that may come first, so the hook is installed
// up front and matched on uid.
func (u *UserAPI) UserDetailInfo(ctx context.Context, uid string) (*UserDetail, error) {
	raw, err := u.inv.Invoke(ctx, ntcall.MethodUserDetailInfo,
		[]any{map[string]any{"uid": uid, "bizList": []int{0}}, nil},
		ntcall.WithReplyCommand(ntcall.CommandUserDetailInfoChange),
		ntcall.WithHookBeforeAck(),
		ntcall.WithMatch(ntcall.MatchValue("info.uid", uid)),
	)
	if err != nil {
		return nil, err
	}
	push, err := decodePush[struct {
		Info UserDetail `json:"info"`
	}](ntcall.MethodUserDetailInfo, raw)
	if err != nil {
		return nil, err
	}
	return &push.Info, nil
}

// SelfInfo returns the logged-in account.
func (u *UserAPI) SelfInfo(ctx context.Context) (*SelfInfo, error) {
	info, err := ntcall.InvokeAs[SelfInfo](ctx, u.inv, ntcall.MethodSelfInfo, nil,
		ntcall.WithNamespace(ntcall.NamespaceGlobalData),
		ntcall.WithChannel(ntcall.ChannelUp1),
	)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
