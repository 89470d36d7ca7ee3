package ntcall

import (
	"context"
	"encoding/json"
	"slices"
)

// Namespace is the logical service group on the host a request is addressed to.
type Namespace string

// Host namespaces.
const (
	NamespaceNT         Namespace = "ns-ntApi"
	NamespaceFS         Namespace = "ns-FsApi"
	NamespaceOS         Namespace = "ns-OsApi"
	NamespaceWindow     Namespace = "ns-WindowApi"
	NamespaceHotUpdate  Namespace = "ns-HotUpdateApi"
	NamespaceBusiness   Namespace = "ns-BusinessApi"
	NamespaceGlobalData Namespace = "ns-GlobalDataApi"
	NamespaceSkey       Namespace = "ns-SkeyApi"
	NamespaceGroupHome  Namespace = "ns-GroupHomeWork"
	NamespaceEssence    Namespace = "ns-GroupEssence"
	NamespaceNodeStore  Namespace = "ns-NodeStoreApi"
)

// DefaultNamespace is used when a call does not name one.
const DefaultNamespace = NamespaceNT

// Namespaces returns every namespace the host is known to serve.
func Namespaces() []Namespace {
	return []Namespace{
		NamespaceNT, NamespaceFS, NamespaceOS, NamespaceWindow, NamespaceHotUpdate,
		NamespaceBusiness, NamespaceGlobalData, NamespaceSkey, NamespaceGroupHome,
		NamespaceEssence, NamespaceNodeStore,
	}
}

// Valid reports whether n is a known host namespace.
func (n Namespace) Valid() bool {
	return slices.Contains(Namespaces(), n)
}

// Channel is one of the four upstream bus channels.
type Channel string

// Bus channels.
const (
	ChannelUp1 Channel = "IPC_UP_1"
	ChannelUp2 Channel = "IPC_UP_2"
	ChannelUp3 Channel = "IPC_UP_3"
	ChannelUp4 Channel = "IPC_UP_4"
)

// DefaultChannel is used when a call does not name one.
const DefaultChannel = ChannelUp2

// Channels returns the bus channels in order.
func Channels() []Channel {
	return []Channel{ChannelUp1, ChannelUp2, ChannelUp3, ChannelUp4}
}

// Valid reports whether c is one of the four bus channels.
func (c Channel) Valid() bool {
	return slices.Contains(Channels(), c)
}

// EventName builds the request event name: the namespace, a dash, and the
// channel's last character, with "-register" appended for subscription-style
// calls. EventName(NamespaceNT, ChannelUp2, false) is "ns-ntApi-2".
func EventName(ns Namespace, ch Channel, register bool) string {
	name := string(ns)
	if len(ch) > 0 {
		name += "-" + string(ch[len(ch)-1])
	}
	if register {
		name += "-register"
	}
	return name
}

// Host method names.
const (
	MethodActiveChatPreview = "nodeIKernelMsgService/getAioFirstViewLatestMsgsAndAddActiveChat"
	MethodActiveChatHistory = "nodeIKernelMsgService/getMsgsIncludeSelfAndAddActiveChat"
	MethodHistoryMsg        = "nodeIKernelMsgService/getMsgsIncludeSelf"
	MethodGetMultiMsg       = "nodeIKernelMsgService/getMultiMsg"
	MethodDeleteActiveChat  = "nodeIKernelMsgService/deleteActiveChatByUid"
	MethodRecallMsg         = "nodeIKernelMsgService/recallMsg"
	MethodEmojiLike         = "nodeIKernelMsgService/setMsgEmojiLikes"
	MethodSendMsg           = "nodeIKernelMsgService/sendMsg"

	MethodSelfInfo       = "fetchAuthData"
	MethodFileType       = "getFileType"
	MethodFileMD5        = "getFileMd5"
	MethodFileCopy       = "copyFile"
	MethodImageSize      = "getImageSizeFromPath"
	MethodFileSize       = "getFileSize"
	MethodOpenExtraWin   = "openExternalWindow"
	MethodUserDetailInfo = "nodeIKernelProfileService/getUserDetailInfoWithBizInfo"

	MethodGroupMemberScene      = "nodeIKernelGroupService/createMemberListScene"
	MethodGroupMembers          = "nodeIKernelGroupService/getNextMemberList"
	MethodHandleGroupRequest    = "nodeIKernelGroupService/operateSysNotify"
	MethodQuitGroup             = "nodeIKernelGroupService/quitGroup"
	MethodGroupAtAllRemainCount = "nodeIKernelGroupService/getGroupRemainAtTimes"
	MethodKickMember            = "nodeIKernelGroupService/kickMember"
	MethodMuteMember            = "nodeIKernelGroupService/setMemberShutUp"
	MethodMuteGroup             = "nodeIKernelGroupService/setGroupShutUp"
	MethodSetMemberCard         = "nodeIKernelGroupService/modifyMemberCardName"
	MethodSetMemberRole         = "nodeIKernelGroupService/modifyMemberRole"
	MethodSetGroupName          = "nodeIKernelGroupService/modifyGroupName"

	MethodHandleFriendRequest = "nodeIKernelBuddyService/approvalFriendRequest"
)

// Push command names the host emits.
const (
	CommandMsgInfoListUpdate    = "nodeIKernelMsgListener/onMsgInfoListUpdate"
	CommandAddSendMsg           = "nodeIKernelMsgListener/onAddSendMsg"
	CommandUserDetailInfoChange = "nodeIKernelProfileListener/onUserDetailInfoChanged"
)

// Request is the envelope emitted alongside the positional payload.
type Request struct {
	Type       string `json:"type"`
	CallbackID string `json:"callbackId"`
	EventName  string `json:"eventName"`
}

// RequestType is the only envelope type the bridge emits.
const RequestType = "request"

// Emitter hands a request to the host. Implementations must not block on
// the host's reply; the host may reply synchronously from inside Emit.
type Emitter interface {
	Emit(channel Channel, req Request, payload []any) error
}

// Invoker is the call surface consumed by typed API wrappers.
type Invoker interface {
	Invoke(ctx context.Context, method string, args []any, opts ...CallOption) (json.RawMessage, error)
}

// Predicate decides whether a push event answers a particular call. ack is
// the call's stored acknowledgment, or nil when the hook was registered
// before the ack arrived.
type Predicate func(push, ack json.RawMessage) bool

// Convention is the reply convention of a call.
type Convention int

const (
	// SinglePhase calls resolve with the first correlated reply.
	SinglePhase Convention = iota
	// TwoPhase calls expect an ack on the correlation id and then a push
	// event carrying the result.
	TwoPhase
)

func (c Convention) String() string {
	switch c {
	case SinglePhase:
		return "single-phase"
	case TwoPhase:
		return "two-phase"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a call.
type State int

const (
	StatePending State = iota
	StateAwaitingPush
	StateResolved
	StateRejected
	StateTimedOut
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAwaitingPush:
		return "awaiting_push"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	case StateTimedOut:
		return "timed_out"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s >= StateResolved
}
