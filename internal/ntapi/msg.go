package ntapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
	"github.com/tidwall/gjson"
)

// ChatType identifies the kind of conversation a peer is.
type ChatType int

// Chat types.
const (
	ChatTypeFriend  ChatType = 1
	ChatTypeGroup   ChatType = 2
	ChatTypeTempC2C ChatType = 100
)

// SendStatusSuccess is the sendStatus of a message the host delivered.
const SendStatusSuccess = 2

// Peer addresses a conversation.
type Peer struct {
	ChatType ChatType `json:"chatType"`
	PeerUID  string   `json:"peerUid"`
	GuildID  string   `json:"guildId"`
}

// Message is the host's record of a message.
type Message struct {
	MsgID      string            `json:"msgId"`
	MsgSeq     string            `json:"msgSeq"`
	MsgTime    string            `json:"msgTime"`
	ChatType   ChatType          `json:"chatType"`
	PeerUID    string            `json:"peerUid"`
	SenderUID  string            `json:"senderUid"`
	SendStatus int               `json:"sendStatus"`
	Elements   []json.RawMessage `json:"elements"`
}

// MsgAPI sends and manages messages.
type MsgAPI struct {
	inv ntcall.Invoker
}

// NewMsgAPI creates a MsgAPI.
func NewMsgAPI(inv ntcall.Invoker) *MsgAPI {
	return &MsgAPI{inv: inv}
}

// SendMsg sends elements to peer and waits for the host to report the
// message as sent. Sending can take a while for media, so callers pass a
// timeout; zero uses the bridge default.
//
// The host acks the request and later pushes an updated message list. The
// hook is registered before the request goes out because the list update
// can arrive ahead of the ack.
//
// The push carries no key tied to the request, so the match is on peer and
// send status only. Concurrent sends to the same peer may all resolve with
// whichever sent message is pushed first; serialize sends per peer when the
// returned message matters.
func (m *MsgAPI) SendMsg(ctx context.Context, peer Peer, elements []any, timeout time.Duration) (*Message, error) {
	args := []any{
		map[string]any{
			"msgId":             "0",
			"peer":              peer,
			"msgElements":       elements,
			"msgAttributeInfos": map[string]any{},
		},
		nil,
	}

	raw, err := m.inv.Invoke(ctx, ntcall.MethodSendMsg, args,
		ntcall.WithReplyCommand(ntcall.CommandMsgInfoListUpdate),
		ntcall.WithHookBeforeAck(),
		ntcall.WithMatch(func(push, _ json.RawMessage) bool {
			_, ok := sentMessage(push, peer.PeerUID)
			return ok
		}),
		ntcall.WithTimeout(timeout),
	)
	if err != nil {
		return nil, err
	}

	msg, ok := sentMessage(raw, peer.PeerUID)
	if !ok {
		return nil, errors.Wrap(errors.ErrInvalidInput, "sendMsg push carries no sent message")
	}
	var out Message
	if err := json.Unmarshal([]byte(msg.Raw), &out); err != nil {
		return nil, errors.Wrap(err, "decode sent message")
	}
	return &out, nil
}

// sentMessage finds the first message in a msgList push that went to peerUID
// and was delivered.
func sentMessage(push json.RawMessage, peerUID string) (gjson.Result, bool) {
	var found gjson.Result
	gjson.GetBytes(push, "msgList").ForEach(func(_, msg gjson.Result) bool {
		if msg.Get("peerUid").String() == peerUID && msg.Get("sendStatus").Int() == SendStatusSuccess {
			found = msg
			return false
		}
		return true
	})
	return found, found.Exists()
}

// RecallMsg withdraws messages previously sent to peer.
func (m *MsgAPI) RecallMsg(ctx context.Context, peer Peer, msgIDs []string) error {
	return invokeGeneral(ctx, m.inv, ntcall.MethodRecallMsg, []any{
		map[string]any{"peer": peer, "msgIds": msgIDs},
		nil,
	})
}

// ActivateChat opens the conversation on the host side, which the host
// requires before it delivers some events for that peer. It returns the
// latest messages in the conversation.
func (m *MsgAPI) ActivateChat(ctx context.Context, peer Peer) ([]Message, error) {
	type reply struct {
		GeneralResult
		MsgList []Message `json:"msgList"`
	}
	res, err := ntcall.InvokeAs[reply](ctx, m.inv, ntcall.MethodActiveChatPreview, []any{
		map[string]any{"peer": peer, "cnt": 20},
		nil,
	})
	if err != nil {
		return nil, err
	}
	if err := res.err(ntcall.MethodActiveChatPreview); err != nil {
		return nil, err
	}
	return res.MsgList, nil
}
