package ws

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type MessageType string

const (
	MsgQuestion       MessageType = "question"
	MsgResult         MessageType = "result"
	MsgNoActiveSearch MessageType = "no_active_search"
	MsgCancelled      MessageType = "cancelled"
	MsgProviderError  MessageType = "provider_error"
	MsgError          MessageType = "error"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// QuestionPayload asks the user whether the rocket has launched by the
// given frame. The two tokens encode the yes and no answers for this
// exact frame; the client sends one of them back verbatim in an answer
// command, which is how the frame index round-trips losslessly.
type QuestionPayload struct {
	Frame    int    `json:"frame"`
	FrameURL string `json:"frameUrl"`
	YesToken string `json:"yesToken"`
	NoToken  string `json:"noToken"`
}

type ResultPayload struct {
	Frame    int    `json:"frame"`
	FrameURL string `json:"frameUrl"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ClientCommand is an inbound message from the user's browser.
// Action is one of "start", "answer", "cancel". Video applies to start
// (empty means the configured default video); Token applies to answer.
type ClientCommand struct {
	Action string `json:"action"`
	Video  string `json:"video,omitempty"`
	Token  string `json:"token,omitempty"`
}

// ErrBadAnswerToken reports a token that is not a well-formed answer
// encoding.
var ErrBadAnswerToken = errors.New("ws: malformed answer token")

// EncodeAnswerToken packs a frame index and a yes/no verdict into an
// opaque token of the form "ans:<frame>:<0|1>".
func EncodeAnswerToken(frame int, launched bool) string {
	v := 0
	if launched {
		v = 1
	}
	return fmt.Sprintf("ans:%d:%d", frame, v)
}

// DecodeAnswerToken unpacks a token produced by EncodeAnswerToken.
func DecodeAnswerToken(token string) (frame int, launched bool, err error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != "ans" {
		return 0, false, ErrBadAnswerToken
	}
	frame, err = strconv.Atoi(parts[1])
	if err != nil || frame < 0 {
		return 0, false, ErrBadAnswerToken
	}
	switch parts[2] {
	case "0":
		return frame, false, nil
	case "1":
		return frame, true, nil
	}
	return 0, false, ErrBadAnswerToken
}
