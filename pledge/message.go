// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pledge

import (
	"encoding/json"
	"fmt"
)

type MessageType string

const (
	MsgTypeCreateAssetClass MessageType = "asset.create_class"
	MsgTypeCreateAsset      MessageType = "asset.create"
	MsgTypeSend             MessageType = "nft.send"
	MsgTypeBurnAsset        MessageType = "asset.burn"
)

// Message is an instruction for the token registry emitted by a successful
// transition. The host delivers messages in order within the same unit of work.
type Message interface {
	Type() MessageType
}

type MsgCreateAssetClass struct {
	ClassID     string `json:"class_id"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	FromAddress string `json:"from_address"`
}

func (MsgCreateAssetClass) Type() MessageType { return MsgTypeCreateAssetClass }

type MsgCreateAsset struct {
	ClassID     string `json:"class_id"`
	ID          string `json:"id"`
	FromAddress string `json:"from_address"`
}

func (MsgCreateAsset) Type() MessageType { return MsgTypeCreateAsset }

type MsgSend struct {
	ClassID  string `json:"class_id"`
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

func (MsgSend) Type() MessageType { return MsgTypeSend }

type MsgBurnAsset struct {
	ClassID     string `json:"class_id"`
	ID          string `json:"id"`
	FromAddress string `json:"from_address"`
}

func (MsgBurnAsset) Type() MessageType { return MsgTypeBurnAsset }

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of a successful unit of work
type Response struct {
	Messages   []Message
	Attributes []Attribute
}

func (r *Response) AddMessage(msgs ...Message) *Response {
	r.Messages = append(r.Messages, msgs...)
	return r
}

func (r *Response) AddAttribute(key string, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the value of the first attribute with the given key
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

type taggedMessage struct {
	Type MessageType     `json:"type"`
	Body json.RawMessage `json:"body"`
}

type responseJSON struct {
	Messages   []taggedMessage `json:"messages"`
	Attributes []Attribute     `json:"attributes"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	tmp := responseJSON{
		Messages:   make([]taggedMessage, 0, len(r.Messages)),
		Attributes: r.Attributes,
	}
	if tmp.Attributes == nil {
		tmp.Attributes = []Attribute{}
	}
	for _, msg := range r.Messages {
		body, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}
		tmp.Messages = append(
			tmp.Messages,
			taggedMessage{Type: msg.Type(), Body: body},
		)
	}
	return json.Marshal(tmp)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var tmp responseJSON
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	r.Attributes = tmp.Attributes
	r.Messages = nil
	for _, tagged := range tmp.Messages {
		var msg Message
		switch tagged.Type {
		case MsgTypeCreateAssetClass:
			msg = &MsgCreateAssetClass{}
		case MsgTypeCreateAsset:
			msg = &MsgCreateAsset{}
		case MsgTypeSend:
			msg = &MsgSend{}
		case MsgTypeBurnAsset:
			msg = &MsgBurnAsset{}
		default:
			return fmt.Errorf("unknown message type: %s", tagged.Type)
		}
		if err := json.Unmarshal(tagged.Body, msg); err != nil {
			return err
		}
		r.Messages = append(r.Messages, derefMessage(msg))
	}
	return nil
}

func derefMessage(msg Message) Message {
	switch v := msg.(type) {
	case *MsgCreateAssetClass:
		return *v
	case *MsgCreateAsset:
		return *v
	case *MsgSend:
		return *v
	case *MsgBurnAsset:
		return *v
	}
	return msg
}
