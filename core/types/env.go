package types

import "time"

// BlockInfo describes the logical block a call executes in.
type BlockInfo struct {
	Height  uint64    `json:"height"`
	Time    time.Time `json:"time"`
	ChainID string    `json:"chain_id"`
}

// Env is the execution environment handed to a contract.
type Env struct {
	Block    BlockInfo `json:"block"`
	Contract string    `json:"contract"`
}

// MessageInfo carries the authenticated sender and the funds attached to a call.
type MessageInfo struct {
	Sender string `json:"sender"`
	Funds  Coins  `json:"funds"`
}

// Attribute is a key/value pair reported by a contract call.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BankSend instructs the host to move funds from the contract account.
type BankSend struct {
	ToAddress string `json:"to_address"`
	Amount    Coins  `json:"amount"`
}

// Response is the result of a successful Instantiate or Execute call.
type Response struct {
	Attributes []Attribute `json:"attributes"`
	Messages   []BankSend  `json:"messages,omitempty"`
	Events     []*Event    `json:"events,omitempty"`
	Data       []byte      `json:"data,omitempty"`
}

// NewResponse returns an empty response.
func NewResponse() *Response {
	return &Response{Attributes: []Attribute{}}
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) AddMessage(msg BankSend) *Response {
	r.Messages = append(r.Messages, msg)
	return r
}

func (r *Response) AddEvent(evt *Event) *Response {
	if evt != nil {
		r.Events = append(r.Events, evt)
	}
	return r
}

// Attribute returns the first value recorded for key.
func (r *Response) Attribute(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
