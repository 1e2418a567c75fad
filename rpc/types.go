package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	coreerrors "donex/core/errors"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError       = -32700
	codeInvalidRequest   = -32600
	codeMethodNotFound   = -32601
	codeInvalidParams    = -32602
	codeServerError      = -32000
	codeUnauthorized     = -32001
	codeNotFound         = -32004
	codeConflict         = -32009
	codeInsufficientFund = -32010
	codeNotReady         = -32011
	codeRateLimited      = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is both the wire error object and a Go error so handlers can
// return it directly.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string { return e.Message }

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func invalidParams(message string) *RPCError {
	return newError(http.StatusBadRequest, codeInvalidParams, message, nil)
}

// toRPCError maps a handler error onto the JSON-RPC error returned to the
// client together with its HTTP status.
func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	switch coreerrors.Classify(err) {
	case coreerrors.KindUnauthorized:
		return newError(http.StatusUnauthorized, codeUnauthorized, "unauthorized", err.Error())
	case coreerrors.KindInvalid:
		return newError(http.StatusBadRequest, codeInvalidParams, "invalid request", err.Error())
	case coreerrors.KindNotFound:
		return newError(http.StatusNotFound, codeNotFound, "not found", err.Error())
	case coreerrors.KindConflict:
		return newError(http.StatusConflict, codeConflict, "conflict", err.Error())
	case coreerrors.KindFunds:
		return newError(http.StatusBadRequest, codeInsufficientFund, "insufficient funds", err.Error())
	case coreerrors.KindState:
		return newError(http.StatusConflict, codeNotReady, "contract state", err.Error())
	default:
		return newError(http.StatusInternalServerError, codeServerError, "internal error", nil)
	}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}
