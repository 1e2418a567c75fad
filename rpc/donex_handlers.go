package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"donex/core/types"
	"donex/indexer"
	"donex/native/donex"
)

type statusResult struct {
	Height       uint64 `json:"height"`
	Instantiated bool   `json:"instantiated"`
	Contract     string `json:"contract"`
}

type balanceResult struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

type balancesResult struct {
	Address  string      `json:"address"`
	Balances types.Coins `json:"balances"`
}

func expectParams(params []json.RawMessage, min, max int) error {
	if len(params) < min || len(params) > max {
		if min == max {
			return invalidParams(fmt.Sprintf("expected %d parameter(s)", min))
		}
		return invalidParams(fmt.Sprintf("expected between %d and %d parameters", min, max))
	}
	return nil
}

func stringParam(params []json.RawMessage, idx int, name string) (string, error) {
	var value string
	if err := json.Unmarshal(params[idx], &value); err != nil {
		return "", invalidParams(fmt.Sprintf("%s must be a string", name))
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidParams(fmt.Sprintf("%s required", name))
	}
	return value, nil
}

func objectParam(raw json.RawMessage, name string, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return nil
}

// parseFunds accepts either a coin string ("100ucmst,5uatom") or an array of
// {"denom","amount"} objects. null means no funds.
func parseFunds(raw json.RawMessage) (types.Coins, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, invalidParams("invalid funds")
		}
		coins, err := types.ParseCoins(text)
		if err != nil {
			return nil, invalidParams(err.Error())
		}
		return coins, nil
	}
	var coins types.Coins
	if err := json.Unmarshal(trimmed, &coins); err != nil {
		return nil, invalidParams(fmt.Sprintf("invalid funds: %v", err))
	}
	if err := coins.Validate(); err != nil {
		return nil, invalidParams(err.Error())
	}
	return coins, nil
}

func (s *Server) execute(r *http.Request, sender string, msg donex.ExecuteMsg, funds types.Coins) (interface{}, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return s.host.Execute(r.Context(), sender, raw, funds)
}

func (s *Server) query(r *http.Request, msg donex.QueryMsg) (interface{}, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	out, err := s.host.Query(r.Context(), raw)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func (s *Server) handleSubmitSocial(r *http.Request, sender string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 1, 1); err != nil {
		return nil, err
	}
	var msg donex.SubmitSocialMsg
	if err := objectParam(params[0], "submit_social", &msg); err != nil {
		return nil, err
	}
	return s.execute(r, sender, donex.ExecuteMsg{SubmitSocial: &msg}, nil)
}

func (s *Server) handleDonate(r *http.Request, sender string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 2, 2); err != nil {
		return nil, err
	}
	var msg donex.DonateMsg
	if err := objectParam(params[0], "donate", &msg); err != nil {
		return nil, err
	}
	funds, err := parseFunds(params[1])
	if err != nil {
		return nil, err
	}
	return s.execute(r, sender, donex.ExecuteMsg{Donate: &msg}, funds)
}

func (s *Server) handleExecute(r *http.Request, sender string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 1, 2); err != nil {
		return nil, err
	}
	var funds types.Coins
	if len(params) == 2 {
		parsed, err := parseFunds(params[1])
		if err != nil {
			return nil, err
		}
		funds = parsed
	}
	return s.host.Execute(r.Context(), sender, params[0], funds)
}

func (s *Server) handleGetAddressesBySocial(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	query, err := socialQueryParams(params)
	if err != nil {
		return nil, err
	}
	return s.query(r, donex.QueryMsg{GetAddressesBySocial: query})
}

func (s *Server) handleGetSocial(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	query, err := socialQueryParams(params)
	if err != nil {
		return nil, err
	}
	return s.query(r, donex.QueryMsg{GetSocial: query})
}

func socialQueryParams(params []json.RawMessage) (*donex.SocialQuery, error) {
	if err := expectParams(params, 2, 2); err != nil {
		return nil, err
	}
	platform, err := stringParam(params, 0, "platform")
	if err != nil {
		return nil, err
	}
	profileID, err := stringParam(params, 1, "profileId")
	if err != nil {
		return nil, err
	}
	return &donex.SocialQuery{Platform: platform, ProfileID: profileID}, nil
}

func (s *Server) handleGetSocialsByAddress(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 1, 1); err != nil {
		return nil, err
	}
	address, err := stringParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	return s.query(r, donex.QueryMsg{GetSocialsByAddress: &donex.AddressQuery{Address: address}})
}

func (s *Server) handleGetConfig(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 0, 0); err != nil {
		return nil, err
	}
	return s.query(r, donex.QueryMsg{Config: &struct{}{}})
}

func (s *Server) handleQuery(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 1, 1); err != nil {
		return nil, err
	}
	out, err := s.host.Query(r.Context(), params[0])
	if err != nil {
		return nil, err
	}
	return json.RawMessage(out), nil
}

func (s *Server) handleStatus(_ *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 0, 0); err != nil {
		return nil, err
	}
	return statusResult{
		Height:       s.host.Height(),
		Instantiated: s.host.Instantiated(),
		Contract:     s.host.ContractAddress(),
	}, nil
}

func (s *Server) handleGetBalance(_ *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := expectParams(params, 1, 2); err != nil {
		return nil, err
	}
	address, err := stringParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	if len(params) == 1 {
		coins, err := s.host.Balances(address)
		if err != nil {
			return nil, err
		}
		if coins == nil {
			coins = types.Coins{}
		}
		return balancesResult{Address: address, Balances: coins}, nil
	}
	denom, err := stringParam(params, 1, "denom")
	if err != nil {
		return nil, err
	}
	amount, err := s.host.Balance(address, denom)
	if err != nil {
		return nil, err
	}
	return balanceResult{Address: address, Denom: denom, Amount: amount.Dec()}, nil
}

func (s *Server) requireIndex() error {
	if s.index == nil {
		return newError(http.StatusServiceUnavailable, codeMethodNotFound, "indexer disabled", nil)
	}
	return nil
}

func (s *Server) handleListDonations(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := s.requireIndex(); err != nil {
		return nil, err
	}
	if err := expectParams(params, 0, 1); err != nil {
		return nil, err
	}
	var filter indexer.DonationFilter
	if len(params) == 1 {
		if err := objectParam(params[0], "filter", &filter); err != nil {
			return nil, err
		}
	}
	return s.index.ListDonations(r.Context(), filter)
}

func (s *Server) handleLinkHistory(r *http.Request, _ string, params []json.RawMessage) (interface{}, error) {
	if err := s.requireIndex(); err != nil {
		return nil, err
	}
	if err := expectParams(params, 1, 2); err != nil {
		return nil, err
	}
	address, err := stringParam(params, 0, "address")
	if err != nil {
		return nil, err
	}
	var limit int
	if len(params) == 2 {
		if err := json.Unmarshal(params[1], &limit); err != nil {
			return nil, invalidParams("limit must be an integer")
		}
	}
	return s.index.LinkHistory(r.Context(), address, limit)
}
