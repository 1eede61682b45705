package rpc

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"fluxpay/internal/domain"
)

// Inbound is a decoded request as a node receives it. Req holds the exact
// signed bytes of the req array.
type Inbound struct {
	ID        uint64
	Method    string
	Params    json.RawMessage
	Timestamp uint64
	Req       json.RawMessage
	Sigs      [][]byte
}

// ParseRequest decodes a request frame.
func ParseRequest(raw []byte) (Inbound, error) {
	var f struct {
		Req json.RawMessage `json:"req"`
		Sig []string        `json:"sig"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return Inbound{}, errors.Wrap(err, "decode request frame")
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(f.Req, &parts); err != nil || len(parts) < 3 {
		return Inbound{}, errors.New("malformed req array")
	}
	in := Inbound{Req: f.Req, Params: parts[2]}
	var ok bool
	if in.ID, ok = parseUint(parts[0]); !ok {
		return Inbound{}, errors.New("malformed request id")
	}
	if err := json.Unmarshal(parts[1], &in.Method); err != nil {
		return Inbound{}, errors.New("malformed method")
	}
	if len(parts) > 3 {
		in.Timestamp, _ = parseUint(parts[3])
	}
	for _, s := range f.Sig {
		b, err := hexutil.Decode(s)
		if err != nil {
			return Inbound{}, errors.Wrap(err, "malformed signature")
		}
		in.Sigs = append(in.Sigs, b)
	}
	return in, nil
}

// EncodeResponse builds a res frame signed by signer.
func EncodeResponse(id uint64, method string, result any, ts uint64, signer domain.MessageSigner) ([]byte, error) {
	res, err := json.Marshal([]any{id, method, result, ts})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s response", method)
	}
	sig, err := signer.Sign(res)
	if err != nil {
		return nil, errors.Wrapf(err, "sign %s response", method)
	}
	return json.Marshal(struct {
		Res json.RawMessage `json:"res"`
		Sig []string        `json:"sig"`
	}{Res: res, Sig: []string{hexutil.Encode(sig)}})
}

// EncodeError builds an error frame answering request id.
func EncodeError(id uint64, message string, ts uint64, signer domain.MessageSigner) ([]byte, error) {
	return EncodeResponse(id, MethodError, map[string]string{"error": message}, ts, signer)
}
