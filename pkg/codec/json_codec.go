package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/openinterx/gomavi/pkg/model"
)

// SuccessCode is the envelope code the backend sends on success.
const SuccessCode = "0000"

// Envelope is the frame every Mavi endpoint wraps its payload in.
type Envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (e *Envelope) OK() bool {
	return e.Code == SuccessCode
}

// JsonCodec decodes Mavi response envelopes into typed models.
type JsonCodec struct {
	// AllowMissingData controls whether a success envelope without a data
	// field decodes into the zero value (true) or is treated as malformed
	// (false). Some endpoints (delete) return no data on success.
	AllowMissingData bool
}

// NewJsonCodec creates a JsonCodec with default settings.
func NewJsonCodec() *JsonCodec {
	return &JsonCodec{
		AllowMissingData: true,
	}
}

// DecodeEnvelope reads and parses a response frame without touching the payload.
func (c *JsonCodec) DecodeEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if env.Code == "" {
		return nil, fmt.Errorf("response envelope has no code field")
	}
	return &env, nil
}

// DecodeData unmarshals the envelope payload into v. A non-success envelope
// is rejected; callers map those through the transport error path first.
func (c *JsonCodec) DecodeData(env *Envelope, v any) error {
	if !env.OK() {
		return fmt.Errorf("cannot decode data of failed response (code=%s)", env.Code)
	}
	if v == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if c.AllowMissingData {
			return nil
		}
		return fmt.Errorf("response envelope has no data field")
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Unmarshal decodes a full response frame from r into v, enforcing the
// success code.
func (c *JsonCodec) Unmarshal(r io.Reader, v any) error {
	env, err := c.DecodeEnvelope(r)
	if err != nil {
		return err
	}
	if !env.OK() {
		return &model.APIError{
			Code:    model.ErrAPIFailure,
			Message: env.Msg,
			APICode: env.Code,
		}
	}
	return c.DecodeData(env, v)
}

// EncodeEnvelope wraps data in a success frame. Used by test fixtures and the
// fake backend; the SDK itself only decodes envelopes.
func EncodeEnvelope(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Envelope{
		Code: SuccessCode,
		Msg:  "success",
		Data: raw,
	})
}

// EncodeErrorEnvelope builds a failure frame with the given business code.
func EncodeErrorEnvelope(code, msg string) ([]byte, error) {
	return json.Marshal(&Envelope{
		Code: code,
		Msg:  msg,
	})
}
