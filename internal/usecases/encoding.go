package usecases

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeHeader renders v as base64 JSON for X-PAYMENT style headers
func EncodeHeader(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeHeader parses a base64 JSON header value into v
func DecodeHeader(value string, v interface{}) error {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
