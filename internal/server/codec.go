package server

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONCodec is a connect codec for plain Go structs.
// It replaces the protobuf JSON codec registered under the same name.
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

// Unmarshal keeps numbers as json.Number so that dictionary values like 1 and "1" resolve alike.
func (JSONCodec) Unmarshal(data []byte, message any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(message); err != nil {
		return fmt.Errorf("json.Decode > %w", err)
	}
	return nil
}
