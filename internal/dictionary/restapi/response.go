package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
)

// Envelope wraps every response body of the dictionary service.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (e Envelope) ok() bool {
	return e.Code == 0 || e.Code == 200
}

// DictData is a dictionary entry as sent by the service.
type DictData struct {
	DictType     string      `json:"dictType"`
	DictLabel    string      `json:"dictLabel"`
	DictValue    ScalarValue `json:"dictValue"`
	DictSort     *int        `json:"dictSort,omitempty"`
	Status       string      `json:"status,omitempty"`
	ParentValue  ScalarValue `json:"parentValue,omitempty"`
	RelatedValue ScalarValue `json:"relatedValue,omitempty"`
}

// ToEntry converts the wire form into a dictionary.Entry. code is used when dictType is empty.
func (d DictData) ToEntry(code string) dictionary.Entry {
	if d.DictType != "" {
		code = d.DictType
	}
	return dictionary.Entry{
		Code:         code,
		Label:        d.DictLabel,
		Value:        string(d.DictValue),
		SortOrder:    d.DictSort,
		Status:       d.Status,
		ParentValue:  string(d.ParentValue),
		RelatedValue: string(d.RelatedValue),
	}
}

// ToEntries converts a list of DictData of one dictionary.
func ToEntries(code string, data []DictData) []dictionary.Entry {
	entries := make([]dictionary.Entry, 0, len(data))
	for _, d := range data {
		entries = append(entries, d.ToEntry(code))
	}
	return entries
}

// ScalarValue accepts either a JSON string or a JSON number and keeps its text.
type ScalarValue string

func (v *ScalarValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("json.Unmarshal > %w", err)
		}
		*v = ScalarValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		if b, boolErr := strconv.ParseBool(string(data)); boolErr == nil {
			*v = ScalarValue(strconv.FormatBool(b))
			return nil
		}
		return fmt.Errorf("json.Unmarshal > %w", err)
	}
	*v = ScalarValue(n.String())
	return nil
}

// decodeKeyed decodes a {code: [DictData]} object. The second result is false
// when data is not a JSON object.
func decodeKeyed(data json.RawMessage) (map[string][]dictionary.Entry, bool) {
	var raw map[string][]DictData
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string][]dictionary.Entry{}, false
	}
	result := make(map[string][]dictionary.Entry, len(raw))
	for code, data := range raw {
		result[code] = ToEntries(code, data)
	}
	return result, true
}
