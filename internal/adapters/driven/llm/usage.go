// Package llm holds helpers shared by the language model provider adapters.
// Each provider lives in its own subpackage.
package llm

import "github.com/tidwall/gjson"

// TokenCount reads an integer usage field from a JSON response body.
// It returns nil when the field is absent or not a number, so unreported
// usage stays unknown instead of becoming zero.
func TokenCount(body []byte, path string) *int {
	res := gjson.GetBytes(body, path)
	if !res.Exists() || res.Type != gjson.Number {
		return nil
	}
	v := int(res.Int())
	return &v
}
