package bitget

import (
	"fmt"
	"strconv"
	"strings"
)

const successCode = "00000"

// APIError is a well-formed upstream response whose envelope reports a
// failure. The exchange message is preserved for the caller.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bitget api error code %s", e.Code)
	}
	return fmt.Sprintf("bitget api error code %s: %s", e.Code, e.Message)
}

// checkEnvelope validates the {code, msg, data} envelope. A missing code is
// treated as malformed; anything but the success code becomes an APIError.
func checkEnvelope(payload any) error {
	env, ok := payload.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected response shape %T", payload)
	}
	code := stringFromAny(env["code"])
	if code == "" {
		return fmt.Errorf("response missing envelope code")
	}
	if code != successCode {
		return &APIError{Code: code, Message: stringFromAny(env["msg"])}
	}
	return nil
}

// OrderIDFromResponse digs the order id out of an acknowledgement,
// tolerating nesting and the id key variants gateway versions have used.
func OrderIDFromResponse(payload any) string {
	return orderIDFromAny(payload)
}

func orderIDFromAny(v any) string {
	switch val := v.(type) {
	case map[string]any:
		for _, key := range []string{"orderId", "orderID", "oid", "id"} {
			if id := stringFromAny(val[key]); id != "" {
				return id
			}
		}
		for _, nested := range val {
			if id := orderIDFromAny(nested); id != "" {
				return id
			}
		}
	case []any:
		for _, nested := range val {
			if id := orderIDFromAny(nested); id != "" {
				return id
			}
		}
	}
	return ""
}

func stringFromAny(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
