package core

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// GenericErrorMessage is shown when no readable text can be extracted from an error.
const GenericErrorMessage = "An unexpected error occurred. Please try again."

// lookup order of the error shapes produced by the store, its gateway and the auth provider
var messagePaths = []string{"message", "error_description", "details", "hint", "error.message", "error"}

// ErrorMessage extracts a human readable message out of v.
// v may be a string, an error, raw JSON or any JSON-marshallable value.
func ErrorMessage(v interface{}) string {
	switch e := v.(type) {
	case nil:
		return GenericErrorMessage
	case string:
		return textOrGeneric(e)
	case []byte:
		return jsonMessage(e)
	case json.RawMessage:
		return jsonMessage(e)
	case error:
		var rerr *RemoteError
		if errors.As(e, &rerr) {
			return jsonMessage(rerr.Body)
		}
		var verr *ValidationError
		if errors.As(e, &verr) {
			return textOrGeneric(verr.Error())
		}
		return textOrGeneric(errors.Cause(e).Error())
	default:
		b, err := json.Marshal(e)
		if err != nil {
			return GenericErrorMessage
		}
		return jsonMessage(b)
	}
}

func jsonMessage(b []byte) string {
	if !gjson.ValidBytes(b) {
		return textOrGeneric(string(b))
	}
	res := gjson.ParseBytes(b)
	if res.Type == gjson.String {
		return textOrGeneric(res.Str)
	}
	if !res.IsObject() {
		return GenericErrorMessage
	}
	for _, path := range messagePaths {
		if r := res.Get(path); r.Type == gjson.String {
			if s := strings.TrimSpace(r.Str); s != "" {
				return s
			}
		}
	}
	return GenericErrorMessage
}

func textOrGeneric(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return GenericErrorMessage
}
