package routes

import (
	"encoding/json"
	"strconv"

	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

type PushTokenInput struct {
	Token               string `json:"token" validate:"required"`
	Remove              bool   `json:"remove"`
	AllowsNotifications *bool  `json:"allowsNotifications"`
}

// alterPushTokens adds or removes one token from a JSON token list.
func alterPushTokens(current datatypes.JSON, input PushTokenInput) (datatypes.JSON, error) {
	tokens := []string{}
	if current != nil {
		if err := json.Unmarshal(current, &tokens); err != nil {
			return nil, err
		}
	}

	if input.Remove {
		if i := slices.Index(tokens, input.Token); i >= 0 {
			tokens = slices.Delete(tokens, i, i+1)
		}
	} else if !slices.Contains(tokens, input.Token) {
		tokens = append(tokens, input.Token)
	}

	out, err := json.Marshal(tokens)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}
