package ui

import (
	"errors"
	"strconv"
	"strings"
)

const (
	MaxCallbackDataLen = 64
	// RoundPrefixLen is how much of a round id a choice button carries.
	RoundPrefixLen = 8
)

type ActionKind string

const (
	ActionChoice      ActionKind = "c"
	ActionNext        ActionKind = "n"
	ActionResetAsk    ActionKind = "r"
	ActionResetCancel ActionKind = "x"
)

// Action is a decoded inline button press.
type Action struct {
	Kind        ActionKind
	RoundPrefix string
	Choice      int
}

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidFormat       = errors.New("invalid callback format")
	errInvalidRound        = errors.New("invalid callback round")
	errInvalidChoice       = errors.New("invalid callback choice")
	errCallbackDataTooLong = errors.New("callback data too long")
)

// RoundPrefix shortens a round id to what fits in callback data. Hyphens are
// dropped so uuids keep their entropy in the prefix.
func RoundPrefix(roundID string) string {
	compact := strings.ReplaceAll(roundID, "-", "")
	if len(compact) > RoundPrefixLen {
		compact = compact[:RoundPrefixLen]
	}
	return compact
}

func BuildChoiceCallback(roundID string, choice int) (string, error) {
	prefix := RoundPrefix(roundID)
	if !isRoundPrefix(prefix) {
		return "", errInvalidRound
	}
	if choice != 0 && choice != 1 {
		return "", errInvalidChoice
	}
	return validateCallbackData(string(ActionChoice) + ":" + prefix + ":" + strconv.Itoa(choice))
}

func BuildNextCallback() (string, error) {
	return validateCallbackData(string(ActionNext) + ":")
}

// BuildResetCallback encodes the answer to the reset confirmation.
func BuildResetCallback(confirm bool) (string, error) {
	if confirm {
		return validateCallbackData(string(ActionResetAsk) + ":")
	}
	return validateCallbackData(string(ActionResetCancel) + ":")
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidFormat
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	parts := strings.Split(data, ":")
	switch ActionKind(parts[0]) {
	case ActionNext, ActionResetAsk, ActionResetCancel:
		if len(parts) != 2 || parts[1] != "" {
			return Action{}, errInvalidFormat
		}
		return Action{Kind: ActionKind(parts[0])}, nil
	case ActionChoice:
		if len(parts) != 3 {
			return Action{}, errInvalidFormat
		}
		if !isRoundPrefix(parts[1]) {
			return Action{}, errInvalidRound
		}
		switch parts[2] {
		case "0":
			return Action{Kind: ActionChoice, RoundPrefix: parts[1], Choice: 0}, nil
		case "1":
			return Action{Kind: ActionChoice, RoundPrefix: parts[1], Choice: 1}, nil
		default:
			return Action{}, errInvalidChoice
		}
	default:
		return Action{}, errInvalidPrefix
	}
}

// MatchesRound reports whether a choice button belongs to roundID.
func (a Action) MatchesRound(roundID string) bool {
	return a.Kind == ActionChoice && a.RoundPrefix != "" && a.RoundPrefix == RoundPrefix(roundID)
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidFormat
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isRoundPrefix(value string) bool {
	if value == "" || len(value) > RoundPrefixLen {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
			return false
		}
	}
	return true
}
