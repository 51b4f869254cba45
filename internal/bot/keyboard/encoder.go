package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// ErrCallbackTooLong is returned when encoded callback data exceeds Telegram's limit.
var ErrCallbackTooLong = errors.New("callback data too long")

// EncodeCallback joins a handler identifier and its payload into callback data.
func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrCallbackTooLong, len(payload), CallbackDataLimitBytes)
	}

	return payload, nil
}

// DecodeCallback splits callback data at the first separator. Data may itself contain separators.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	callbackData = strings.TrimPrefix(callbackData, "\f")
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}
