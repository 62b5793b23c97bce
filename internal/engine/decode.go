package engine

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// decodeJSON is the default reply decoder. Numbers stay json.Number so
// integral arguments survive unchanged.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return strconv.Itoa(status) + " " + text
	}
	return strconv.Itoa(status)
}
