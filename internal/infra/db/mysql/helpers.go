package mysql

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// placeholders returns "?,?,?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// jsonList encodes a string slice, never as JSON null
func jsonList[T ~string](in []T) ([]byte, error) {
	if in == nil {
		in = []T{}
	}
	b, err := json.Marshal(in)
	return b, eris.Wrap(err, "mysql: encode list")
}

func decodeList[T ~string](raw []byte) ([]T, error) {
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "mysql: decode list")
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
