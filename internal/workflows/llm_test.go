package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"bare json":       {`{"a":1}`, `{"a":1}`},
		"json fence":      {"```json\n{\"a\":1}\n```", `{"a":1}`},
		"plain fence":     {"```\n{\"a\":1}\n```", `{"a":1}`},
		"whitespace":      {"  {\"a\":1}  ", `{"a":1}`},
		"fenced w/spaces": {"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripFences(tc.in))
		})
	}
}

func TestDecodeModelJSON(t *testing.T) {
	var out map[string]int
	require.NoError(t, DecodeModelJSON("```json\n{\"a\":1}\n```", &out))
	assert.Equal(t, 1, out["a"])

	assert.Error(t, DecodeModelJSON("", &out))
	assert.Error(t, DecodeModelJSON("not json at all", &out))
}
