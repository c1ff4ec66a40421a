package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"int64", int64(-100), "-100"},
		{"float", 1.25, "1.25"},
		{"bool", false, "false"},
		{"bytes", []byte("hi"), `"aGk="`},
		{"empty row", Row{}, "{}"},
		{"rows", []Row{{"b": int64(1), "a": nil}}, `[{"a":null,"b":1}]`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_Structs(t *testing.T) {
	type step struct {
		Op    string `json:"op"`
		Count int    `json:"count"`
		Rows  []Row  `json:"rows"`
	}

	got, err := MarshalCanonical(step{Op: "create", Count: 1, Rows: []Row{{"name": "a", "id": int64(1)}}})
	require.NoError(t, err)
	assert.Equal(t, `{"count":1,"op":"create","rows":[{"id":1,"name":"a"}]}`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalises to U+00E9.
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	// A literal backslash followed by the text u2028 stays escaped.
	got, err = MarshalCanonical(`a\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(got))
}

func TestMarshalCanonical_RejectsNaN(t *testing.T) {
	zero := 0.0
	_, err := MarshalCanonical(zero / zero)
	require.Error(t, err)
}
