package ir

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
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"int64", int64(-100), "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"empty object", map[string]any{}, "{}"},
		{"string map", map[string]string{"b": "2", "a": "1"}, `{"a":"1","b":"2"}`},
		{"mixed array", []any{int64(1), "two", false}, `[1,"two",false]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := map[string]any{
		"z": map[string]any{"b": 1, "a": 2},
		"a": 3,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(map[string]any{"message": "<b>Tom & Jerry</b>"})
	require.NoError(t, err)

	assert.Equal(t, `{"message":"<b>Tom & Jerry</b>"}`, string(result))
	assert.NotContains(t, string(result), `\u003c`)
	assert.NotContains(t, string(result), `\u0026`)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"null", nil, "null"},
		{"float", 1.5, "floats"},
		{"nested float", map[string]any{"x": []any{2.5}}, "floats"},
		{"nested null", []any{"a", nil}, "null"},
		{"struct", struct{}{}, "unsupported type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	value1, err := MarshalCanonical(composed)
	require.NoError(t, err)
	value2, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, value1, value2)

	key1, err := MarshalCanonical(map[string]any{composed: 1})
	require.NoError(t, err)
	key2, err := MarshalCanonical(map[string]any{decomposed: 1})
	require.NoError(t, err)
	assert.Equal(t, key1, key2, "object keys are normalized too")
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
		{"literal escape text", `is \u2028`, `"is \\u2028"`},
		{"literal and actual", "lit \\u2029 and \u2029", "\"lit \\\\u2029 and \u2029\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	cases := []any{
		"hello",
		int64(42),
		[]any{int64(1), "two", true},
		map[string]any{
			"command": "CreateRecord",
			"args":    map[string]any{"values": []any{map[string]any{"property": "lastname", "value": "Doe"}}},
			"seq":     int64(1),
		},
	}

	for _, original := range cases {
		first, err := MarshalCanonical(original)
		require.NoError(t, err)

		decoded, err := Unmarshal(first)
		require.NoError(t, err)

		second, err := MarshalCanonical(decoded)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	}
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	_, err := Unmarshal([]byte(`{"a":1.5}`))
	assert.ErrorContains(t, err, "not an integer")

	_, err = Unmarshal([]byte(`[null]`))
	assert.ErrorContains(t, err, "null")
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"a":1,"b":"test"}`)
	f.Add(`[1,2,3]`)
	f.Add(`"hello"`)
	f.Add(`{"nested":{"deep":{"value":123}}}`)

	f.Fuzz(func(t *testing.T, input string) {
		val, err := Unmarshal([]byte(input))
		if err != nil {
			t.Skip()
		}
		first, err := MarshalCanonical(val)
		if err != nil {
			t.Skip()
		}
		val2, err := Unmarshal(first)
		require.NoError(t, err)
		second, err := MarshalCanonical(val2)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
