package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONPlainObject(t *testing.T) {
	got, err := ExtractJSON(`  {"a": 1, "b": "x"}  `)

	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":"x"}`, got)
}

func TestExtractJSONEmbeddedInProse(t *testing.T) {
	text := `好的，分析结果如下：
{"summary": "带{括号}的值", "keywords": ["a", "b"]}
以上就是全部内容。`

	got, err := ExtractJSON(text)

	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"带{括号}的值","keywords":["a","b"]}`, got)
}

func TestExtractJSONSkipsBracesInStrings(t *testing.T) {
	text := `{"note": "literal \" and { inside string", "ok": true}`

	got, err := ExtractJSON(text)

	require.NoError(t, err)
	assert.Contains(t, got, `"ok": true`)
}

func TestExtractJSONCodeBlock(t *testing.T) {
	text := "结果：\n```json\n[1, 2, 3]\n```"

	got, err := ExtractJSON(text)

	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3]", got)
}

func TestExtractJSONRejectsGarbage(t *testing.T) {
	_, err := ExtractJSON("抱歉，我无法完成这个请求。")

	assert.True(t, errors.Is(err, ErrParse))
}

func TestExtractJSONRejectsUnbalanced(t *testing.T) {
	_, err := ExtractJSON(`{"a": 1, "b": `)

	assert.True(t, errors.Is(err, ErrParse))
}
