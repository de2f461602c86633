package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	got, ok := ExtractObject("Sure!\n```json\n{\"genre\":\"Drama\"}\n```\nEnjoy.")
	require.True(t, ok)
	assert.Equal(t, `{"genre":"Drama"}`, got)

	got, ok = ExtractObject(`{"a":{"b":1}} trailing {"c":2}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}} trailing {"c":2}`, got)

	_, ok = ExtractObject("no json here")
	assert.False(t, ok)

	_, ok = ExtractObject("} backwards {")
	assert.False(t, ok)
}

func TestDecodeObjectRejectsBrokenJSON(t *testing.T) {
	_, err := decodeObject(`{"genre": "Drama",}`)
	assert.Error(t, err)
}

func TestYearField(t *testing.T) {
	assert.Equal(t, 2016, *yearField(float64(2016)))
	assert.Equal(t, 1995, *yearField(" 1995 "))
	assert.Nil(t, yearField("unknown"))
	assert.Nil(t, yearField(2016.5))
	assert.Nil(t, yearField(nil))
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"Netflix", "Hulu"}, stringList([]any{"Netflix", 3, "Hulu"}))
	assert.Nil(t, stringList("Netflix"))
}
