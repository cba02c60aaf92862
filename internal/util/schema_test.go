package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	type args struct {
		Location string  `json:"location" description:"City name"`
		Days     int     `json:"days,omitempty"`
		Detailed *bool   `json:"detailed,omitempty"`
		Float    float64 `json:"float"`
		Hidden   string  `json:"-"`
		skipped  string  //nolint:unused
	}

	schema := CreateSchema(args{})
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 4)

	location := props["location"].(map[string]any)
	assert.Equal(t, "string", location["type"])
	assert.Equal(t, "City name", location["description"])

	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["detailed"].(map[string]any)["type"])
	assert.Equal(t, "number", props["float"].(map[string]any)["type"])

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"location", "float"}, required)
}

func TestCreateSchemaPointerInput(t *testing.T) {
	type args struct {
		Title string `json:"title"`
	}

	schema := CreateSchema(&args{})
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "title")
}

func TestCreateSchemaNonStruct(t *testing.T) {
	schema := CreateSchema("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestCreateSchemaCollectionTypes(t *testing.T) {
	type args struct {
		Tags   []string       `json:"tags"`
		Lookup map[string]any `json:"lookup"`
	}

	schema := CreateSchema(args{})
	props := schema["properties"].(map[string]any)
	assert.Equal(t, "array", props["tags"].(map[string]any)["type"])
	assert.Equal(t, "object", props["lookup"].(map[string]any)["type"])
}
