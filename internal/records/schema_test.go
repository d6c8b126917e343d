package records

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeCreateDropsUnknownKeysAndJoinsLists(t *testing.T) {
	row, err := MemorySchema.ShapeCreate(map[string]any{
		"content":   "Sunset walk",
		"tags":      []string{" beach ", "", "friends"},
		"reactions": []any{"❤️"},
		"userId":    "1",
		"favorite":  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Sunset walk", row["content"])
	assert.Equal(t, "beach,friends", row["Tags"])
	assert.Equal(t, "❤️", row["reactions"])
	assert.Equal(t, int64(1), row["userId"])
	assert.NotContains(t, row, "favorite")
	assert.NotContains(t, row, "tags")
}

func TestShapeUpdateDropsCreateOnlyAndHonorsAllowList(t *testing.T) {
	row, err := MemorySchema.ShapeUpdate(map[string]any{
		"timestamp": time.Now(),
		"mood":      "calm",
		"content":   "edited",
	})
	require.NoError(t, err)
	assert.NotContains(t, row, "timestamp")
	assert.Equal(t, "calm", row["mood"])

	row, err = UserSchema.ShapeUpdate(map[string]any{
		"xpPoints": 10,
		"email":    "x@example.com",
	}, "xpPoints")
	require.NoError(t, err)
	assert.Equal(t, Row{"xpPoints": int64(10)}, row)
}

func TestShapeRejectsNonNumericIdentifier(t *testing.T) {
	_, err := MemorySchema.ShapeCreate(map[string]any{"userId": "abc"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "User", verr.Field)
	assert.True(t, IsValidation(err))
}

func TestShapeRejectsFractionalInt(t *testing.T) {
	_, err := UserSchema.ShapeCreate(map[string]any{"xpPoints": 12.5})
	assert.True(t, IsValidation(err))
}

func TestDecodeParsesWireValues(t *testing.T) {
	rec, err := ChatMessageSchema.Decode(Row{
		"Id":               float64(7),
		"content":          "hi",
		"timestamp":        "2024-03-01T10:00:00.000Z",
		"contextMemoryIds": "3, 5,",
		"Tags":             "",
		"CreatedBy":        "someone",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "hi", rec.Str("content"))
	assert.Equal(t, []int64{3, 5}, rec.IntList("contextMemoryIds"))
	assert.Equal(t, []string{}, rec.List("Tags"))
	assert.True(t, rec.Time("timestamp").Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.False(t, rec.Has("CreatedBy"))
}

func TestSplitListNeverNil(t *testing.T) {
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, []string{"a", "b"}, SplitList("a,,b "))
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	earlier, err := encodeValue(Field{Name: "t", Type: TypeTime}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	later, err := encodeValue(Field{Name: "t", Type: TypeTime}, "2024-01-02T03:04:05.5Z")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-02T03:04:05.000Z", earlier)
	assert.Equal(t, "2024-01-02T03:04:05.500Z", later)
	assert.Less(t, earlier.(string), later.(string))
}
