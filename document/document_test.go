package document

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSegments(t *testing.T) {
	assert.Equal(t, []string{"data", "user-id"}, Path("data.user-id").Segments())
	assert.Nil(t, Path("").Segments())
	assert.Equal(t, Path("data.x"), Path("data").Child("x"))
	assert.Equal(t, Path("x"), Path("").Child("x"))

	assert.True(t, Path("data").IsAncestorOrSelf("data"))
	assert.True(t, Path("data").IsAncestorOrSelf("data.x.y"))
	assert.False(t, Path("data").IsAncestorOrSelf("database"))
	assert.False(t, Path("data.x").IsAncestorOrSelf("data"))
}

func TestGetSet(t *testing.T) {
	doc := Document{
		"pk": String("a"),
		"data": Map(Document{
			"x": Map(Document{"y": Number(1)}),
		}),
	}

	v, ok := doc.Get("data.x.y")
	require.True(t, ok)
	assert.Equal(t, Number(1), v)

	_, ok = doc.Get("data.missing.y")
	assert.False(t, ok)

	_, ok = doc.Get("pk.y") // traversing through a scalar
	assert.False(t, ok)

	doc.Set("data.x.z", String("deep"))
	v, ok = doc.Get("data.x.z")
	require.True(t, ok)
	assert.Equal(t, String("deep"), v)

	// setting through a scalar replaces it with a map
	doc.Set("pk.sub", Bool(true))
	v, ok = doc.Get("pk.sub")
	require.True(t, ok)
	assert.Equal(t, Bool(true), v)
}

func TestValueEqualAndClone(t *testing.T) {
	orig := Map(Document{
		"s":    String("x"),
		"n":    Number(3),
		"list": List(Number(1), String("two")),
		"set":  StringSet("a", "b"),
		"bin":  Binary([]byte{0x1, 0x2}),
	})

	clone := orig.Clone()
	require.True(t, orig.Equal(clone))

	// mutating the clone must not touch the original
	m, ok := clone.MapValue()
	require.True(t, ok)
	m["s"] = String("changed")
	assert.False(t, orig.Equal(clone))

	v, ok := orig.MapValue()
	require.True(t, ok)
	s, _ := v["s"].StringValue()
	assert.Equal(t, "x", s)

	assert.False(t, String("1").Equal(Number(1)))
	assert.True(t, Null().Equal(Null()))
}

func TestNumberFormatting(t *testing.T) {
	n, _ := Number(42).NumberValue()
	assert.Equal(t, "42", n)

	neg, _ := Number(int64(-7)).NumberValue()
	assert.Equal(t, "-7", neg)

	u, _ := Number(uint64(18446744073709551615)).NumberValue()
	assert.Equal(t, "18446744073709551615", u)

	f, _ := Number(1.5).NumberValue()
	assert.Equal(t, "1.5", f)

	f32, _ := Number(float32(0.25)).NumberValue()
	assert.Equal(t, "0.25", f32)

	exact, _ := NumberString("3.141592653589793238").NumberValue()
	assert.Equal(t, "3.141592653589793238", exact)
}

func TestCodecRoundTrip(t *testing.T) {
	doc := Document{
		"pk":   String("a"),
		"n":    Number(12),
		"ok":   Bool(true),
		"nil":  Null(),
		"bin":  Binary([]byte("raw")),
		"tags": StringSet("x", "y"),
		"list": List(Number(1), Map(Document{"nested": String("v")})),
		"data": Map(Document{"x": Map(Document{"y": Number(2)})}),
	}

	item := doc.Item()
	assert.Equal(t, &types.AttributeValueMemberS{Value: "a"}, item["pk"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "12"}, item["n"])

	back, err := FromItem(item)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back))
}

func TestFromStruct(t *testing.T) {
	type profile struct {
		Name string `dynamodbav:"name"`
		Age  int    `dynamodbav:"age"`
	}
	doc, err := FromStruct(profile{Name: "ada", Age: 36})
	require.NoError(t, err)

	name, ok := doc.Get("name")
	require.True(t, ok)
	assert.Equal(t, String("ada"), name)

	var out profile
	require.NoError(t, doc.Unmarshal(&out))
	assert.Equal(t, profile{Name: "ada", Age: 36}, out)
}
