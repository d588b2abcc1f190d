package expr

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asayed18/tynamo/document"
)

var identityNames = []string{"pk", "sk"}

func TestCompileUpdate(t *testing.T) {
	t.Run("flat record", func(t *testing.T) {
		doc := document.Document{
			"pk":   document.String("a"),
			"sk":   document.String("1"),
			"age":  document.Number(36),
			"name": document.String("ada"),
		}

		c, err := CompileUpdate(doc, identityNames, All())
		require.NoError(t, err)

		assert.Equal(t, "SET #age = :value0, #name = :value1", c.Update)
		assert.Equal(t, map[string]string{"#age": "age", "#name": "name"}, c.Names)
		assert.Equal(t, map[string]types.AttributeValue{
			":value0": &types.AttributeValueMemberN{Value: "36"},
			":value1": &types.AttributeValueMemberS{Value: "ada"},
		}, c.Values)
	})

	t.Run("nested record shares one counter", func(t *testing.T) {
		doc := document.Document{
			"pk": document.String("a"),
			"data": document.Map(document.Document{
				"address": document.Map(document.Document{
					"city": document.String("berlin"),
					"zip":  document.String("10115"),
				}),
				"age": document.Number(36),
			}),
			"zz": document.Bool(true),
		}

		c, err := CompileUpdate(doc, identityNames, All())
		require.NoError(t, err)

		assert.Equal(t,
			"SET #data.#address.#city = :value0, #data.#address.#zip = :value1, #data.#age = :value2, #zz = :value3",
			c.Update)
		assert.Equal(t, map[string]string{
			"#data":    "data",
			"#address": "address",
			"#city":    "city",
			"#zip":     "zip",
			"#age":     "age",
			"#zz":      "zz",
		}, c.Names)
	})

	t.Run("segment sanitization", func(t *testing.T) {
		doc := document.Document{
			"data": document.Map(document.Document{
				"user-id": document.String("u1"),
			}),
		}

		c, err := CompileUpdate(doc, nil, All())
		require.NoError(t, err)

		assert.Equal(t, "SET #data.#user_id = :value0", c.Update)
		assert.Equal(t, map[string]string{"#data": "data", "#user_id": "user-id"}, c.Names)
	})

	t.Run("colliding sanitized segments get distinct placeholders", func(t *testing.T) {
		doc := document.Document{
			"user-id": document.String("a"),
			"user_id": document.String("b"),
		}

		c, err := CompileUpdate(doc, nil, All())
		require.NoError(t, err)

		assert.Equal(t, "SET #user_id = :value0, #user_id_2 = :value1", c.Update)
		assert.Equal(t, map[string]string{"#user_id": "user-id", "#user_id_2": "user_id"}, c.Names)
	})

	t.Run("identity attributes never assigned", func(t *testing.T) {
		doc := document.Document{
			"pk": document.String("a"),
			"sk": document.String("1"),
		}

		_, err := CompileUpdate(doc, identityNames, All())
		assert.ErrorIs(t, err, ErrNoAssignments)
	})

	t.Run("null leaves are no-ops", func(t *testing.T) {
		doc := document.Document{
			"gone": document.Null(),
			"kept": document.String("v"),
		}

		c, err := CompileUpdate(doc, nil, All())
		require.NoError(t, err)
		assert.Equal(t, "SET #kept = :value0", c.Update)
	})

	t.Run("empty record", func(t *testing.T) {
		_, err := CompileUpdate(document.Document{}, identityNames, All())
		assert.ErrorIs(t, err, ErrNoAssignments)
	})

	t.Run("insert only wraps if_not_exists", func(t *testing.T) {
		doc := document.Document{
			"data": document.Map(document.Document{
				"created_at": document.String("2023-10-01"),
				"updated_at": document.String("2023-10-02"),
			}),
		}

		c, err := CompileUpdate(doc, nil, All().InsertOnly("data.created_at"))
		require.NoError(t, err)

		assert.Equal(t,
			"SET #data.#created_at = if_not_exists(#data.#created_at, :value0), #data.#updated_at = :value1",
			c.Update)
	})
}

func TestCompileUpdatePolicies(t *testing.T) {
	doc := document.Document{
		"pk": document.String("a"),
		"data": document.Map(document.Document{
			"firstname": document.String("ada"),
			"lastname":  document.String("lovelace"),
			"address": document.Map(document.Document{
				"city": document.String("berlin"),
			}),
		}),
		"counter": document.Number(1),
	}

	t.Run("only paths selects a deep leaf", func(t *testing.T) {
		c, err := CompileUpdate(doc, identityNames, OnlyPaths("data.firstname"))
		require.NoError(t, err)
		assert.Equal(t, "SET #data.#firstname = :value0", c.Update)
	})

	t.Run("only paths matches leaves exactly, never by ancestor", func(t *testing.T) {
		c, err := CompileUpdate(doc, identityNames, OnlyPaths("data.address.city"))
		require.NoError(t, err)
		assert.Equal(t, "SET #data.#address.#city = :value0", c.Update)

		// naming the parent map does not pull in the leaves beneath it
		_, err = CompileUpdate(doc, identityNames, OnlyPaths("data.address"))
		assert.ErrorIs(t, err, ErrNoAssignments)
	})

	t.Run("all except prunes a subtree", func(t *testing.T) {
		c, err := CompileUpdate(doc, identityNames, AllExcept("data"))
		require.NoError(t, err)
		assert.Equal(t, "SET #counter = :value0", c.Update)
	})

	t.Run("exclusions win over inclusions", func(t *testing.T) {
		c, err := CompileUpdate(doc, identityNames,
			OnlyPaths("data.firstname", "data.lastname", "data.address.city").Excluding("data.address"))
		require.NoError(t, err)
		assert.Equal(t, "SET #data.#firstname = :value0, #data.#lastname = :value1", c.Update)
	})

	t.Run("only paths selecting nothing fails", func(t *testing.T) {
		_, err := CompileUpdate(doc, identityNames, OnlyPaths("no.such.path"))
		assert.ErrorIs(t, err, ErrNoAssignments)
	})
}

func TestCompileDeterminism(t *testing.T) {
	doc := document.Document{
		"b": document.String("2"),
		"a": document.String("1"),
		"c": document.Map(document.Document{
			"z": document.Number(26),
			"y": document.Number(25),
		}),
	}

	first, err := CompileUpdate(doc, nil, All())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := CompileUpdate(doc, nil, All())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "SET #a = :value0, #b = :value1, #c.#y = :value2, #c.#z = :value3", first.Update)
}
