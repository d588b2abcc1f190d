package tynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asayed18/tynamo/document"
	"github.com/asayed18/tynamo/expr"
	"github.com/asayed18/tynamo/table"
)

func mustRead(t *testing.T, client *Client, pk, sk string) document.Document {
	t.Helper()
	got, err := client.Read(context.Background(), recordsTable.Identity(pk, sk))
	require.NoError(t, err)
	return got
}

func stringAt(t *testing.T, d document.Document, path string) string {
	t.Helper()
	v, ok := d.Get(document.Path(path))
	require.True(t, ok, "no value at %s", path)
	s, ok := v.StringValue()
	require.True(t, ok, "value at %s is %s, not a string", path, v.Kind())
	return s
}

func numberAt(t *testing.T, d document.Document, path string) string {
	t.Helper()
	v, ok := d.Get(document.Path(path))
	require.True(t, ok, "no value at %s", path)
	n, ok := v.NumberValue()
	require.True(t, ok, "value at %s is %s, not a number", path, v.Kind())
	return n
}

func TestClient_Update(t *testing.T) {
	t.Run("applies a partial update in place", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
			"data": document.Map(document.Document{
				"x":    document.Map(document.Document{"y": document.Number(1)}),
				"keep": document.String("untouched"),
			}),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk": document.String("user#1"),
			"sk": document.String("profile"),
			"data": document.Map(document.Document{
				"x": document.Map(document.Document{"y": document.Number(2)}),
			}),
		}, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		assert.True(t, outcome.Applied())

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "2", numberAt(t, got, "data.x.y"))
		assert.Equal(t, "untouched", stringAt(t, got, "data.keep"))
		assert.Equal(t, "John", stringAt(t, got, "name"))
	})

	t.Run("rejects an absent identity without inserting", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		outcome, err := client.Update(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejectedNotFound, outcome)
		assert.False(t, outcome.Applied())

		_, err = client.Read(ctx, recordsTable.Identity("user#1", "profile"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("merges when the stored shape conflicts", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
			"data": document.String("still-a-scalar"),
			"meta": document.Map(document.Document{"created": document.Number(100)}),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk": document.String("user#1"),
			"sk": document.String("profile"),
			"data": document.Map(document.Document{
				"x": document.Map(document.Document{"y": document.Number(2)}),
			}),
		}, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedMerge, outcome)

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "2", numberAt(t, got, "data.x.y"))
		assert.Equal(t, "John", stringAt(t, got, "name"))
		assert.Equal(t, "100", numberAt(t, got, "meta.created"))
	})

	t.Run("grows missing nested parents via merge", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"data": document.Map(document.Document{"x": document.Number(1)}),
		}, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedMerge, outcome)

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "1", numberAt(t, got, "data.x"))
		assert.Equal(t, "John", stringAt(t, got, "name"))
	})

	t.Run("a failed precondition is an explicit no-op", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":      document.String("user#1"),
			"sk":      document.String("profile"),
			"name":    document.String("John"),
			"version": document.Number(3),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("Jane"),
		}, expr.All(), WithCondition("#version = :v", map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: "999"},
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejectedPrecondition, outcome)
		assert.False(t, outcome.Applied())

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "John", stringAt(t, got, "name"))
	})

	t.Run("a passing precondition applies", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":      document.String("user#1"),
			"sk":      document.String("profile"),
			"name":    document.String("John"),
			"version": document.Number(3),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("Jane"),
		}, expr.All(), WithCondition("#version = :v", map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: "3"},
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		assert.Equal(t, "Jane", stringAt(t, mustRead(t, client, "user#1", "profile"), "name"))
	})

	t.Run("preconditions address nested attributes", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"meta": document.Map(document.Document{"version": document.Number(3)}),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk":    document.String("user#1"),
			"sk":    document.String("profile"),
			"state": document.String("done"),
		}, expr.All(), WithCondition("#meta.#version = :v", map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: "3"},
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
	})

	t.Run("excluded paths survive a merge untouched", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":       document.String("user#1"),
			"sk":       document.String("profile"),
			"counters": document.Map(document.Document{"a": document.Number(1)}),
			"data":     document.String("still-a-scalar"),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk":       document.String("user#1"),
			"sk":       document.String("profile"),
			"counters": document.Map(document.Document{"a": document.Number(99)}),
			"data":     document.Map(document.Document{"x": document.Number(1)}),
		}, expr.All().Excluding(document.Path("counters")))
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedMerge, outcome)

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "1", numberAt(t, got, "counters.a"))
		assert.Equal(t, "1", numberAt(t, got, "data.x"))
	})

	t.Run("insert-only leaves keep the stored value", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":         document.String("user#1"),
			"sk":         document.String("profile"),
			"created_at": document.Number(100),
			"name":       document.String("John"),
		}))

		outcome, err := client.Update(ctx, document.Document{
			"pk":         document.String("user#1"),
			"sk":         document.String("profile"),
			"created_at": document.Number(999),
			"name":       document.String("Jane"),
		}, expr.All().InsertOnly(document.Path("created_at")))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "100", numberAt(t, got, "created_at"))
		assert.Equal(t, "Jane", stringAt(t, got, "name"))
	})

	t.Run("a record with no qualifying leaves fails to compile", func(t *testing.T) {
		client := newTestClient(t)

		outcome, err := client.Update(context.Background(), document.Document{
			"pk": document.String("user#1"),
			"sk": document.String("profile"),
		}, expr.All())
		require.ErrorIs(t, err, expr.ErrNoAssignments)
		assert.Equal(t, OutcomeFailed, outcome)
	})

	t.Run("a record missing a key attribute fails", func(t *testing.T) {
		client := newTestClient(t)

		outcome, err := client.Update(context.Background(), document.Document{
			"pk":   document.String("user#1"),
			"name": document.String("John"),
		}, expr.All())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing key attribute")
		assert.Equal(t, OutcomeFailed, outcome)
	})

	t.Run("condition values may not reuse compiled placeholders", func(t *testing.T) {
		client := newTestClient(t)

		_, err := client.Update(context.Background(), document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}, expr.All(), WithCondition("#name = :value0", map[string]types.AttributeValue{
			":value0": &types.AttributeValueMemberS{Value: "John"},
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collides")
	})

	t.Run("a condition referencing an unsupplied value fails", func(t *testing.T) {
		client := newTestClient(t)

		_, err := client.Update(context.Background(), document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}, expr.All(), WithCondition("#version = :v", nil))
		var missing *expr.MissingValueError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, ":v", missing.Token)
	})
}

func TestClient_Upsert(t *testing.T) {
	t.Run("inserts the full record on first write", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		doc := document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
			"data": document.Map(document.Document{
				"x": document.Map(document.Document{"y": document.Number(1)}),
			}),
		}
		outcome, err := client.Upsert(ctx, doc, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedInsert, outcome)
		assert.True(t, mustRead(t, client, "user#1", "profile").Equal(doc))

		// the identity exists now, so the same write lands directly
		outcome, err = client.Upsert(ctx, doc, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		assert.True(t, mustRead(t, client, "user#1", "profile").Equal(doc))
	})

	t.Run("merges on a shape conflict", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Put(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"data": document.String("still-a-scalar"),
		}))

		outcome, err := client.Upsert(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"data": document.Map(document.Document{"x": document.Number(2)}),
		}, expr.All())
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedMerge, outcome)
		assert.Equal(t, "2", numberAt(t, mustRead(t, client, "user#1", "profile"), "data.x"))
	})

	t.Run("insert-only leaves survive the merge", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Put(ctx, document.Document{
			"pk":         document.String("user#1"),
			"sk":         document.String("profile"),
			"created_at": document.Number(100),
			"profile":    document.String("still-a-scalar"),
		}))

		outcome, err := client.Upsert(ctx, document.Document{
			"pk":         document.String("user#1"),
			"sk":         document.String("profile"),
			"created_at": document.Number(999),
			"profile":    document.Map(document.Document{"bio": document.String("hi")}),
		}, expr.All().InsertOnly(document.Path("created_at")))
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedMerge, outcome)

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "100", numberAt(t, got, "created_at"))
		assert.Equal(t, "hi", stringAt(t, got, "profile.bio"))
	})

	t.Run("rejects an existing record that fails the precondition", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":      document.String("user#1"),
			"sk":      document.String("profile"),
			"name":    document.String("John"),
			"version": document.Number(3),
		}))

		outcome, err := client.Upsert(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("Jane"),
		}, expr.All(), WithCondition("#version = :v", map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: "999"},
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejectedPrecondition, outcome)
		assert.Equal(t, "John", stringAt(t, mustRead(t, client, "user#1", "profile"), "name"))
	})

	t.Run("inserts an absent record even under a precondition", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		outcome, err := client.Upsert(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}, expr.All(), WithCondition("#version = :v", map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: "3"},
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeAppliedInsert, outcome)
	})

	t.Run("refreshes the expiry attribute", func(t *testing.T) {
		client := newTestClient(t)
		ctx := context.Background()

		require.NoError(t, client.Create(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}))

		expiry := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
		outcome, err := client.Upsert(ctx, document.Document{
			"pk":   document.String("user#1"),
			"sk":   document.String("profile"),
			"name": document.String("John"),
		}, expr.All(), WithExpiry(expiry))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)

		got := mustRead(t, client, "user#1", "profile")
		assert.Equal(t, "1924992000", numberAt(t, got, "expires_at"))
	})

	t.Run("expiry requires a table with a time-to-live attribute", func(t *testing.T) {
		plain := table.Definition{
			Name: "plain",
			Keys: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
			},
		}
		client, store := NewMemoryClient(plain)
		t.Cleanup(func() {
			store.Close()
		})

		outcome, err := client.Upsert(context.Background(), document.Document{
			"pk": document.String("user#1"),
		}, expr.All(), WithExpiry(time.Now()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "time-to-live")
		assert.Equal(t, OutcomeFailed, outcome)
	})
}

func TestOutcome(t *testing.T) {
	assert.True(t, OutcomeApplied.Applied())
	assert.True(t, OutcomeAppliedMerge.Applied())
	assert.True(t, OutcomeAppliedInsert.Applied())
	assert.False(t, OutcomeRejectedPrecondition.Applied())
	assert.False(t, OutcomeRejectedNotFound.Applied())
	assert.False(t, OutcomeFailed.Applied())

	assert.Equal(t, "applied via merge", OutcomeAppliedMerge.String())
	assert.Equal(t, "rejected: precondition false", OutcomeRejectedPrecondition.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
