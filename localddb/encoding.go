package localddb

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/asayed18/tynamo/table"
)

// Storage key format: [tableName][0x00][partitionKey][0x00][sortKey].
// Key values carry a one-byte type marker and are encoded so byte order
// matches DynamoDB key order for all key kinds (S, N, B).

const keySeparator byte = 0x00

const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
	keyTypeBinary byte = 'B'
)

// encodeStorageKey encodes a record identity into a BadgerDB key.
func encodeStorageKey(tableName string, id table.Identity) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(tableName)
	buf.WriteByte(keySeparator)

	pkBytes, err := encodeKeyValue(id.PartitionValue, id.Definition.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to encode partition key: %w", err)
	}
	buf.Write(pkBytes)
	buf.WriteByte(keySeparator)

	if id.Definition.HasSortKey() {
		skBytes, err := encodeKeyValue(id.SortValue, id.Definition.SortKey.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sort key: %w", err)
		}
		buf.Write(skBytes)
	}

	return buf.Bytes(), nil
}

func encodeKeyValue(value any, kind table.KeyKind) ([]byte, error) {
	var buf bytes.Buffer

	switch kind {
	case table.KeyKindS:
		buf.WriteByte(keyTypeString)
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for S key, got %T", value)
		}
		buf.Write(escapeBytes([]byte(s)))

	case table.KeyKindN:
		buf.WriteByte(keyTypeNumber)
		var numStr string
		switch v := value.(type) {
		case string:
			numStr = v
		case float64:
			numStr = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			numStr = strconv.Itoa(v)
		case int64:
			numStr = strconv.FormatInt(v, 10)
		default:
			return nil, fmt.Errorf("expected number for N key, got %T", value)
		}
		encoded, err := encodeNumber(numStr)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)

	case table.KeyKindB:
		buf.WriteByte(keyTypeBinary)
		var b []byte
		switch v := value.(type) {
		case []byte:
			b = v
		case string:
			b = []byte(v)
		default:
			return nil, fmt.Errorf("expected binary for B key, got %T", value)
		}
		buf.Write(escapeBytes(b))

	default:
		return nil, fmt.Errorf("unsupported key kind: %s", kind)
	}

	return buf.Bytes(), nil
}

// encodeNumber encodes a number string so byte comparison matches numeric
// order. Positive values get a 0x80 prefix with the sign bit flipped;
// negative values get 0x7F with all bits inverted.
func encodeNumber(numStr string) ([]byte, error) {
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse number %q: %w", numStr, err)
	}

	bits := math.Float64bits(f)
	buf := make([]byte, 9)

	if f >= 0 {
		buf[0] = 0x80
		bits ^= 1 << 63
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}

	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf, nil
}

// escapeBytes escapes 0x00 and 0x01 so key values cannot collide with the
// separator byte.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// Item values are stored as gob-encoded maps of a tagged representation,
// decoupled from the SDK's interface types which gob cannot encode.

type serializableAV struct {
	Type  string
	Value any
}

func init() {
	gob.Register(map[string]serializableAV{})
	gob.Register([]serializableAV{})
	gob.Register([]string{})
	gob.Register([][]byte{})
}

func serializeItem(item map[string]types.AttributeValue) ([]byte, error) {
	serializable := make(map[string]serializableAV, len(item))
	for k, v := range item {
		serializable[k] = toSerializable(v)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(serializable); err != nil {
		return nil, fmt.Errorf("failed to encode item: %w", err)
	}
	return buf.Bytes(), nil
}

func deserializeItem(data []byte) (map[string]types.AttributeValue, error) {
	var serializable map[string]serializableAV
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&serializable); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}

	result := make(map[string]types.AttributeValue, len(serializable))
	for k, v := range serializable {
		result[k] = fromSerializable(v)
	}
	return result, nil
}

func toSerializable(av types.AttributeValue) serializableAV {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return serializableAV{Type: "S", Value: v.Value}
	case *types.AttributeValueMemberN:
		return serializableAV{Type: "N", Value: v.Value}
	case *types.AttributeValueMemberB:
		return serializableAV{Type: "B", Value: v.Value}
	case *types.AttributeValueMemberBOOL:
		return serializableAV{Type: "BOOL", Value: v.Value}
	case *types.AttributeValueMemberNULL:
		return serializableAV{Type: "NULL", Value: v.Value}
	case *types.AttributeValueMemberSS:
		return serializableAV{Type: "SS", Value: v.Value}
	case *types.AttributeValueMemberNS:
		return serializableAV{Type: "NS", Value: v.Value}
	case *types.AttributeValueMemberBS:
		return serializableAV{Type: "BS", Value: v.Value}
	case *types.AttributeValueMemberM:
		m := make(map[string]serializableAV, len(v.Value))
		for k, val := range v.Value {
			m[k] = toSerializable(val)
		}
		return serializableAV{Type: "M", Value: m}
	case *types.AttributeValueMemberL:
		l := make([]serializableAV, len(v.Value))
		for i, val := range v.Value {
			l[i] = toSerializable(val)
		}
		return serializableAV{Type: "L", Value: l}
	default:
		panic(fmt.Sprintf("unsupported attribute value type: %T", av))
	}
}

func fromSerializable(sav serializableAV) types.AttributeValue {
	switch sav.Type {
	case "S":
		return &types.AttributeValueMemberS{Value: sav.Value.(string)}
	case "N":
		return &types.AttributeValueMemberN{Value: sav.Value.(string)}
	case "B":
		return &types.AttributeValueMemberB{Value: sav.Value.([]byte)}
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: sav.Value.(bool)}
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: sav.Value.(bool)}
	case "SS":
		return &types.AttributeValueMemberSS{Value: sav.Value.([]string)}
	case "NS":
		return &types.AttributeValueMemberNS{Value: sav.Value.([]string)}
	case "BS":
		return &types.AttributeValueMemberBS{Value: sav.Value.([][]byte)}
	case "M":
		m := make(map[string]types.AttributeValue)
		for k, v := range sav.Value.(map[string]serializableAV) {
			m[k] = fromSerializable(v)
		}
		return &types.AttributeValueMemberM{Value: m}
	case "L":
		l := make([]types.AttributeValue, len(sav.Value.([]serializableAV)))
		for i, v := range sav.Value.([]serializableAV) {
			l[i] = fromSerializable(v)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		panic(fmt.Sprintf("unsupported serializable type: %s", sav.Type))
	}
}
