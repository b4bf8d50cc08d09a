package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"intentd/internal/domain"
)

// maxCanonicalDepth bounds recursion so a cyclic value surfaces as
// ErrCanonicalize instead of exhausting the stack.
const maxCanonicalDepth = 64

// CanonicalizeJSON re-serializes a JSON document into canonical form:
// keys sorted by byte value, fixed separators, no insignificant
// whitespace, JCS number formatting, UTF-8 text.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrCanonicalize, err)
	}
	if err := ensureEOF(dec); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := writeCanonical(buf, value, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalizeValue canonicalizes a JSON-like in-memory value. Only
// mappings, sequences, strings, numbers, booleans and null are accepted;
// anything else (binary blobs, channels, arbitrary structs) is rejected
// with ErrCanonicalize. Two structurally equal values always produce
// byte-identical output regardless of map insertion order.
func CanonicalizeValue(v any) ([]byte, error) {
	switch value := v.(type) {
	case json.RawMessage:
		return CanonicalizeJSON([]byte(value))
	default:
		buf := &bytes.Buffer{}
		if err := writeCanonical(buf, value, 0); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func ensureEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON: %v", domain.ErrCanonicalize, err)
	}
	return fmt.Errorf("%w: trailing data", domain.ErrCanonicalize)
}

func writeCanonical(buf *bytes.Buffer, value any, depth int) error {
	if depth > maxCanonicalDepth {
		return fmt.Errorf("%w: nesting too deep", domain.ErrCanonicalize)
	}
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, v)
	case json.Number:
		num, err := canonicalizeNumberString(v.String())
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float64:
		num, err := canonicalizeFloat(v)
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float32:
		return writeCanonical(buf, float64(v), depth)
	case int:
		return writeCanonical(buf, float64(v), depth)
	case int8:
		return writeCanonical(buf, float64(v), depth)
	case int16:
		return writeCanonical(buf, float64(v), depth)
	case int32:
		return writeCanonical(buf, float64(v), depth)
	case int64:
		return writeCanonical(buf, float64(v), depth)
	case uint:
		return writeCanonical(buf, float64(v), depth)
	case uint8:
		return writeCanonical(buf, float64(v), depth)
	case uint16:
		return writeCanonical(buf, float64(v), depth)
	case uint32:
		return writeCanonical(buf, float64(v), depth)
	case uint64:
		return writeCanonical(buf, float64(v), depth)
	case map[string]any:
		return writeObject(buf, v, depth)
	case []any:
		return writeArray(buf, v, depth)
	default:
		return fmt.Errorf("%w: unsupported value type %T", domain.ErrCanonicalize, value)
	}
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]any, depth int) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k], depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeArray(buf *bytes.Buffer, arr []any, depth int) error {
	buf.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, item, depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

var hexLower = []byte("0123456789abcdef")

func canonicalizeNumberString(number string) (string, error) {
	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid JSON number: %v", domain.ErrCanonicalize, err)
	}
	return canonicalizeFloat(f)
}

func canonicalizeFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: invalid JSON number", domain.ErrCanonicalize)
	}
	if f == 0 {
		return "0", nil
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = math.Abs(f)
	}

	mantissa, exp, err := splitScientific(f)
	if err != nil {
		return "", err
	}

	digits := strings.ReplaceAll(mantissa, ".", "")

	if exp <= -7 || exp >= 21 {
		if len(digits) == 1 {
			return sign + digits + "e" + strconv.Itoa(exp), nil
		}
		return sign + digits[:1] + "." + digits[1:] + "e" + strconv.Itoa(exp), nil
	}

	point := exp + 1
	if point >= len(digits) {
		return sign + digits + strings.Repeat("0", point-len(digits)), nil
	}
	if point <= 0 {
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	}
	return sign + digits[:point] + "." + digits[point:], nil
}

func splitScientific(f float64) (string, int, error) {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	parts := strings.SplitN(s, "e", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: invalid float format: %q", domain.ErrCanonicalize, s)
	}
	exp, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid float exponent: %v", domain.ErrCanonicalize, err)
	}
	return parts[0], exp, nil
}
