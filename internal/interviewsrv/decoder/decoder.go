package decoder

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	errInvalidJSON = errors.New("not valid JSON")
	errNotObject   = errors.New("not a JSON object")
)

// Decoder runs its strategies in order and stops at the first candidate that
// satisfies the schema.
type Decoder struct {
	strategies []Strategy
}

// New returns a Decoder using strategies, or DefaultStrategies when none are
// given.
func New(strategies ...Strategy) *Decoder {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Decoder{strategies: strategies}
}

var defaultDecoder = New()

// Default is the process-wide decoder with the standard recovery order.
func Default() *Decoder {
	return defaultDecoder
}

// Object recovers a schema-valid JSON object from raw.
func (d *Decoder) Object(raw string, schema *Schema) Result[map[string]any] {
	if strings.TrimSpace(raw) == "" {
		return Failed[map[string]any]("empty input")
	}
	var reasons []string
	tried := make(map[string]bool, len(d.strategies))
	for _, st := range d.strategies {
		candidate, ok := st.Extract(raw)
		if !ok || tried[candidate] {
			continue
		}
		tried[candidate] = true
		obj, err := accept(candidate, schema)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", st.Stage, err))
			continue
		}
		return Decoded(obj, st.Stage)
	}
	if len(reasons) == 0 {
		return Failed[map[string]any]("no JSON object found")
	}
	return Failed[map[string]any](strings.Join(reasons, "; "))
}

func accept(candidate string, schema *Schema) (map[string]any, error) {
	if !gjson.Valid(candidate) {
		return nil, errInvalidJSON
	}
	if !gjson.Parse(candidate).IsObject() {
		return nil, errNotObject
	}
	candidate = schema.normalize(candidate)
	var v any
	if err := json.UnmarshalFromString(candidate, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	if err := schema.compiled.Validate(obj); err != nil {
		return nil, fmt.Errorf("schema %s: %w", schema.name, err)
	}
	return obj, nil
}

// Decode recovers a T from raw text.
func Decode[T any](d *Decoder, raw string, schema *Schema) Result[T] {
	r := d.Object(raw, schema)
	if !r.OK {
		return Failed[T](r.Reason)
	}
	return into[T](r.Value, r.Stage)
}

// FromValue validates and types an already parsed value, such as an object
// nested inside a decoded reply.
func FromValue[T any](v any, schema *Schema) Result[T] {
	if v == nil {
		return Failed[T]("missing value")
	}
	raw, err := json.MarshalToString(v)
	if err != nil {
		return Failed[T](err.Error())
	}
	obj, err := accept(raw, schema)
	if err != nil {
		return Failed[T](err.Error())
	}
	return into[T](obj, StageStructured)
}

func into[T any](obj map[string]any, stage Stage) Result[T] {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(numberFromString, boolFromString),
	})
	if err != nil {
		return Failed[T](err.Error())
	}
	if err := dec.Decode(obj); err != nil {
		return Failed[T]("typing: " + err.Error())
	}
	return Decoded(out, stage)
}

var leadingNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// numberFromString lets "7", "7/10" and "score: 8.5" land in numeric fields.
func numberFromString(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.String {
		return data, nil
	}
	switch to {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return data, nil
	}
	m := leadingNumber.FindString(data.(string))
	if m == "" {
		return data, nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return data, nil
	}
	return f, nil
}

// boolFromString maps the words models use for STAR components onto bools.
func boolFromString(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.String || to != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(strings.TrimSpace(data.(string))) {
	case "true", "yes", "y", "present", "covered", "1":
		return true, nil
	case "false", "no", "n", "absent", "missing", "0", "":
		return false, nil
	}
	return data, nil
}
