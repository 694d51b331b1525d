package tools

import (
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"

	"odoomcp/cli/internal/errors"
)

type searchArgs struct {
	Model  string   `mapstructure:"model"`
	Domain any      `mapstructure:"domain"`
	Fields []string `mapstructure:"fields"`
	Limit  *int     `mapstructure:"limit"`
	Offset int      `mapstructure:"offset"`
	Order  string   `mapstructure:"order"`
}

type readArgs struct {
	Model  string   `mapstructure:"model"`
	ID     int64    `mapstructure:"id"`
	Fields []string `mapstructure:"fields"`
}

type countArgs struct {
	Model  string `mapstructure:"model"`
	Domain any    `mapstructure:"domain"`
}

type createArgs struct {
	Model  string         `mapstructure:"model"`
	Values map[string]any `mapstructure:"values"`
}

type updateArgs struct {
	Model  string         `mapstructure:"model"`
	ID     int64          `mapstructure:"id"`
	Values map[string]any `mapstructure:"values"`
}

type deleteArgs struct {
	Model string `mapstructure:"model"`
	ID    int64  `mapstructure:"id"`
}

type schemaArgs struct {
	Model    string `mapstructure:"model"`
	ViewType string `mapstructure:"view_type"`
}

type executeArgs struct {
	Model  string         `mapstructure:"model"`
	Method string         `mapstructure:"method"`
	IDs    []int64        `mapstructure:"ids"`
	Args   []any          `mapstructure:"args"`
	Kwargs map[string]any `mapstructure:"kwargs"`
}

// decodeArgs copies args into out. Unknown keys and wrongly typed values are
// validation errors; numbers with a fractional part never become integers.
func decodeArgs(tool string, args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  integralHook(),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return errors.Wrap(errors.Validation, "invalid arguments for "+tool, cleanDecodeError(err))
	}
	return nil
}

// integralHook rejects non-integral numbers bound for integer fields. JSON
// numbers arrive as float64 and would otherwise be truncated.
func integralHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.Float64 {
			return data, nil
		}
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return data, nil
		}
		v := data.(float64)
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
		return data, nil
	}
}

// cleanDecodeError drops mapstructure's "N error(s) decoding:" preamble.
func cleanDecodeError(err error) error {
	var me *mapstructure.Error
	if stderrors.As(err, &me) && len(me.Errors) > 0 {
		return stderrors.New(strings.Join(me.Errors, "; "))
	}
	return err
}

var (
	modelName  = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)
	methodName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func checkModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return errors.New(errors.Validation, "model is required")
	}
	if !modelName.MatchString(model) {
		return errors.Newf(errors.Validation, "%q is not a valid model name", model)
	}
	return nil
}

func checkID(name string, id int64) error {
	if id <= 0 {
		return errors.Newf(errors.Validation, "%s must be a positive integer, got %d", name, id)
	}
	return nil
}

func checkValues(values map[string]any) error {
	if len(values) == 0 {
		return errors.New(errors.Validation, "values must be a non-empty object of field names to values")
	}
	for k := range values {
		if strings.TrimSpace(k) == "" {
			return errors.New(errors.Validation, "values contains an empty field name")
		}
	}
	return nil
}

func checkFields(fields []string) error {
	for i, f := range fields {
		if strings.TrimSpace(f) == "" {
			return errors.Newf(errors.Validation, "fields[%d] is empty", i)
		}
	}
	return nil
}

// present reports whether key was supplied at all, so that a missing required
// argument is told apart from a zero value.
func present(args map[string]any, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if v, ok := args[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.Newf(errors.Validation, "missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
