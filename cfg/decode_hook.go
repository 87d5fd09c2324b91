package cfg

import (
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// DecodeHook returns a mapstructure decode hook that understands the custom
// config types in types.go: FileMode (parsed as octal), LogSeverity and
// LogFormat (checked against their allowed values).
func DecodeHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		switch t {
		case reflect.TypeOf(FileMode(0)):
			return strconv.ParseUint(s, 8, 32)
		case reflect.TypeOf(LogSeverity("")):
			var sev LogSeverity
			if err := sev.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return string(sev), nil
		case reflect.TypeOf(LogFormat("")):
			var fm LogFormat
			if err := fm.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return string(fm), nil
		}
		return data, nil
	}
}
