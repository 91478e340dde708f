package types

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorTOML reports field names as their TOML keys.
func validatorTOML() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration and returns a *ConfigError for the
// first invalid field.
func (c *Config) Validate() error {
	err := validatorTOML().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, ".") {
		// languages[0] rather than Config.languages[0]
		field = ns[strings.Index(ns, ".")+1:]
	}
	return &ConfigError{
		Field:      field,
		Value:      fe.Value(),
		Message:    describe(fe),
		Suggestion: suggestions[strings.SplitN(field, "[", 2)[0]],
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "value is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return fmt.Sprintf("%q is not one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return "failed the " + fe.Tag() + " check"
	}
}

var suggestions = map[string]string{
	"root":          "Pass the source tree as the first argument",
	"max_file_size": "Use a positive byte count, e.g. 1048576",
	"languages":     "Remove empty entries from the language list",
	"parallelism":   "Use --parallel with a value between 1 and 100",
	"timeout":       "Use a positive duration, e.g. --timeout 30s",
	"debounce":      "Use a duration such as --debounce 200ms",
	"store":         "Use one of: json, sqlite, postgres",
	"index_file":    "Set --index-file or index_file in .rbxref.toml",
	"connection":    "Set --connection, e.g. postgres://user@localhost/rbxref",
	"log_format":    "Use --log-format console or json",
}
