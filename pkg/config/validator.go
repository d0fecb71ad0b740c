package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	defaultValidator     *validator.Validate
	defaultValidatorOnce sync.Once
)

func sharedValidator() *validator.Validate {
	defaultValidatorOnce.Do(func() {
		defaultValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return defaultValidator
}

// Validate 使用 validate tag 校验配置结构体
func Validate(cfg any) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if err := sharedValidator().Struct(cfg); err != nil {
		return errors.Wrap(ErrValidationFailed, formatValidationErrors(err))
	}
	return nil
}

// formatValidationErrors 格式化验证错误信息
func formatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Namespace()
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("field '%s' is required", field))
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("field '%s' must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("field '%s' must be at most %s", field, fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("field '%s' must be greater than %s", field, fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("field '%s' must be one of [%s]", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("field '%s' failed validation '%s'", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
