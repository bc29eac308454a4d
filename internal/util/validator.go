package util

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	VimeoPrefix   = "https://vimeo.com"
	YoutubePrefix = "https://www.youtube.com"
)

func IsTwitterURL(u string) bool {
	return strings.Contains(u, "twitter.com")
}

func IsSupportedVideoURL(u string) bool {
	return strings.HasPrefix(u, VimeoPrefix) || strings.HasPrefix(u, YoutubePrefix)
}

// RegisterValidators 在 gin 的校验引擎上注册自定义规则，字段名取 json 标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("twitterurl", func(fl validator.FieldLevel) bool {
		return IsTwitterURL(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("videourl", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || IsSupportedVideoURL(s)
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return FieldRequired
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Ensure this field has no more than %s elements.", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "e164":
		return "Enter a valid phone number."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "twitterurl":
		return "Twitter url is allowed"
	case "videourl":
		return "Youtube or vimeo video are supported"
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
