package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func init() {
	// report fields by their wire names (json for bodies, form for queries)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(wireName)
	}
}

func wireName(sf reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return sf.Name
}

func BindJSON(ctx *gin.Context, out any) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err))
		return false
	}
	return true
}

// BindQuery binds query parameters with the same error shape as BindJSON.
func BindQuery(ctx *gin.Context, out any) bool {
	if err := ctx.ShouldBindQuery(out); err != nil {
		RespondBadRequest(ctx, "Invalid query parameters", bindErrorDetails(err))
		return false
	}
	return true
}

func bindErrorDetails(err error) gin.H {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		fields := make([]FieldError, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: ruleMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	// Field is already the dotted path of json keys
	var mismatch *json.UnmarshalTypeError
	if errors.As(err, &mismatch) {
		return gin.H{
			"json":  "invalid_json_type",
			"field": mismatch.Field,
			"fields": []FieldError{{
				Field:   mismatch.Field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", mismatch.Type),
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "eqfield":
		return "must match " + param
	}
	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
