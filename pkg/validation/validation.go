package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldError 單一欄位的驗證錯誤
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Validator 封裝 validator.Validate，註冊金額相關規則
type Validator struct {
	validate *validator.Validate
}

// amountScale 金額最多小數位數
const amountScale = 4

// maxAmount 單筆金額上限 (10^12)
var maxAmount = decimal.New(1, 12)

// New 建立 Validator
//
// 額外規則:
//
//	amount: decimal.Decimal 必須大於 0 且小數不超過 4 位
//
// 欄位名稱使用 json tag
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("amount", validAmount)
	return &Validator{validate: v}
}

func validAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive() && d.Equal(d.Truncate(amountScale)) && !d.GreaterThan(maxAmount)
}

var defaultValidator = New()

// Struct 以預設 Validator 驗證
func Struct(obj any) []FieldError {
	return defaultValidator.Struct(obj)
}

// Struct 驗證結構，全部通過時回傳 nil
func (v *Validator) Struct(obj any) []FieldError {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []FieldError{{Field: "", Message: err.Error(), Type: "invalid"}}
	}

	out := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "amount":
		return "Must be a positive amount with at most 4 decimal places"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}
