package validators

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register adds the isodate (2006-01-02) and hhmm (15:04) tags to gin's
// validator engine.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("isodate", layout("2006-01-02")); err != nil {
		return err
	}
	return v.RegisterValidation("hhmm", layout("15:04"))
}

func layout(l string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := time.Parse(l, s)
		return err == nil
	}
}
