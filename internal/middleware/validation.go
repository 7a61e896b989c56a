package middleware

import (
	"github.com/gin-gonic/gin/binding"
	govalidator "github.com/go-playground/validator/v10"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/validator"
)

// ConfigureBinding applies the project's field naming and custom rules to
// gin's binding validator, so ShouldBindJSON reports the same field names as
// record validation. It returns false if gin uses a different engine.
func ConfigureBinding() bool {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return false
	}
	validator.Configure(v)
	return true
}
