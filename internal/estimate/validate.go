package estimate

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/reprocost/internal/pricing"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(foilCodeRule, Estimate{})
	return v
}

// foilCodeRule rejects quantities on foil lines when no foil code is set.
func foilCodeRule(sl validator.StructLevel) {
	e := sl.Current().Interface().(Estimate)
	if e.Foil.Code.IsPositive() {
		return
	}
	for _, line := range e.Lines {
		if pricing.IsFoil(line.Item) && line.Quantity.IsPositive() {
			sl.ReportError(e.Foil.Code, "Foil.Code", "FoilCode", "foilcode", line.Item)
			return
		}
	}
}

// ValidationError lists the reasons an estimate cannot be finalized.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

// Finalize checks that an estimate may be saved. It returns a
// *ValidationError describing every failed rule.
func Finalize(e Estimate) error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out.Messages = append(out.Messages, "Please enter a "+fieldLabel(fe.Field())+".")
		case "foilcode":
			out.Messages = append(out.Messages, "Enter a foil block code before quoting "+fe.Param()+".")
		default:
			out.Messages = append(out.Messages, fe.Error())
		}
	}
	return out
}

func fieldLabel(field string) string {
	switch field {
	case "Client":
		return "Client Name"
	default:
		return field
	}
}
