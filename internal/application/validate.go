package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

var validate = validator.New()

// fieldCodes maps a struct field to the stable error code reported when it fails.
var fieldCodes = map[string]string{
	"Type":            analysis.CodeInvalidType,
	"PropertyAddress": analysis.CodeMissingPropertyAddress,
}

// Validate runs struct tag validation and converts the first failure into a
// validation error with a stable code.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return analysis.Validation(analysis.CodeInvalidInput, err.Error())
	}
	fe := verrs[0]
	code, ok := fieldCodes[fe.Field()]
	if !ok {
		code = analysis.CodeInvalidInput
	}
	msg := fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("%s failed %q validation (%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	return analysis.Validation(code, msg)
}

// StoreError turns a Record Store failure into an upstream error. Errors that are
// already classified pass through untouched.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if analysis.KindOf(err) != analysis.KindInternal {
		return err
	}
	return analysis.Upstream(analysis.CodeStoreFailure, op+" failed", err)
}

// UniqueIDs trims ids, drops empties and duplicates, and keeps first-seen order.
func UniqueIDs(ids []analysis.ID) []analysis.ID {
	seen := make(map[analysis.ID]struct{}, len(ids))
	out := make([]analysis.ID, 0, len(ids))
	for _, id := range ids {
		id = analysis.ID(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
