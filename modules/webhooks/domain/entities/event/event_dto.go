package event

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/hookrelay/pkg/constants"
	"github.com/iota-uz/hookrelay/pkg/serrors"
)

type CreateDTO struct {
	Kind           string              `json:"kind" validate:"required"`
	Payload        map[string][]string `json:"payload"`
	DestinationURL string              `json:"destination_url" validate:"omitempty,url"`
}

func (d *CreateDTO) Normalize() {
	d.Kind = strings.TrimSpace(d.Kind)
	d.DestinationURL = strings.TrimSpace(d.DestinationURL)
}

// Ok validates the DTO and returns field error messages keyed by field name.
func (d *CreateDTO) Ok() (map[string]string, bool) {
	d.Normalize()

	validationErrors := make(serrors.ValidationErrors)
	if errs := constants.Validate.Struct(d); errs != nil {
		for field, err := range serrors.ProcessValidatorErrors(errs.(validator.ValidationErrors), func(string) string { return "" }) {
			validationErrors[field] = err
		}
	}

	if _, seen := validationErrors["Kind"]; !seen && d.Kind != "" && !validKind(Kind(d.Kind)) {
		validationErrors["Kind"] = serrors.NewError(
			"VALIDATION_oneof",
			fmt.Sprintf("Kind must be one of: %s", kindList()),
			"",
		)
	}

	if len(validationErrors) > 0 {
		return validationErrors.Messages(), false
	}
	return map[string]string{}, true
}

func (d *CreateDTO) ToEntity(tenantID uuid.UUID) *Event {
	return New(tenantID, Kind(d.Kind), url.Values(d.Payload), d.DestinationURL)
}

func validKind(k Kind) bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

func kindList() string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, " ")
}
