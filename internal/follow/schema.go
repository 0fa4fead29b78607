package follow

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ReportSchema is the JSON schema of a marshaled [Report].
//
//go:embed report-schema.json
var ReportSchema []byte

// ErrInvalidReport is returned when a document does not match [ReportSchema].
var ErrInvalidReport = errors.New("report does not match schema")

// ValidateReportJSON checks a JSON document against [ReportSchema].
func ValidateReportJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(ReportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(problems, "; "))
}
