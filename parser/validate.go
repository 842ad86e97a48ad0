package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-operators/models"
)

// ValidateOperator checks that a normalized record carries its identity
// fields and a known side.
func ValidateOperator(op *models.Operator) error {
	if op == nil {
		return fmt.Errorf("operator is nil")
	}
	if strings.TrimSpace(op.Info.Name) == "" {
		return fmt.Errorf("operator missing name")
	}
	if strings.TrimSpace(op.Info.PrettyName) == "" {
		return fmt.Errorf("operator missing pretty name for %s", op.Info.Name)
	}
	if strings.TrimSpace(op.Info.URL) == "" {
		return fmt.Errorf("operator missing url for %s", op.Info.Name)
	}
	if op.Info.Side != models.SideAttacker && op.Info.Side != models.SideDefender {
		return fmt.Errorf("operator %s has unknown side %q", op.Info.Name, op.Info.Side)
	}
	return nil
}
