package booking

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/tix-checkout/internal/domain"
)

var (
	validate = validator.New()
	phoneRe  = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// ValidateCustomer checks that every contact field is present and that
// email and phone are well formed. It returns the normalized info.
func ValidateCustomer(c domain.CustomerInfo) (domain.CustomerInfo, error) {
	out := domain.CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(c.Phone),
	}

	if out.Name == "" {
		return domain.CustomerInfo{}, CustomerInfoError{Field: "name", Reason: "is required"}
	}

	if out.Email == "" {
		return domain.CustomerInfo{}, CustomerInfoError{Field: "email", Reason: "is required"}
	}
	if err := validate.Var(out.Email, "email"); err != nil {
		return domain.CustomerInfo{}, CustomerInfoError{Field: "email", Reason: "is malformed"}
	}

	if out.Phone == "" {
		return domain.CustomerInfo{}, CustomerInfoError{Field: "phone", Reason: "is required"}
	}
	if !phoneRe.MatchString(out.Phone) {
		return domain.CustomerInfo{}, CustomerInfoError{Field: "phone", Reason: "is malformed"}
	}

	return out, nil
}
