package enums

import (
	"fmt"
	"strings"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

var validGenders = []Gender{GenderMale, GenderFemale, GenderOther}

func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender accepts any casing.
func ParseGender(value string) (Gender, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGenders {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}
