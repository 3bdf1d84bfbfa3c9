package enrich

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SafetyValidator rejects captions that would embarrass the downstream
// platform: over-long text or phrases from a campaign-wide blocklist.
type SafetyValidator struct {
	MaxLength     int
	BannedPhrases []string
}

func NewSafetyValidator() *SafetyValidator {
	return &SafetyValidator{
		MaxLength: 500,
		BannedPhrases: []string{
			"click here",
			"buy now",
			"limited offer",
			"act fast",
		},
	}
}

func (v *SafetyValidator) Validate(caption string) error {
	if strings.TrimSpace(caption) == "" {
		return fmt.Errorf("caption is empty")
	}

	max := v.MaxLength
	if max <= 0 {
		max = 500
	}
	if utf8.RuneCountInString(caption) > max {
		return fmt.Errorf("caption exceeds %d characters", max)
	}

	lowered := strings.ToLower(caption)
	for _, phrase := range v.BannedPhrases {
		if strings.Contains(lowered, phrase) {
			return fmt.Errorf("caption contains banned phrase %q", phrase)
		}
	}
	return nil
}
