package prophecy

import "fmt"

// Fixed user-facing messages.
const (
	CannotRecallMessage     = "🔮 The oracle cannot recall this prophecy. Request a new one using `!prophecy`"
	InsightFallbackMessage  = "⚠️ The mystic forces are unable to provide deeper insights at this time."
	GenerationFailedMessage = "⚠️ The mystic forces are clouded. Please try again later."
	NoRecentMessage         = "🔮 No recent prophecies to analyze. Request a prophecy first using `!prophecy`"
)

// GenerationError reports a failed call to the text generator.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("prophecy %s: generation failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
