package domain

import "errors"

// Sentinel errors for the failure classes the pipeline distinguishes.
var (
	// ErrConfiguration covers unknown strategies, invalid profiles and
	// malformed denylists. The offending change is rejected.
	ErrConfiguration = errors.New("configuration error")
	// ErrProfileNotFound fails closed: the decision is block.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrClassifierUnavailable drops specialized evidence for the request.
	ErrClassifierUnavailable = errors.New("specialized classifier unavailable")
	// ErrLMTimeout is a language model call that hit its deadline.
	ErrLMTimeout = errors.New("language model timeout")
	// ErrLMUnavailable is a language model backend that could not answer.
	ErrLMUnavailable = errors.New("language model unavailable")
	// ErrLMMalformedOutput is output that failed schema validation after repair.
	ErrLMMalformedOutput = errors.New("language model output malformed")
	// ErrCacheUnavailable makes the cache step a pass-through.
	ErrCacheUnavailable = errors.New("result cache unavailable")
)

// ConfigurationError names the rejected setting.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error: " + e.Setting
	if e.Value != "" {
		msg += " " + `"` + e.Value + `"`
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
