package verify

import "errors"

// Sentinel errors whose Error() strings are the user-visible error text
// for request-shape problems (spec §7's InvalidRequest/UnknownSession).
// PoW rejection strings come from internal/pow instead.
var (
	ErrMissingFields  = errors.New("captcha_id and slider_value are required")
	ErrMissingPow     = errors.New("PoW fields are required")
	ErrUnknownMode    = errors.New("mode must be image or video")
	ErrUnknownSession = errors.New("Invalid or expired captcha_id")
	ErrAssetMissing   = errors.New("video asset not configured")
)
