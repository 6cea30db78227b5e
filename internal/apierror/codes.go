package apierror

// Error type URIs following the urn:wellnessgrid:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates request validation failed (400)
	TypeValidation = "urn:wellnessgrid:error:validation"

	// TypeNotFound indicates the requested resource was not found (404)
	TypeNotFound = "urn:wellnessgrid:error:not_found"

	// TypeProfileNotFound indicates a score was requested for a user without a profile (404)
	TypeProfileNotFound = "urn:wellnessgrid:error:profile_not_found"

	// TypeRateLimit indicates too many requests (429)
	TypeRateLimit = "urn:wellnessgrid:error:rate_limit"

	// TypeUnauthorized indicates missing or invalid authentication (401)
	TypeUnauthorized = "urn:wellnessgrid:error:unauthorized"

	// TypeInternal indicates an unexpected server error (500)
	TypeInternal = "urn:wellnessgrid:error:internal"

	// TypeUnavailable indicates a dependency is down (503)
	TypeUnavailable = "urn:wellnessgrid:error:unavailable"

	// TypeInvalidUUID indicates an invalid UUID format in request (400)
	TypeInvalidUUID = "urn:wellnessgrid:error:invalid_uuid"

	// TypeFutureTimestamp indicates a UUIDv7 or entry timestamp ahead of the server clock (400)
	TypeFutureTimestamp = "urn:wellnessgrid:error:future_timestamp"

	// TypeInvalidPeriod indicates a period or range string that is not Nh/Nd/Nw (400)
	TypeInvalidPeriod = "urn:wellnessgrid:error:invalid_period"

	// TypeBadRequest indicates a malformed or invalid request (400)
	TypeBadRequest = "urn:wellnessgrid:error:bad_request"
)

// Titles for each error type
const (
	TitleValidation      = "Validation Error"
	TitleNotFound        = "Resource Not Found"
	TitleProfileNotFound = "Profile Not Found"
	TitleRateLimit       = "Rate Limit Exceeded"
	TitleUnauthorized    = "Authentication Required"
	TitleInternal        = "Internal Server Error"
	TitleUnavailable     = "Service Unavailable"
	TitleInvalidUUID     = "Invalid UUID Format"
	TitleFutureTimestamp = "Future Timestamp"
	TitleInvalidPeriod   = "Invalid Period"
	TitleBadRequest      = "Bad Request"
)
