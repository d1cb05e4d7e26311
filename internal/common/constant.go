package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// ErrorCodeTrailerName is the gRPC trailer key carrying the DomainError code.
const ErrorCodeTrailerName = "error-code"
