package indexdecision

// ErrorKind names the specific failure a vector-store indexing attempt
// reported, used to decide whether it is permanent or retryable.
type ErrorKind string

const (
	ErrorKindAuthentication       ErrorKind = "authentication"
	ErrorKindQuotaExceededForever ErrorKind = "quota_permanently_exceeded"
	ErrorKindFileNotFound         ErrorKind = "file_not_found"
	ErrorKindAccessDenied         ErrorKind = "access_denied"
	ErrorKindInvalidFormat        ErrorKind = "invalid_format"
	ErrorKindCorrupted            ErrorKind = "corrupted"
	ErrorKindTransientNetwork     ErrorKind = "transient_network"
	ErrorKindTimeout              ErrorKind = "timeout"
	ErrorKindRateLimited          ErrorKind = "rate_limited"
	ErrorKindServiceUnavailable   ErrorKind = "service_unavailable"
	ErrorKindDNSNotFound          ErrorKind = "dns_not_found"
	ErrorKindUnknown              ErrorKind = "unknown"
)

// permanentKinds lists the classifications no amount of retrying will fix:
// authentication, quota-permanently-exceeded, file-not-found,
// access-denied, invalid-format, corrupted.
var permanentKinds = map[ErrorKind]bool{
	ErrorKindAuthentication:       true,
	ErrorKindQuotaExceededForever: true,
	ErrorKindFileNotFound:         true,
	ErrorKindAccessDenied:         true,
	ErrorKindInvalidFormat:        true,
	ErrorKindCorrupted:            true,
}

// IsPermanent reports whether kind should move a skeleton straight to
// failed rather than scheduling a retry.
//
// ErrorKindDNSNotFound (ENOTFOUND) is classified as transient: a DNS
// failure usually clears when connectivity returns, and a persistent one is
// still bounded by the backoff growing toward MaxBackoff, so no separate
// escalation-to-permanent threshold is applied.
func IsPermanent(kind ErrorKind) bool {
	return permanentKinds[kind]
}
