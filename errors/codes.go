package errors

// ErrorCode is the stable application error code sent to clients
type ErrorCode int

const (
	ErrorCode_HTTP_OK          ErrorCode = 200
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1000
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1001
	ErrorCode_INTERNAL         ErrorCode = 1500

	ErrorCode_SESSION_DEVICE_UNAVAILABLE   ErrorCode = 3001
	ErrorCode_SESSION_CONNECTION_FAILED    ErrorCode = 3002
	ErrorCode_SESSION_SUMMARIZATION_FAILED ErrorCode = 3003
	ErrorCode_SESSION_TIMEOUT              ErrorCode = 3004
	ErrorCode_SESSION_ABANDONED            ErrorCode = 3005
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                      "HTTP_OK",
	ErrorCode_INVALID_ARGUMENT:             "INVALID_ARGUMENT",
	ErrorCode_INVALID_PAYLOAD:              "INVALID_PAYLOAD",
	ErrorCode_INTERNAL:                     "INTERNAL",
	ErrorCode_SESSION_DEVICE_UNAVAILABLE:   "SESSION_DEVICE_UNAVAILABLE",
	ErrorCode_SESSION_CONNECTION_FAILED:    "SESSION_CONNECTION_FAILED",
	ErrorCode_SESSION_SUMMARIZATION_FAILED: "SESSION_SUMMARIZATION_FAILED",
	ErrorCode_SESSION_TIMEOUT:              "SESSION_TIMEOUT",
	ErrorCode_SESSION_ABANDONED:            "SESSION_ABANDONED",
}

// String implements fmt.Stringer
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
