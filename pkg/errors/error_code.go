package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Parameter and validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeUnknownParameter     ErrorCode = 102
	ErrCodeParameterOutOfRange  ErrorCode = 103
	ErrCodeInvalidParameterSpec ErrorCode = 104
	ErrCodeInvalidChoice        ErrorCode = 105
	ErrCodeInvalidCadence       ErrorCode = 106

	// Data errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeQueryFailed      ErrorCode = 201
	ErrCodeDataLoadFailed   ErrorCode = 202
	ErrCodeEmptyDataset     ErrorCode = 203
	ErrCodeInsufficientData ErrorCode = 204

	// Stage errors (300-399)
	ErrCodeStageNotFound      ErrorCode = 300
	ErrCodeStageAlreadyExists ErrorCode = 301
	ErrCodeStageVersion       ErrorCode = 302
	ErrCodeStageFailed        ErrorCode = 303

	// Backtest errors (400-499)
	ErrCodeBacktestConfigError   ErrorCode = 400
	ErrCodeBacktestNoTradingDays ErrorCode = 401
	ErrCodeBacktestNotRunnable   ErrorCode = 402
	ErrCodeBacktestNoData        ErrorCode = 403
)
