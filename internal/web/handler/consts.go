package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// AdminPath prefixes every administrative route.
	AdminPath = RootPath + "admin"

	// StatusSuccess and StatusFailed are the values of the "status" body field.
	StatusSuccess = "success"
	StatusFailed  = "error"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg, db or auth service is nil"
)
