package contract

import "errors"

var (
	ErrCaseNotFound      = errors.New("case not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrNoEmailOnFile     = errors.New("no email address on file")
	ErrRecordStore       = errors.New("record store request failed")
	ErrMessagingGateway  = errors.New("messaging gateway request failed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrSmsNotAuthorized  = errors.New("sms dispatch not authorized for this workflow")
	ErrAlreadyDispatched = errors.New("workflow already dispatched")
)
