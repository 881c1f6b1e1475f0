package service

import "errors"

// Shared service sentinels, mapped to response codes in the handlers.
var (
	ErrInputInvalid               = errors.New("input invalid")
	ErrCustomerNotFound           = errors.New("customer not found")
	ErrCustomerEmailTaken         = errors.New("customer email already registered")
	ErrAddressNotFound            = errors.New("address not found")
	ErrProductNotFound            = errors.New("product not found")
	ErrProductInactive            = errors.New("product inactive")
	ErrOrderNotFound              = errors.New("order not found")
	ErrOrderItemsEmpty            = errors.New("order items empty")
	ErrOrderCanceled              = errors.New("order canceled")
	ErrOrderNotPending            = errors.New("order not pending payment")
	ErrStatusInvalid              = errors.New("status transition invalid")
	ErrSubscriptionNotFound       = errors.New("subscription not found")
	ErrSubscriptionInactive       = errors.New("subscription not active")
	ErrSubscriptionWeekdayInvalid = errors.New("subscription weekday invalid")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotPending    = errors.New("payment not pending")
	ErrPaymentNotExpired    = errors.New("payment not expired")
	ErrPaymentMethodInvalid = errors.New("payment method invalid")
	ErrProviderTypeInvalid  = errors.New("payment provider invalid")
	ErrReissueInProgress    = errors.New("payment reissue already in progress")

	ErrGatewayConfigInvalid   = errors.New("gateway config invalid")
	ErrGatewayRequestFailed   = errors.New("gateway request failed")
	ErrGatewayResponseInvalid = errors.New("gateway response invalid")

	ErrSettingInvalid = errors.New("setting value invalid")
	ErrNoBusinessDay  = errors.New("no business day found within the search window")

	ErrAdminNotFound        = errors.New("admin not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordPolicy       = errors.New("password does not meet the policy")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrTooManyLoginAttempts = errors.New("too many login attempts")

	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")

	ErrDashboardRangeInvalid = errors.New("dashboard range invalid")
)
