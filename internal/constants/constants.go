package constants

// Order payment status
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusDeclined  = "declined"
	PaymentStatusCanceled  = "canceled"
)

// Order delivery status
const (
	DeliveryStatusWaiting   = "waiting"
	DeliveryStatusEnRoute   = "en_route"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusCanceled  = "canceled"
)

// Delivery time slots
const (
	TimeSlotMorning   = "morning"
	TimeSlotAfternoon = "afternoon"
)

// Order source
const (
	OrderSourceManual       = "manual"
	OrderSourceSubscription = "subscription"
)

// Payment methods
const (
	PaymentMethodPix  = "pix"
	PaymentMethodCard = "card"
)

// Payment gateway provider types
const (
	PaymentProviderPixgate  = "pixgate"
	PaymentProviderCardgate = "cardgate"
)

// Charge (payment attempt) status
const (
	ChargeStatusInitiated = "initiated"
	ChargeStatusPending   = "pending"
	ChargeStatusConfirmed = "confirmed"
	ChargeStatusExpired   = "expired"
	ChargeStatusFailed    = "failed"
)

// Charge scope: what the charge pays for
const (
	ChargeScopeOrder        = "order"
	ChargeScopeSubscription = "subscription"
)

// Subscription status
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPaused   = "paused"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription frequency
const (
	SubscriptionFrequencyWeekly   = "weekly"
	SubscriptionFrequencyBiweekly = "biweekly"
)

// Customer status
const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)

// Product unit labels
const (
	ProductUnitBox   = "box"
	ProductUnitBunch = "bunch"
	ProductUnitKg    = "kg"
)

// PIX key types accepted in the bank settings
const (
	PixKeyTypeCPF    = "cpf"
	PixKeyTypeCNPJ   = "cnpj"
	PixKeyTypeEmail  = "email"
	PixKeyTypePhone  = "phone"
	PixKeyTypeRandom = "random"
)

// Login log status
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"
)

// Captcha providers
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// Queue names and task types
const (
	QueueDefault            = "default"
	TaskChargeExpire        = "charge:timeout_expire"
	TaskChargeReissue       = "charge:reissue"
	TaskOrderStatusEmail    = "order:status_email"
	TaskSubscriptionRenewal = "subscription:renewal"
)

// Cache defaults
const (
	RedisPrefixDefault = "hf"
)

// Setting keys and well-known fields
const (
	SettingKeyDeliveryConfig        = "delivery_config"
	SettingKeyFiscalConfig          = "fiscal_config"
	SettingKeyBankConfig            = "bank_config"
	SettingKeyOrderConfig           = "order_config"
	SettingKeySMTPConfig            = "smtp_config"
	SettingKeyCaptchaConfig         = "captcha_config"
	SettingKeyPixgateConfig         = "pixgate_config"
	SettingKeyCardgateConfig        = "cardgate_config"
	SettingFieldCutoffTime          = "cutoff_time"
	SettingFieldHolidays            = "holidays"
	SettingFieldDefaultTimeSlot     = "default_time_slot"
	SettingFieldChargeExpireMinutes = "charge_expire_minutes"
)

// Scheduling defaults
const (
	DefaultDeliveryCutoff = "12:00"
)
