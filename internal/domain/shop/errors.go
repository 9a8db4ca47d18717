package shop

import "errors"

var (
	ErrShopNotFound        = errors.New("shop not found")
	ErrInvalidWebhookToken = errors.New("invalid webhook callback token")
)
