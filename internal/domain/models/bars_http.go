package models

// Requests for the bars HTTP API. Defined in domain for consistency and reuse.

type BarsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"1min" validate:"oneof=1s 1min 5min 15min 1h session"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

type SubscriptionRequest struct {
	Symbols    []string `json:"symbols" validate:"required,min=1,dive,required"`
	ConsumerID string   `json:"consumer_id" validate:"required"`
}

type BackfillRequest struct {
	Symbol   string `json:"symbol" validate:"required"`
	Interval string `json:"interval" default:"1min" validate:"oneof=1min 5min 15min 1h session"`
	From     int64  `json:"from" validate:"required,gt=0"`
	To       int64  `json:"to" validate:"required,gtfield=From"`
}
