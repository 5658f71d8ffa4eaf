package domain

import "errors"

var (
	ErrNotFound          = errors.New("plan_not_found")
	ErrInvalidCode       = errors.New("invalid_plan_code")
	ErrInvalidTitle      = errors.New("invalid_plan_title")
	ErrInvalidDuration   = errors.New("invalid_plan_duration")
	ErrInvalidPrice      = errors.New("invalid_plan_price")
	ErrInvalidPercentage = errors.New("invalid_plan_percentage")
	ErrInvalidCurrency   = errors.New("invalid_plan_currency")
	ErrCodeAlreadyExists = errors.New("plan_code_already_exists")
)
