// Package onboarding defines the record collected by the onboarding
// conversation and the structured action the model uses to submit it.
package onboarding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DayOfWeek is one of the seven canonical English day names.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

// Days lists the valid DayOfWeek values in calendar order.
var Days = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Service is the first service the business offers.
type Service struct {
	ServiceName       string  `json:"serviceName" validate:"required" jsonschema_description:"Name of the service"`
	DurationInMinutes int     `json:"durationInMinutes" validate:"gt=0" jsonschema_description:"How long the service takes, in minutes"`
	Price             float64 `json:"price" validate:"gte=0" jsonschema_description:"Price of the service"`
	PriceCurrency     string  `json:"priceCurrency" validate:"required,iso4217" jsonschema_description:"ISO 4217 currency code, e.g. USD"`
}

// BusinessHours is one weekly opening window.
type BusinessHours struct {
	StartTime24hr string    `json:"startTime24hr" validate:"required,datetime=15:04" jsonschema:"pattern=^([01][0-9]|2[0-3]):[0-5][0-9]$" jsonschema_description:"Opening time, HH:MM in 24 hour format"`
	EndTime24hr   string    `json:"endTime24hr" validate:"required,datetime=15:04" jsonschema:"pattern=^([01][0-9]|2[0-3]):[0-5][0-9]$" jsonschema_description:"Closing time, HH:MM in 24 hour format"`
	DayOfWeek     DayOfWeek `json:"dayOfWeek" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday" jsonschema:"enum=Monday,enum=Tuesday,enum=Wednesday,enum=Thursday,enum=Friday,enum=Saturday,enum=Sunday"`
}

// Record is the onboarding questionnaire result. Every field is mandatory.
type Record struct {
	BusinessName  string          `json:"businessName" validate:"required" jsonschema_description:"Name of the business"`
	FirstServices Service         `json:"firstServices"`
	BusinessHours []BusinessHours `json:"businessHours" validate:"required,min=1,dive" jsonschema:"minItems=1"`
	Email         string          `json:"yourEmailAddress" validate:"required,email" jsonschema:"format=email" jsonschema_description:"Contact email address of the owner"`
	TakesPayments bool            `json:"doYouWantUsToTakePaymentsDirectlyFromYourCustomers" jsonschema_description:"Whether payments are taken directly from customers"`
}

// JSON returns the canonical encoding of the record.
func (r *Record) JSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal onboarding record: %w", err)
	}
	return data, nil
}

// Summary renders r as a short human readable confirmation.
func (r *Record) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s offers %s (%d min, %.2f %s).", r.BusinessName,
		r.FirstServices.ServiceName, r.FirstServices.DurationInMinutes,
		r.FirstServices.Price, r.FirstServices.PriceCurrency)
	for _, h := range r.BusinessHours {
		fmt.Fprintf(&sb, " %s %s-%s.", h.DayOfWeek, h.StartTime24hr, h.EndTime24hr)
	}
	return sb.String()
}
