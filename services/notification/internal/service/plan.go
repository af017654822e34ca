package service

import (
	"fmt"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
)

// Audience кому адресовано уведомление
type Audience string

const (
	AudienceDoctor Audience = "doctor"
	AudienceAdmin  Audience = "admin"
)

// Channel канал доставки
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Delivery одна доставка из плана события
type Delivery struct {
	Audience Audience
	Channel  Channel
}

func (d Delivery) String() string {
	return string(d.Audience) + "/" + string(d.Channel)
}

var (
	doctorWhatsApp = Delivery{AudienceDoctor, ChannelWhatsApp}
	doctorEmail    = Delivery{AudienceDoctor, ChannelEmail}
	adminEmail     = Delivery{AudienceAdmin, ChannelEmail}
)

// plans кто и по каким каналам получает уведомление о событии
var plans = map[string][]Delivery{
	events.OrderPlaced:        {doctorWhatsApp, doctorEmail, adminEmail},
	events.OrderStatusChanged: {doctorWhatsApp, doctorEmail},
	events.PaymentRecorded:    {doctorWhatsApp, doctorEmail},
	events.DoctorRegistered:   {adminEmail},
	events.DoctorApproved:     {doctorWhatsApp, doctorEmail},
	events.DoctorRejected:     {doctorWhatsApp, doctorEmail},
}

// PlanFor план доставки; nil для неизвестного типа
func PlanFor(eventType string) []Delivery {
	return plans[eventType]
}

// TemplateNames шаблоны, нужные для доставки.
// WhatsApp: <event>.whatsapp; email: <event>.[admin_]email_subject и <event>.[admin_]email_body
func TemplateNames(eventType string, d Delivery) []string {
	prefix := eventType + "."
	if d.Audience == AudienceAdmin {
		prefix += "admin_"
	}
	switch d.Channel {
	case ChannelWhatsApp:
		return []string{prefix + "whatsapp"}
	case ChannelEmail:
		return []string{prefix + "email_subject", prefix + "email_body"}
	}
	return nil
}

// ValidateTemplates проверяет при старте, что для каждого плана есть шаблоны
func ValidateTemplates(r Renderer) error {
	for eventType, plan := range plans {
		for _, d := range plan {
			for _, name := range TemplateNames(eventType, d) {
				if !r.Has(name) {
					return fmt.Errorf("template %s is missing", name)
				}
			}
		}
	}
	return nil
}
