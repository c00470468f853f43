package domain

import "context"

// SubscriptionForm is the custom registration form an event may define.
// Fields and pricing are data driven: organizers define them at event creation
// time and the form is interpreted when someone registers.
type SubscriptionForm struct {
	ID     string      `json:"id"`
	Fields []FormField `json:"fields"`
}

// FormField is one question of a subscription form.
type FormField struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Type     string       `json:"type"` // "text", "choice", ...
	Required bool         `json:"required"`
	Choices  []FormChoice `json:"choices,omitempty"`
}

// FormChoice is a selectable answer for a choice field. PriceDelta, in minor
// currency units, is added to the event's base price when the choice is
// selected.
type FormChoice struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	PriceDelta int64  `json:"price_delta,omitempty"`
}

// priceDelta sums the price deltas of the choices selected in data.
func (f *SubscriptionForm) priceDelta(data map[string]string) int64 {
	if data == nil {
		return 0
	}
	var delta int64
	for _, field := range f.Fields {
		selected, ok := data[field.ID]
		if !ok {
			continue
		}
		for _, choice := range field.Choices {
			if choice.Value == selected {
				delta += choice.PriceDelta
				break
			}
		}
	}
	return delta
}

// FormSubmission is one person's filled subscription form.
type FormSubmission struct {
	ID       string            `json:"id"`
	FormID   string            `json:"form_id"`
	PersonID string            `json:"person_id"`
	Data     map[string]string `json:"data"`
}

// FormSubmissionRepository defines storage operations for form submissions.
type FormSubmissionRepository interface {
	Create(ctx context.Context, sub *FormSubmission) error
	GetByID(ctx context.Context, id string) (*FormSubmission, error)
}
