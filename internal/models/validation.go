package models

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors aggregates multiple validation failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// AddMessage records a validation error for a field.
func (v *ValidationErrors) AddMessage(field, message string) {
	if message == "" {
		return
	}
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

// Err returns nil if there are no errors, otherwise the aggregate.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Error implements error.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	var builder strings.Builder
	for i, err := range v.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.Error())
	}

	return builder.String()
}

// Validate checks conversation identity fields.
func (c *Conversation) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.SubjectID) == "" {
		errs.AddMessage("subject_id", "is required")
	}
	if strings.TrimSpace(c.InitiatorID) == "" {
		errs.AddMessage("initiator_id", "is required")
	}
	if strings.TrimSpace(c.CounterpartID) == "" {
		errs.AddMessage("counterpart_id", "is required")
	}
	if c.InitiatorID != "" && c.InitiatorID == c.CounterpartID {
		errs.AddMessage("counterpart_id", "must differ from initiator")
	}

	return errs.Err()
}

// Validate checks message fields required for a send.
func (m *Message) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(m.ConversationID) == "" {
		errs.AddMessage("conversation_id", "is required")
	}
	if strings.TrimSpace(m.SenderID) == "" {
		errs.AddMessage("sender_id", "is required")
	}
	if strings.TrimSpace(m.Content) == "" {
		errs.AddMessage("content", "is required")
	}

	return errs.Err()
}

// Validate checks notification fields.
func (n *Notification) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(n.PrincipalID) == "" {
		errs.AddMessage("principal_id", "is required")
	}
	if !ValidNotificationType(n.Type) {
		errs.AddMessage("type", fmt.Sprintf("unknown type %q", n.Type))
	}

	return errs.Err()
}
