package accounting

import (
	"time"
)

// Event is one authentication event as handed to the accounting layer:
// which IdP (and with which metadata), which SP, which user and which
// released attributes.
type Event struct {
	IdpEntityID string         `json:"idp_entity_id"`
	IdpMetadata map[string]any `json:"idp_metadata,omitempty"`

	SpEntityID string         `json:"sp_entity_id"`
	SpMetadata map[string]any `json:"sp_metadata,omitempty"`

	UserIdentifier string         `json:"user_identifier"`
	UserAttributes map[string]any `json:"user_attributes,omitempty"`

	HappenedAt time.Time `json:"happened_at"`
	ClientIP   string    `json:"client_ip,omitempty"`
}

// Validate reports the first missing required field.
func (e *Event) Validate() error {
	switch {
	case e.IdpEntityID == "":
		return errMissing("idp_entity_id")
	case e.SpEntityID == "":
		return errMissing("sp_entity_id")
	case e.UserIdentifier == "":
		return errMissing("user_identifier")
	}
	return nil
}
