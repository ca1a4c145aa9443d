package schema

import (
	"net/mail"
	"slices"
	"time"

	"github.com/google/uuid"
)

/* Closed registry of known webhook event shapes, discriminated by the
 * envelope "type" field. Anything not registered is rejected outright:
 * the system never processes an event shape it was not built to
 * understand. Built once at process start, never mutated afterwards.
 */

// FieldError describes one validation failure. Messages describe the
// expected shape only and never echo received values, so rejection
// responses cannot leak attacker-controlled payload contents.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Kind is the primitive shape a field must have.
type Kind int

const (
	String Kind = iota + 1
	UUID
	Email
	Amount // integer > 0, minor currency units
	Currency
	DateTime
	Bool
	Enum
)

// Field describes one data field of an event schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Values   []string // Enum only
}

// EventSchema is the permitted shape for one event type.
type EventSchema struct {
	Type   string
	Fields []Field
	// OneOf requires at least one of the named fields to be present.
	OneOf []string
}

// Registry maps event type to its one permitted schema.
type Registry struct {
	schemas map[string]EventSchema
}

// NewRegistry builds a registry from the given schemas.
func NewRegistry(schemas ...EventSchema) *Registry {
	m := make(map[string]EventSchema, len(schemas))
	for _, s := range schemas {
		m[s.Type] = s
	}
	return &Registry{schemas: m}
}

// Types returns the registered event types.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

/* Validate checks a fully parsed envelope {type, id, data} against the
 * registered schema for eventType. It must only ever run after
 * signature verification: it establishes well-formedness, not
 * authenticity.
 *
 * On success it returns the cleaned data map containing only the
 * schema's known fields; unknown extras are dropped, not propagated.
 */
func (r *Registry) Validate(eventType string, envelope map[string]any) (map[string]any, []FieldError) {
	schema, ok := r.schemas[eventType]
	if !ok {
		return nil, []FieldError{{Field: "type", Message: "unknown event type", Code: "unknown_event_type"}}
	}

	var errs []FieldError

	id, ok := envelope["id"].(string)
	if !ok || id == "" {
		errs = append(errs, FieldError{Field: "id", Message: "event id is required", Code: "required"})
	} else if _, err := uuid.Parse(id); err != nil {
		errs = append(errs, FieldError{Field: "id", Message: "event id must be a UUID", Code: "invalid_uuid"})
	}

	data, ok := envelope["data"].(map[string]any)
	if !ok {
		errs = append(errs, FieldError{Field: "data", Message: "data object is required", Code: "required"})
		return nil, errs
	}

	cleaned := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		value, present := data[field.Name]
		if !present || value == nil {
			if field.Required {
				errs = append(errs, FieldError{
					Field:   "data." + field.Name,
					Message: "field is required",
					Code:    "required",
				})
			}
			continue
		}
		if fieldErr, ok := checkField(field, value); !ok {
			errs = append(errs, fieldErr)
			continue
		}
		cleaned[field.Name] = value
	}

	if len(schema.OneOf) > 0 && !anyPresent(data, schema.OneOf) {
		errs = append(errs, FieldError{
			Field:   "data." + schema.OneOf[0],
			Message: "one of the alternative identifier fields is required",
			Code:    "required_one_of",
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return cleaned, nil
}

func anyPresent(data map[string]any, names []string) bool {
	for _, name := range names {
		if v, ok := data[name]; ok && v != nil {
			return true
		}
	}
	return false
}

func checkField(field Field, value any) (FieldError, bool) {
	path := "data." + field.Name

	switch field.Kind {
	case String:
		if _, ok := value.(string); !ok {
			return FieldError{Field: path, Message: "must be a string", Code: "invalid_type"}, false
		}
	case UUID:
		s, ok := value.(string)
		if !ok {
			return FieldError{Field: path, Message: "must be a string", Code: "invalid_type"}, false
		}
		if _, err := uuid.Parse(s); err != nil {
			return FieldError{Field: path, Message: "must be a UUID", Code: "invalid_uuid"}, false
		}
	case Email:
		s, ok := value.(string)
		if !ok {
			return FieldError{Field: path, Message: "must be a string", Code: "invalid_type"}, false
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return FieldError{Field: path, Message: "must be a valid email address", Code: "invalid_email"}, false
		}
	case Amount:
		// JSON numbers arrive as float64; amounts are integral minor units.
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return FieldError{Field: path, Message: "must be an integer amount in minor units", Code: "invalid_amount"}, false
		}
		if f <= 0 {
			return FieldError{Field: path, Message: "must be a positive amount", Code: "invalid_amount"}, false
		}
	case Currency:
		s, ok := value.(string)
		if !ok || len(s) != 3 {
			return FieldError{Field: path, Message: "must be a 3-character currency code", Code: "invalid_currency"}, false
		}
	case DateTime:
		s, ok := value.(string)
		if !ok {
			return FieldError{Field: path, Message: "must be a string", Code: "invalid_type"}, false
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return FieldError{Field: path, Message: "must be an RFC 3339 timestamp", Code: "invalid_datetime"}, false
		}
	case Bool:
		if _, ok := value.(bool); !ok {
			return FieldError{Field: path, Message: "must be a boolean", Code: "invalid_type"}, false
		}
	case Enum:
		s, ok := value.(string)
		if !ok || !slices.Contains(field.Values, s) {
			return FieldError{Field: path, Message: "must be one of the permitted values", Code: "invalid_enum"}, false
		}
	}
	return FieldError{}, true
}
