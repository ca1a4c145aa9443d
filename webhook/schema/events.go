package schema

/* Billing event schemas. Mirrors the provider's published event
 * catalogue: checkout, order, and subscription lifecycle events.
 * The provider spells "canceled" both ways, so both are registered.
 */

var subscriptionStatuses = []string{"active", "trialing", "past_due", "canceled", "incomplete"}

// Billing returns the registry of billing webhook events.
func Billing() *Registry {
	return NewRegistry(
		EventSchema{
			Type: "checkout.created",
			Fields: []Field{
				{Name: "id", Kind: UUID, Required: true},
				{Name: "customer_email", Kind: Email, Required: true},
				{Name: "product_id", Kind: UUID},
				{Name: "product_price_id", Kind: UUID},
				{Name: "status", Kind: String},
				{Name: "amount", Kind: Amount},
				{Name: "currency", Kind: Currency},
			},
			OneOf: []string{"product_id", "product_price_id"},
		},
		EventSchema{
			// order.created confirms payment; the critical activation event.
			Type: "order.created",
			Fields: []Field{
				{Name: "id", Kind: UUID, Required: true},
				{Name: "customer_email", Kind: Email, Required: true},
				{Name: "product_id", Kind: UUID},
				{Name: "product_price_id", Kind: UUID},
				{Name: "amount", Kind: Amount, Required: true},
				{Name: "currency", Kind: Currency, Required: true},
				{Name: "status", Kind: String},
				{Name: "created_at", Kind: DateTime},
			},
			OneOf: []string{"product_id", "product_price_id"},
		},
		EventSchema{
			Type: "subscription.created",
			Fields: []Field{
				{Name: "id", Kind: UUID, Required: true},
				{Name: "customer_email", Kind: Email, Required: true},
				{Name: "product_id", Kind: UUID},
				{Name: "product_price_id", Kind: UUID},
				{Name: "status", Kind: Enum, Required: true, Values: subscriptionStatuses},
				{Name: "current_period_start", Kind: DateTime},
				{Name: "current_period_end", Kind: DateTime},
				{Name: "cancel_at_period_end", Kind: Bool},
				{Name: "created_at", Kind: DateTime},
			},
			OneOf: []string{"product_id", "product_price_id"},
		},
		EventSchema{
			Type: "subscription.updated",
			Fields: []Field{
				{Name: "id", Kind: UUID, Required: true},
				{Name: "customer_email", Kind: Email, Required: true},
				{Name: "product_id", Kind: UUID},
				{Name: "product_price_id", Kind: UUID},
				{Name: "status", Kind: Enum, Required: true, Values: subscriptionStatuses},
				{Name: "current_period_start", Kind: DateTime},
				{Name: "current_period_end", Kind: DateTime},
				{Name: "cancel_at_period_end", Kind: Bool},
				{Name: "updated_at", Kind: DateTime},
			},
			OneOf: []string{"product_id", "product_price_id"},
		},
		canceledSchema("subscription.canceled"),
		canceledSchema("subscription.cancelled"),
	)
}

func canceledSchema(eventType string) EventSchema {
	return EventSchema{
		Type: eventType,
		Fields: []Field{
			{Name: "id", Kind: UUID, Required: true},
			{Name: "customer_email", Kind: Email, Required: true},
			{Name: "status", Kind: Enum, Required: true, Values: []string{"canceled", "cancelled"}},
			{Name: "canceled_at", Kind: DateTime},
			{Name: "cancel_at_period_end", Kind: Bool},
		},
	}
}
