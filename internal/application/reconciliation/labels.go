package reconciliation

import (
	"context"

	"go.opentelemetry.io/otel/baggage"
)

// withLabel attaches a run label to ctx as OTEL baggage. Invalid labels are
// dropped; they only ever decorate logs and outbound requests.
func withLabel(ctx context.Context, key, value string) context.Context {
	member, err := baggage.NewMemberRaw(key, value)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
