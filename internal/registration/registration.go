// Package registration holds the user-facing and administrative workflows
// over the profile store: admin resolution at sign-in, profile completion,
// one-time game selection and the admin console.
package registration

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/playperu/beastgames/internal/registration")

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

func userAttr(id string) trace.SpanStartEventOption {
	return trace.WithAttributes(attribute.String("user.id", id))
}

func recordErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
