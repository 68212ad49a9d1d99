// Package resource describes the entity producing telemetry.
package resource

import (
	"github.com/oklog/ulid/v2"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
)

// Well-known resource attribute keys.
const (
	ServiceNameKey       = "service.name"
	ServiceInstanceIDKey = "service.instance.id"
	SDKNameKey           = "telemetry.sdk.name"
	SDKLanguageKey       = "telemetry.sdk.language"
)

// Resource is an immutable attribute set identifying a telemetry producer.
type Resource struct {
	attrs     attribute.Set
	schemaURL string
}

// New creates a resource from attributes.
func New(attrs ...attribute.KeyValue) *Resource {
	return &Resource{attrs: attribute.NewSet(attrs...)}
}

// NewWithSchemaURL creates a resource carrying a schema URL.
func NewWithSchemaURL(schemaURL string, attrs ...attribute.KeyValue) *Resource {
	return &Resource{attrs: attribute.NewSet(attrs...), schemaURL: schemaURL}
}

// Default returns a resource identifying this SDK with a generated unique
// instance id.
func Default() *Resource {
	return New(
		attribute.String(ServiceNameKey, "unknown_service"),
		attribute.String(ServiceInstanceIDKey, ulid.Make().String()),
		attribute.String(SDKNameKey, "otelmetric"),
		attribute.String(SDKLanguageKey, "go"),
	)
}

// Empty returns a resource with no attributes.
func Empty() *Resource { return &Resource{} }

// Attributes returns the resource attribute set.
func (r *Resource) Attributes() attribute.Set {
	if r == nil {
		return attribute.EmptySet()
	}
	return r.attrs
}

// SchemaURL returns the resource schema URL.
func (r *Resource) SchemaURL() string {
	if r == nil {
		return ""
	}
	return r.schemaURL
}

// Merge overlays updating on base; updating wins on key conflicts. The schema
// URL of updating wins when set.
func Merge(base, updating *Resource) *Resource {
	kvs := append(base.Attributes().ToSlice(), updating.Attributes().ToSlice()...)
	schema := base.SchemaURL()
	if updating.SchemaURL() != "" {
		schema = updating.SchemaURL()
	}
	return &Resource{attrs: attribute.NewSet(kvs...), schemaURL: schema}
}
