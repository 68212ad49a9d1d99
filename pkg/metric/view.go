package metric

import (
	"strings"

	"github.com/brokle-ai/otelmetric/pkg/attribute"
	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// View maps matching instruments onto a stream configuration. Criteria fields
// select instruments; the remaining fields override the produced stream.
type View struct {
	// InstrumentName selects instruments by name. A trailing '*' matches a
	// prefix; "*" matches every name.
	InstrumentName string
	// InstrumentKind selects by kind; zero matches any kind.
	InstrumentKind InstrumentKind
	// MeterName selects by instrumentation scope name; empty matches any.
	MeterName string

	// Name renames the produced stream.
	Name string
	// Description replaces the stream description.
	Description string
	// AttributeKeys, when non-nil, is the allow-list of attribute keys kept
	// on the stream; other keys are dropped before aggregation.
	AttributeKeys []string
	// Aggregation overrides the stream aggregation.
	Aggregation Aggregation
}

func (v View) validate() error {
	if v.InstrumentName == "" && v.InstrumentKind == 0 && v.MeterName == "" {
		return sdkerrors.New(sdkerrors.CodeViewInvalid,
			"view criteria must name an instrument, kind, or meter")
	}
	if v.Aggregation != nil {
		if err := v.Aggregation.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (v View) matches(kind InstrumentKind, name, meterName string) bool {
	if v.InstrumentKind != 0 && v.InstrumentKind != kind {
		return false
	}
	if v.MeterName != "" && v.MeterName != meterName {
		return false
	}
	if v.InstrumentName != "" {
		if prefix, ok := strings.CutSuffix(v.InstrumentName, "*"); ok {
			return strings.HasPrefix(name, prefix)
		}
		return v.InstrumentName == name
	}
	return true
}

// resolvedStream is one stream an instrument feeds after view resolution.
type resolvedStream struct {
	name          string
	description   string
	unit          string
	aggregation   Aggregation
	attributeKeys []string
}

// resolveViews returns the stream configurations for an instrument: one per
// matching view, or the default stream when no view matches.
func resolveViews(views []View, kind InstrumentKind, name, description, unit, meterName string) []resolvedStream {
	var out []resolvedStream
	for _, v := range views {
		if !v.matches(kind, name, meterName) {
			continue
		}
		r := resolvedStream{
			name:          name,
			description:   description,
			unit:          unit,
			aggregation:   v.Aggregation,
			attributeKeys: v.AttributeKeys,
		}
		if v.Name != "" {
			r.name = v.Name
		}
		if v.Description != "" {
			r.description = v.Description
		}
		out = append(out, r)
	}
	if out == nil {
		out = []resolvedStream{{name: name, description: description, unit: unit}}
	}
	return out
}

// attributeFilter builds the stream attribute processor for an allow-list;
// nil means keep everything.
func attributeFilter(keys []string) func(attribute.Set) (attribute.Set, []attribute.KeyValue) {
	if keys == nil {
		return nil
	}
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return func(s attribute.Set) (attribute.Set, []attribute.KeyValue) {
		return s.Filter(allowed)
	}
}
