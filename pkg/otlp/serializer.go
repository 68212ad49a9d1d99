// Package otlp implements the serialization boundary of the metrics
// pipeline: protobuf, JSON and newline-delimited JSON encodings of the OTLP
// schemas, the transport contract, and the OTLP exporter.
package otlp

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/brokle-ai/otelmetric/pkg/sdkerrors"
)

// Supported transport content types.
const (
	ContentTypeProtobuf = "application/x-protobuf"
	ContentTypeJSON     = "application/json"
	ContentTypeNDJSON   = "application/x-ndjson"
)

// Serializer encodes and decodes OTLP messages for one content type.
//
// The OTLP JSON mapping requires enum fields to carry their integer values,
// but the protobuf JSON codec emits symbolic names. The JSON paths therefore
// walk the decoded tree against the message descriptors and replace every
// enum name with its number, memoizing per-message field metadata.
type Serializer struct {
	contentType string
	fields      *lru.Cache[protoreflect.FullName, []fieldMeta]
}

type fieldMeta struct {
	jsonName string
	repeated bool
	enum     map[string]int32
	message  protoreflect.MessageDescriptor
}

// NewSerializer creates a serializer for one of the supported content types.
func NewSerializer(contentType string) (*Serializer, error) {
	switch contentType {
	case ContentTypeProtobuf, ContentTypeJSON, ContentTypeNDJSON:
	default:
		return nil, sdkerrors.ErrNotSupportedContentType
	}
	cache, err := lru.New[protoreflect.FullName, []fieldMeta](128)
	if err != nil {
		return nil, sdkerrors.Wrap(err, sdkerrors.CodeConfiguration, "descriptor cache")
	}
	return &Serializer{contentType: contentType, fields: cache}, nil
}

// ForTransport creates the serializer matching a transport's content type.
func ForTransport(t Transport) (*Serializer, error) {
	return NewSerializer(t.ContentType())
}

// ContentType returns the serializer's content type.
func (s *Serializer) ContentType() string { return s.contentType }

// Serialize encodes a message: protobuf wire bytes, a JSON object, or a JSON
// object terminated by a newline.
func (s *Serializer) Serialize(m proto.Message) ([]byte, error) {
	if s.contentType == ContentTypeProtobuf {
		b, err := proto.Marshal(m)
		if err != nil {
			return nil, sdkerrors.Wrap(err, sdkerrors.CodeSerialization, "protobuf marshal")
		}
		return b, nil
	}

	b, err := protojson.Marshal(m)
	if err != nil {
		return nil, sdkerrors.Wrap(err, sdkerrors.CodeSerialization, "json marshal")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, sdkerrors.Wrap(err, sdkerrors.CodeSerialization, "json decode")
	}
	s.coerceEnums(tree, m.ProtoReflect().Descriptor())
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, sdkerrors.Wrap(err, sdkerrors.CodeSerialization, "json encode")
	}
	if s.contentType == ContentTypeNDJSON {
		out = append(out, '\n')
	}
	return out, nil
}

// Hydrate merges a serialized payload into an existing message.
func (s *Serializer) Hydrate(payload []byte, into proto.Message) error {
	var err error
	switch s.contentType {
	case ContentTypeProtobuf:
		err = proto.Unmarshal(payload, into)
	case ContentTypeNDJSON:
		err = protojson.Unmarshal(bytes.TrimRight(payload, "\n"), into)
	default:
		err = protojson.Unmarshal(payload, into)
	}
	if err != nil {
		return sdkerrors.Wrap(err, sdkerrors.CodeSerialization, "hydrate")
	}
	return nil
}

// SerializeTraceID encodes a 16-byte trace id: raw bytes for protobuf,
// lowercase hex otherwise.
func (s *Serializer) SerializeTraceID(id []byte) []byte {
	return s.serializeID(id)
}

// SerializeSpanID encodes an 8-byte span id: raw bytes for protobuf,
// lowercase hex otherwise.
func (s *Serializer) SerializeSpanID(id []byte) []byte {
	return s.serializeID(id)
}

func (s *Serializer) serializeID(id []byte) []byte {
	if s.contentType == ContentTypeProtobuf {
		return id
	}
	out := make([]byte, hex.EncodedLen(len(id)))
	hex.Encode(out, id)
	return out
}

// coerceEnums rewrites symbolic enum values to their integers, recursing into
// message fields and repeated fields. A nil descriptor leaves the payload
// untouched.
func (s *Serializer) coerceEnums(node any, desc protoreflect.MessageDescriptor) {
	obj, ok := node.(map[string]any)
	if !ok || desc == nil {
		return
	}
	for _, f := range s.fieldMeta(desc) {
		v, present := obj[f.jsonName]
		if !present {
			continue
		}
		switch {
		case f.enum != nil && f.repeated:
			elems, ok := v.([]any)
			if !ok {
				continue
			}
			for i, e := range elems {
				if name, ok := e.(string); ok {
					if n, known := f.enum[name]; known {
						elems[i] = n
					}
				}
			}
		case f.enum != nil:
			if name, ok := v.(string); ok {
				if n, known := f.enum[name]; known {
					obj[f.jsonName] = n
				}
			}
		case f.repeated:
			elems, ok := v.([]any)
			if !ok {
				continue
			}
			for _, e := range elems {
				s.coerceEnums(e, f.message)
			}
		default:
			s.coerceEnums(v, f.message)
		}
	}
}

// fieldMeta returns the enum and message fields of a descriptor, memoized by
// message full name.
func (s *Serializer) fieldMeta(desc protoreflect.MessageDescriptor) []fieldMeta {
	if cached, ok := s.fields.Get(desc.FullName()); ok {
		return cached
	}
	var metas []fieldMeta
	fields := desc.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.IsMap() {
			continue
		}
		switch fd.Kind() {
		case protoreflect.EnumKind:
			values := fd.Enum().Values()
			table := make(map[string]int32, values.Len())
			for j := 0; j < values.Len(); j++ {
				ev := values.Get(j)
				table[string(ev.Name())] = int32(ev.Number())
			}
			metas = append(metas, fieldMeta{
				jsonName: snakeToCamel(string(fd.Name())),
				repeated: fd.IsList(),
				enum:     table,
			})
		case protoreflect.MessageKind, protoreflect.GroupKind:
			metas = append(metas, fieldMeta{
				jsonName: snakeToCamel(string(fd.Name())),
				repeated: fd.IsList(),
				message:  fd.Message(),
			})
		}
	}
	s.fields.Add(desc.FullName(), metas)
	return metas
}

// snakeToCamel converts a protobuf field name to its JSON payload key.
func snakeToCamel(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
