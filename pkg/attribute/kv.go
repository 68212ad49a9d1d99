package attribute

// KeyValue is a single attribute.
type KeyValue struct {
	Key   string
	Value Value
}

// Valid reports whether the attribute can be attached to a measurement.
// Empty keys and invalid values are rejected.
func (kv KeyValue) Valid() bool {
	return kv.Key != "" && kv.Value.vtype != INVALID
}

// String creates a string attribute.
func String(key, value string) KeyValue {
	return KeyValue{Key: key, Value: StringValue(value)}
}

// Bool creates a bool attribute.
func Bool(key string, value bool) KeyValue {
	return KeyValue{Key: key, Value: BoolValue(value)}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) KeyValue {
	return KeyValue{Key: key, Value: Int64Value(value)}
}

// Int creates an int64 attribute from an int.
func Int(key string, value int) KeyValue {
	return Int64(key, int64(value))
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) KeyValue {
	return KeyValue{Key: key, Value: Float64Value(value)}
}

// StringSlice creates a list attribute of string values.
func StringSlice(key string, values []string) KeyValue {
	elems := make([]Value, len(values))
	for i, v := range values {
		elems[i] = StringValue(v)
	}
	return KeyValue{Key: key, Value: ListValue(elems...)}
}

// BoolSlice creates a list attribute of bool values.
func BoolSlice(key string, values []bool) KeyValue {
	elems := make([]Value, len(values))
	for i, v := range values {
		elems[i] = BoolValue(v)
	}
	return KeyValue{Key: key, Value: ListValue(elems...)}
}

// Int64Slice creates a list attribute of int64 values.
func Int64Slice(key string, values []int64) KeyValue {
	elems := make([]Value, len(values))
	for i, v := range values {
		elems[i] = Int64Value(v)
	}
	return KeyValue{Key: key, Value: ListValue(elems...)}
}

// Float64Slice creates a list attribute of float64 values.
func Float64Slice(key string, values []float64) KeyValue {
	elems := make([]Value, len(values))
	for i, v := range values {
		elems[i] = Float64Value(v)
	}
	return KeyValue{Key: key, Value: ListValue(elems...)}
}

// List creates a list attribute from arbitrary values, allowing nesting.
func List(key string, values ...Value) KeyValue {
	return KeyValue{Key: key, Value: ListValue(values...)}
}
