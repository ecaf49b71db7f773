package httpwire

// Headers is the parsed header block of one response attempt. Keys are
// case-insensitive; a duplicated field keeps its last value.
type Headers struct{ underlying map[string]string }

func NewHeaders() Headers {
	return Headers{underlying: make(map[string]string)}
}

// HeadersFrom builds a header map from raw fields in wire order.
func HeadersFrom(fields []Field) Headers {
	h := NewHeaders()
	for _, field := range fields {
		h.Set(string(field.Name), string(field.Value))
	}
	return h
}

func (h *Headers) Get(key string) (value string, ok bool) {
	if h.underlying == nil {
		return "", false
	}
	value, ok = h.underlying[CanonicalFieldName(key)]
	return
}

func (h *Headers) Set(key, value string) {
	if h.underlying == nil {
		h.underlying = make(map[string]string)
	}
	h.underlying[CanonicalFieldName(key)] = value
}

func (h *Headers) Del(key string) {
	delete(h.underlying, CanonicalFieldName(key))
}

func (h *Headers) Len() int { return len(h.underlying) }

// Fields returns a copy of the key-values in the header.
func (h *Headers) Fields() map[string]string {
	clone := make(map[string]string, len(h.underlying))
	for k, v := range h.underlying {
		clone[k] = v
	}
	return clone
}
