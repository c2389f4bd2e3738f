package types

// LineAttribute is an opaque key/value pair carried on a cart line. The
// storefront uses these for prescription and lens customization data; this
// service never interprets them.
type LineAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LineAttributes is the ordered attribute set of one cart line.
type LineAttributes []LineAttribute

// Get returns the value for key and whether it was present.
func (a LineAttributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
