package action

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ParseList converts decoded configuration data (YAML, JSON or viper
// values) into a List. A single object is treated as a one-entry list and
// a bare string as a reference.
func ParseList(v any) (List, error) {
	switch val := v.(type) {
	case List:
		return val, nil
	case string:
		return Ref(val), nil
	case []string:
		list := make(List, 0, len(val))
		for _, name := range val {
			list = append(list, Entry{Ref: name})
		}
		return list, nil
	case []any:
		list := make(List, 0, len(val))
		for _, item := range val {
			list = append(list, parseEntry(item))
		}
		return list, nil
	case map[string]any, map[any]any:
		return List{parseEntry(val)}, nil
	default:
		return nil, fmt.Errorf("action list must be a list, an object or a name, got %T", v)
	}
}

// IsList reports whether v has the shape of an action list
func IsList(v any) bool {
	switch v.(type) {
	case []any, []string, List:
		return true
	}
	return false
}

func parseEntry(item any) Entry {
	switch val := item.(type) {
	case string:
		return Entry{Ref: val}
	case map[string]any, map[any]any:
		var spec RuleSpec
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:  &spec,
			TagName: "mapstructure",
		})
		if err != nil {
			return Entry{Raw: item}
		}
		if err := decoder.Decode(val); err != nil {
			return Entry{Raw: item}
		}
		return Entry{Spec: &spec, Raw: item}
	case nil:
		return Entry{Raw: fmt.Sprintf("%v", item)}
	default:
		return Entry{Raw: item}
	}
}
