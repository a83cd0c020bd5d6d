package cluster

import "fmt"

// asUint64 normalizes the integer forms the CBOR decoder produces.
func asUint64(raw any) (uint64, bool) {
	switch v := raw.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func decodeUint8(raw any) (any, error) {
	u, ok := asUint64(raw)
	if !ok || u > 0xFF {
		return nil, fmt.Errorf("not a uint8: %v (%T)", raw, raw)
	}
	return uint8(u), nil
}

func decodeUint32(raw any) (any, error) {
	u, ok := asUint64(raw)
	if !ok || u > 0xFFFFFFFF {
		return nil, fmt.Errorf("not a uint32: %v (%T)", raw, raw)
	}
	return uint32(u), nil
}

func decodeUint64(raw any) (any, error) {
	u, ok := asUint64(raw)
	if !ok {
		return nil, fmt.Errorf("not a uint64: %v (%T)", raw, raw)
	}
	return u, nil
}

// decodeNullableUint8 maps CBOR null to a nil *uint8.
func decodeNullableUint8(raw any) (any, error) {
	if raw == nil {
		return (*uint8)(nil), nil
	}
	v, err := decodeUint8(raw)
	if err != nil {
		return nil, err
	}
	u := v.(uint8)
	return &u, nil
}

// decodeNullableUint64 maps CBOR null to a nil *uint64.
func decodeNullableUint64(raw any) (any, error) {
	if raw == nil {
		return (*uint64)(nil), nil
	}
	v, err := decodeUint64(raw)
	if err != nil {
		return nil, err
	}
	u := v.(uint64)
	return &u, nil
}

func decodeFloat32(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return float32(v), nil
	case float32:
		return v, nil
	default:
		return nil, fmt.Errorf("not a float: %v (%T)", raw, raw)
	}
}

func decodeString(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %v (%T)", raw, raw)
	}
	return s, nil
}

// decodeStructMap normalizes the raw map forms the CBOR decoder
// produces for an integer-keyed struct.
func decodeStructMap(raw any) (map[uint64]any, error) {
	switch m := raw.(type) {
	case map[any]any:
		out := make(map[uint64]any, len(m))
		for k, v := range m {
			key, ok := asUint64(k)
			if !ok {
				return nil, fmt.Errorf("non-integer map key: %v (%T)", k, k)
			}
			out[key] = v
		}
		return out, nil
	case map[uint64]any:
		return m, nil
	default:
		return nil, fmt.Errorf("not a map: %v (%T)", raw, raw)
	}
}
