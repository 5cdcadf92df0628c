package yieldd

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/metadata"
)

// args are the positional JSON arguments of an action.
type args []json.RawMessage

func (a args) present(i int) bool {
	return i < len(a) && !bytes.Equal(bytes.TrimSpace(a[i]), []byte("null"))
}

func (a args) decode(i int, name string, out interface{}) error {
	if !a.present(i) {
		return common.Invalid("argument %d (%s) is required", i, name)
	}
	if err := json.Unmarshal(a[i], out); err != nil {
		return common.Invalid("argument %d (%s): %v", i, name, err)
	}
	return nil
}

func (a args) expect(max int) error {
	if len(a) > max {
		return common.Invalid("expected at most %d arguments, got %d", max, len(a))
	}
	return nil
}

func (a args) str(i int, name string) (string, error) {
	var s string
	err := a.decode(i, name, &s)
	return strings.TrimSpace(s), err
}

func (a args) optStr(i int, name string) (string, error) {
	if !a.present(i) {
		return "", nil
	}
	return a.str(i, name)
}

// optValue distinguishes an explicit null, used to erase a metadata key.
func (a args) optValue(i int, name string) (*string, error) {
	if !a.present(i) {
		return nil, nil
	}
	s, err := a.str(i, name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// uint accepts JSON numbers and decimal strings.
func (a args) uint(i int, name string) (uint64, error) {
	if !a.present(i) {
		return 0, common.Invalid("argument %d (%s) is required", i, name)
	}
	raw := strings.Trim(string(bytes.TrimSpace(a[i])), `"`)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, common.Invalid("argument %d (%s) must be an unsigned integer", i, name)
	}
	return v, nil
}

func (a args) optUint(i int, name string) (uint64, error) {
	if !a.present(i) {
		return 0, nil
	}
	return a.uint(i, name)
}

func (a args) optInt(i int, name string) (int, error) {
	if !a.present(i) {
		return 0, nil
	}
	var v int
	err := a.decode(i, name, &v)
	return v, err
}

func (a args) boolean(i int, name string) (bool, error) {
	if !a.present(i) {
		return false, nil
	}
	var v bool
	err := a.decode(i, name, &v)
	return v, err
}

func (a args) strs(i int, name string) ([]string, error) {
	if !a.present(i) {
		return []string{}, nil
	}
	var out []string
	err := a.decode(i, name, &out)
	return out, err
}

func (a args) asset(i int, name string) (asset.Asset, error) {
	s, err := a.str(i, name)
	if err != nil {
		return asset.Asset{}, err
	}
	return asset.Parse(s)
}

func (a args) symbol(i int, name string) (asset.Symbol, error) {
	s, err := a.str(i, name)
	if err != nil {
		return asset.Symbol{}, err
	}
	return asset.ParseSymbol(s)
}

func (a args) extSymbol(i int, name string) (asset.ExtendedSymbol, error) {
	s, err := a.str(i, name)
	if err != nil {
		return asset.ExtendedSymbol{}, err
	}
	return asset.ParseExtendedSymbol(s)
}

// pairs accepts either [{"key":..,"value":..}] or a {"key": "value"} object.
func (a args) pairs(i int, name string) ([]metadata.Pair, error) {
	if !a.present(i) {
		return []metadata.Pair{}, nil
	}
	raw := bytes.TrimSpace(a[i])
	if len(raw) > 0 && raw[0] == '{' {
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, common.Invalid("argument %d (%s): %v", i, name, err)
		}
		out := make([]metadata.Pair, 0, len(m))
		for k, v := range m {
			out = append(out, metadata.Pair{Key: k, Value: v})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out, nil
	}
	var out []metadata.Pair
	err := a.decode(i, name, &out)
	return out, err
}
