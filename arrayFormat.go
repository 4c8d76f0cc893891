package querystring

// ArrayFormat selects how the key of a sequence element is composed from the
// key of the sequence that holds it.
//
//	ArrayIndices:  a[0]=b&a[1]=c
//	ArrayBrackets: a[]=b&a[]=c
//	ArrayRepeat:   a=b&a=c
type ArrayFormat string

const (
	// ArrayIndices appends the element index in brackets. This is the default.
	ArrayIndices ArrayFormat = "indices"

	// ArrayBrackets appends empty brackets, so every element shares one key.
	// Element order survives only through the order of the tokens.
	ArrayBrackets ArrayFormat = "brackets"

	// ArrayRepeat reuses the parent key verbatim.
	ArrayRepeat ArrayFormat = "repeat"
)

func (f ArrayFormat) prefix(parent, key string) string {
	switch f {
	case ArrayBrackets:
		return parent + "[]"
	case ArrayRepeat:
		return parent
	default:
		return parent + "[" + key + "]"
	}
}

func (f ArrayFormat) valid() bool {
	return f == ArrayIndices || f == ArrayBrackets || f == ArrayRepeat
}

// resolveArrayFormat picks the canonical strategy. A named format wins and
// must be recognized; otherwise the legacy indices flag chooses between
// indices and repeat; otherwise indices.
func resolveArrayFormat(name ArrayFormat, indices *bool) (ArrayFormat, error) {
	if name != "" {
		if !name.valid() {
			return "", &ConfigurationError{Option: "ArrayFormat", Value: string(name), Err: ErrUnknownArrayFormat}
		}
		return name, nil
	}
	if indices != nil {
		if *indices {
			return ArrayIndices, nil
		}
		return ArrayRepeat, nil
	}
	return ArrayIndices, nil
}
