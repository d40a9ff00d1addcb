package schema

// Flatten returns the deterministic flattened field list for a document.
//
// Fields are emitted depth-first in declaration order. A node flattens to a
// single field when it is not a pure object/record with enumerable children:
// arrays, scalars, and objects without declared properties all become one
// field holding the raw decoded value.
func Flatten(doc Document) ([]FlattenedField, error) {
	reg := &fieldRegistry{seen: make(map[string]bool)}

	switch doc.Type {
	case TypeJSONSchema:
		if err := flattenJSONSchema(doc.Root, "", reg); err != nil {
			return nil, err
		}
	case TypeAvro:
		if err := flattenAvroSchema(doc.Root, "", reg); err != nil {
			return nil, err
		}
	default:
		return nil, errorf("unsupported schema type: %s", doc.Type)
	}

	return reg.fields, nil
}

type fieldRegistry struct {
	fields []FlattenedField
	seen   map[string]bool
}

func (r *fieldRegistry) register(path string, definition any) error {
	if path == "" {
		return errorf("cannot register a field without a path")
	}
	if r.seen[path] {
		return errorf("duplicate flattened field detected: %s", path)
	}
	r.seen[path] = true
	r.fields = append(r.fields, FlattenedField{Path: path, Definition: definition})
	return nil
}

func flattenJSONSchema(node any, prefix string, reg *fieldRegistry) error {
	obj, ok := node.(*Object)
	if !ok {
		return errorf("JSON schema nodes must be objects")
	}

	nodeTypes := jsonSchemaTypes(obj)
	isObject := containsString(nodeTypes, "object")
	if isObject || (!isObject && obj.Has("properties")) {
		if props, ok := obj.Value("properties").(*Object); ok {
			for _, key := range props.Keys() {
				childPath := key
				if prefix != "" {
					childPath = prefix + "." + key
				}
				if err := flattenJSONSchema(props.Value(key), childPath, reg); err != nil {
					return err
				}
			}
			return nil
		}
		if isObject {
			return reg.register(prefix, obj)
		}
	}

	if containsString(nodeTypes, "array") {
		return reg.register(prefix, obj)
	}

	if prefix != "" {
		return reg.register(prefix, obj)
	}
	return errorf("JSON schema root must define object properties")
}

// jsonSchemaTypes extracts the declared type names of a node, resolving
// nullable unions ("type": ["null", T]) to their non-null members.
func jsonSchemaTypes(node *Object) []string {
	switch t := node.Value("type").(type) {
	case []any:
		var filtered []string
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			return []string{"null"}
		}
		return filtered
	case string:
		return []string{t}
	default:
		return nil
	}
}

func flattenAvroSchema(node any, prefix string, reg *fieldRegistry) error {
	typeName, definition, err := resolveAvroType(node)
	if err != nil {
		return err
	}

	if typeName == "record" {
		def, ok := definition.(*Object)
		if !ok {
			return errorf("Avro record requires fields")
		}
		recordFields, ok := def.Value("fields").([]any)
		if !ok {
			return errorf("Avro record requires fields")
		}
		for _, raw := range recordFields {
			field, ok := raw.(*Object)
			if !ok || !field.Has("name") {
				return errorf("Avro field definitions must include a name")
			}
			name, ok := field.Value("name").(string)
			if !ok {
				return errorf("Avro field definitions must include a name")
			}
			childPath := name
			if prefix != "" {
				childPath = prefix + "." + name
			}
			if err := flattenAvroSchema(field.Value("type"), childPath, reg); err != nil {
				return err
			}
		}
		return nil
	}

	if prefix != "" {
		if definition == nil {
			return reg.register(prefix, typeName)
		}
		return reg.register(prefix, definition)
	}
	return errorf("Avro root must be a record with named fields")
}

// resolveAvroType resolves a schema segment to its effective type name and
// defining node. Unions resolve to the first non-null branch; plain
// type-name strings resolve with a nil definition.
func resolveAvroType(node any) (string, any, error) {
	switch s := node.(type) {
	case []any:
		for _, item := range s {
			if name, ok := item.(string); ok && name == "null" {
				continue
			}
			return resolveAvroType(item)
		}
		return "null", s, nil
	case string:
		return s, nil, nil
	case *Object:
		switch inner := s.Value("type").(type) {
		case []any:
			return resolveAvroType(inner)
		case *Object:
			return resolveAvroType(inner)
		case string:
			return inner, s, nil
		}
	}
	return "", nil, errorf("unsupported Avro schema segment")
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
