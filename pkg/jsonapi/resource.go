package jsonapi

import "fmt"

// ResourceFromOutput builds a resource from a record's rendered output.
// The identity value becomes the resource ID and every other key, relation
// keys included, becomes an attribute.
func ResourceFromOutput(resourceType, identity string, output map[string]any) Resource {
	r := Resource{Type: resourceType, Attributes: make(map[string]any, len(output))}
	for k, v := range output {
		if k == identity {
			if v != nil {
				r.ID = fmt.Sprint(v)
			}
			continue
		}
		r.Attributes[k] = v
	}
	return r
}

// ResourcesFromOutputs builds a resource per rendered output.
func ResourcesFromOutputs(resourceType, identity string, outputs []map[string]any) []Resource {
	resources := make([]Resource, len(outputs))
	for i, o := range outputs {
		resources[i] = ResourceFromOutput(resourceType, identity, o)
	}
	return resources
}

// Attributes returns the attributes member of a request document body of
// the form {"data": {"attributes": {...}}}. A body without a data member is
// taken as a bare attribute object.
func Attributes(body map[string]any) (map[string]any, error) {
	data, ok := body["data"]
	if !ok {
		return body, nil
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("data must be an object")
	}
	attrs, ok := obj["attributes"]
	if !ok {
		return map[string]any{}, nil
	}
	out, ok := attrs.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("data.attributes must be an object")
	}
	return out, nil
}
