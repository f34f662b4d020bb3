package dao

// Parameter narrows List results, e.g. by record status.
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// FilterByStatus evaluates status-based List parameters against a record
// status. With no parameters every record matches.
func FilterByStatus(status string, parameters []*Parameter) bool {
	if len(parameters) != 1 || parameters[0].Name != "Status" {
		return true
	}
	switch actual := parameters[0].Value.(type) {
	case string:
		return status == actual
	case []string:
		for _, s := range actual {
			if status == s {
				return true
			}
		}
		return false
	}
	return true
}
